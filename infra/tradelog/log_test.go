package tradelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quasar/domain/orderbook"
)

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	const n = 100
	for i := 0; i < n; i++ {
		rec := &Record{
			Type: RecordTrade,
			Data: []byte(fmt.Sprintf("trade-%d", i)),
		}
		if err := l.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := OpenReader(dir)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	count := 0
	var lastSeq uint64
	for r.Next() {
		rec := r.Record()
		if rec.Type != RecordTrade {
			t.Fatalf("unexpected record type: %v", rec.Type)
		}
		if rec.Seq <= lastSeq {
			t.Fatalf("seq not increasing: %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq
		if want := fmt.Sprintf("trade-%d", count); string(rec.Data) != want {
			t.Fatalf("expected %q, got %q", want, rec.Data)
		}
		count++
	}
	if r.Err() != nil {
		t.Fatalf("reader error: %v", r.Err())
	}
	if count != n {
		t.Fatalf("expected %d records, got %d", n, count)
	}
}

func TestSegmentRotation(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(Config{Dir: dir, SegmentSize: 256})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	const n = 50
	for i := 0; i < n; i++ {
		if err := l.Append(&Record{Type: RecordTrade, Data: []byte("0123456789abcdef")}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected rotated segments, found %d files", len(entries))
	}

	r, err := OpenReader(dir)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()
	count := 0
	var lastSeq uint64
	for r.Next() {
		rec := r.Record()
		if rec.Seq <= lastSeq {
			t.Fatalf("replay out of order across segments: %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq
		count++
	}
	if r.Err() != nil {
		t.Fatalf("reader error: %v", r.Err())
	}
	if count != n {
		t.Fatalf("expected %d records across segments, got %d", n, count)
	}
}

func TestCorruptTailDetected(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Append(&Record{Type: RecordTrade, Data: []byte("ok")}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// a torn write leaves a partial frame at the tail
	f, err := os.OpenFile(filepath.Join(dir, activeName), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte{0xde, 0xad})
	f.Close()

	r, err := OpenReader(dir)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()
	count := 0
	for r.Next() {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 intact records, got %d", count)
	}
	if !errors.Is(r.Err(), ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", r.Err())
	}
}

func TestRecordSerializerRoundTrip(t *testing.T) {
	ser := ProtoSerializer{}
	in := &Record{Type: RecordTrade, Seq: 42, Time: 1700000000, Data: []byte("payload")}

	body, err := ser.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := ser.Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != in.Type || out.Seq != in.Seq || out.Time != in.Time || string(out.Data) != string(in.Data) {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}

	if _, err := ser.Decode([]byte{0xff}); err == nil {
		t.Error("expected error on garbage input")
	}
}

func TestTradeCodecRoundTrip(t *testing.T) {
	in := orderbook.Trade{
		TradeID:       7,
		TakerOrderID:  12,
		MakerOrderID:  9,
		TakerClientID: 101,
		MakerClientID: 100,
		Symbol:        "BTC",
		Price:         50000,
		Qty:           5,
		Timestamp:     time.Unix(0, 1700000000000000000),
	}
	out, err := UnmarshalTrade(MarshalTrade(in))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}
