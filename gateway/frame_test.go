package gateway

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload, err := EncodeNewOrder(NewOrderRequest{
		ClientID: 100,
		Side:     0,
		Price:    50000.0,
		Qty:      10,
		Symbol:   "BTC-USD",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, MsgNewOrder, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	msgType, body, err := ReadFrame(&buf, 4096)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if msgType != MsgNewOrder {
		t.Errorf("expected MsgNewOrder, got %#x", msgType)
	}
	req, err := decodeNewOrder(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.ClientID != 100 || req.Side != 0 || req.Price != 50000.0 || req.Qty != 10 || req.Symbol != "BTC-USD" {
		t.Errorf("round trip mismatch: %+v", req)
	}
}

func TestReadFrameSizeLimit(t *testing.T) {
	payload := make([]byte, 128)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, MsgNewOrder, payload); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadFrame(&buf, 64); !errors.Is(err, errFrameTooLarge) {
		t.Errorf("expected errFrameTooLarge, got %v", err)
	}
}

func TestDecodeNewOrderShortPayload(t *testing.T) {
	if _, err := decodeNewOrder([]byte{1, 2, 3}); !errors.Is(err, errShortPayload) {
		t.Errorf("expected errShortPayload, got %v", err)
	}

	// symbol length pointing past the end
	payload, err := EncodeNewOrder(NewOrderRequest{ClientID: 1, Price: 1, Qty: 1, Symbol: "BTC"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeNewOrder(payload[:len(payload)-1]); !errors.Is(err, errShortPayload) {
		t.Errorf("expected errShortPayload on truncated symbol, got %v", err)
	}
}

func TestCancelCodec(t *testing.T) {
	id, err := decodeCancelOrder(EncodeCancelOrder(7))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != 7 {
		t.Errorf("expected 7, got %d", id)
	}
	if _, err := decodeCancelOrder([]byte{1}); !errors.Is(err, errShortPayload) {
		t.Errorf("expected errShortPayload, got %v", err)
	}
}

func TestPriceToTicks(t *testing.T) {
	cases := []struct {
		price float64
		scale int64
		want  int64
		ok    bool
	}{
		{50000.0, 100, 5000000, true},
		{50000.25, 100, 5000025, true},
		{0.01, 100, 1, true},
		{4000.5, 100, 400050, true},
		{50000.123, 100, 0, false}, // finer than the tick
		{0.001, 100, 0, false},
	}
	for _, c := range cases {
		got, err := priceToTicks(c.price, c.scale)
		if c.ok {
			if err != nil {
				t.Errorf("priceToTicks(%v, %d): unexpected error %v", c.price, c.scale, err)
				continue
			}
			if got != c.want {
				t.Errorf("priceToTicks(%v, %d) = %d, want %d", c.price, c.scale, got, c.want)
			}
		} else if err == nil {
			t.Errorf("priceToTicks(%v, %d): expected error, got %d", c.price, c.scale, got)
		}
	}
}

func TestValidNewOrder(t *testing.T) {
	base := NewOrderRequest{ClientID: 1, Side: 0, Price: 100, Qty: 1, Symbol: "BTC"}
	if !validNewOrder(base) {
		t.Fatal("base request should validate")
	}

	for name, mutate := range map[string]func(*NewOrderRequest){
		"empty symbol":    func(r *NewOrderRequest) { r.Symbol = "" },
		"symbol too long": func(r *NewOrderRequest) { r.Symbol = "AVERYLONGSYMBOLNAME" },
		"bad side":        func(r *NewOrderRequest) { r.Side = 2 },
		"zero qty":        func(r *NewOrderRequest) { r.Qty = 0 },
		"zero price":      func(r *NewOrderRequest) { r.Price = 0 },
		"negative price":  func(r *NewOrderRequest) { r.Price = -1 },
	} {
		req := base
		mutate(&req)
		if validNewOrder(req) {
			t.Errorf("%s: should not validate", name)
		}
	}
}
