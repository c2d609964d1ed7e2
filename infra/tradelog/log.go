package tradelog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const activeName = "current.log"

// Config controls the journal's on-disk behavior. Zero values get
// sensible defaults from Open.
type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
	FlushInterval   time.Duration
	Serializer      Serializer
}

// Log is a segmented append-only journal. Every record is framed as
// [len:u32le][crc:u32le][body]; the active segment rotates to a
// timestamped file by size or age.
type Log struct {
	cfg Config

	mu    sync.Mutex
	file  *os.File
	bytes int64
	start time.Time
	seq   uint64

	stop chan struct{}
	done chan struct{}
}

func Open(cfg Config) (*Log, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = 64 << 20
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = time.Hour
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Serializer == nil {
		cfg.Serializer = ProtoSerializer{}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("tradelog: create dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.Dir, activeName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tradelog: open segment: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	l := &Log{
		cfg:   cfg,
		file:  f,
		bytes: info.Size(),
		start: time.Now(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.autoFlush()
	return l, nil
}

// Append frames and writes one record, rotating afterwards if the
// segment is over size or age.
func (l *Log) Append(rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	rec.Seq = l.seq
	if rec.Time == 0 {
		rec.Time = time.Now().UnixNano()
	}

	body, err := l.cfg.Serializer.Encode(rec)
	if err != nil {
		return err
	}
	frame := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:8], crc32.ChecksumIEEE(body))
	copy(frame[8:], body)

	n, err := l.file.Write(frame)
	if err != nil {
		return fmt.Errorf("tradelog: append: %w", err)
	}
	l.bytes += int64(n)

	if l.bytes >= l.cfg.SegmentSize || time.Since(l.start) >= l.cfg.SegmentDuration {
		return l.rotate()
	}
	return nil
}

// Sync flushes the active segment to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

func (l *Log) Close() error {
	close(l.stop)
	<-l.done
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Sync(); err != nil {
		return err
	}
	return l.file.Close()
}

// rotate renames the active segment to a timestamped name and starts a
// fresh one. Caller holds the mutex.
func (l *Log) rotate() error {
	if err := l.file.Sync(); err != nil {
		return err
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	active := filepath.Join(l.cfg.Dir, activeName)
	rotated := filepath.Join(l.cfg.Dir,
		fmt.Sprintf("segment-%s.log", time.Now().Format("20060102_150405.000000000")))
	if err := os.Rename(active, rotated); err != nil {
		return fmt.Errorf("tradelog: rotate: %w", err)
	}
	f, err := os.OpenFile(active, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("tradelog: reopen segment: %w", err)
	}
	l.file = f
	l.bytes = 0
	l.start = time.Now()
	return nil
}

func (l *Log) autoFlush() {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			_ = l.file.Sync()
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}
