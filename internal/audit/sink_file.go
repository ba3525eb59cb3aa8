package audit

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
)

// Sink consumes audit records (file, webhook, etc.).
type Sink interface {
	Name() string
	Append(context.Context, *Record) error
	Close(context.Context) error
}

// FileSink appends records as JSONL, one file per calendar day. A
// single mutex serializes writers so entries are never interleaved
// mid-record.
type FileSink struct {
	dir    string
	prefix string

	mu     sync.Mutex
	day    string
	file   *os.File
	writer *bufio.Writer
	now    func() time.Time
}

// NewFileSink creates the sink directory if needed. Files are named
// <prefix>-YYYY-MM-DD.jsonl.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &FileSink{dir: dir, prefix: "audit", now: time.Now}, nil
}

func (s *FileSink) Name() string { return "file_jsonl:" + s.dir }

// Append writes one record as a single JSON line, rotating the file
// when the calendar day changes. Each entry is flushed before the lock
// is released so a concurrent reader sees only whole lines.
func (s *FileSink) Append(_ context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateLocked(); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *FileSink) rotateLocked() error {
	day := s.now().UTC().Format("2006-01-02")
	if s.file != nil && day == s.day {
		return nil
	}
	if s.file != nil {
		_ = s.writer.Flush()
		_ = s.file.Close()
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.jsonl", s.prefix, day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	s.day = day
	s.file = f
	s.writer = bufio.NewWriter(f)
	return nil
}

func (s *FileSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		_ = s.writer.Flush()
	}
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}
