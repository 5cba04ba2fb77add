package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hobson/bitcrawl/internal/record"
	"github.com/hobson/bitcrawl/internal/series"
)

// ErrCorruptLog is returned when the log file does not end in a JSON array.
var ErrCorruptLog = errors.New("record log does not end with ']'")

// LogStore is the append-only JSON array of records on disk.
type LogStore struct {
	path string
	mu   sync.Mutex
}

// NewLogStore returns a store for the log file at path. The file is created
// on first append.
func NewLogStore(path string) *LogStore {
	return &LogStore{path: path}
}

// Path returns the log file path.
func (s *LogStore) Path() string { return s.path }

// Append adds records to the end of the array without rewriting the
// existing entries: the closing bracket is overwritten in place.
func (s *LogStore) Append(ctx context.Context, records ...record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	closeAt, c, err := lastNonSpace(f, info.Size())
	if err != nil {
		return fmt.Errorf("read log tail: %w", err)
	}

	var buf bytes.Buffer
	offset := int64(0)
	switch {
	case closeAt < 0:
		buf.WriteString("[\n")
	case c != ']':
		return fmt.Errorf("%s: %w", s.path, ErrCorruptLog)
	default:
		offset = closeAt
		prevAt, prev, err := lastNonSpace(f, closeAt)
		if err != nil {
			return fmt.Errorf("read log tail: %w", err)
		}
		if prevAt < 0 {
			return fmt.Errorf("%s: %w", s.path, ErrCorruptLog)
		}
		if prev == '[' {
			buf.WriteString("\n")
		} else {
			buf.WriteString(",\n")
		}
	}

	if err := encodeRecords(&buf, records); err != nil {
		return err
	}
	buf.WriteString("\n]\n")

	if _, err := f.WriteAt(buf.Bytes(), offset); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	if err := f.Truncate(offset + int64(buf.Len())); err != nil {
		return fmt.Errorf("truncate log: %w", err)
	}
	return f.Sync()
}

func encodeRecords(buf *bytes.Buffer, records []record.Record) error {
	for i, rec := range records {
		if i > 0 {
			buf.WriteString(",\n")
		}
		var one bytes.Buffer
		enc := json.NewEncoder(&one)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		buf.Write(bytes.TrimRight(one.Bytes(), "\n"))
	}
	return nil
}

// lastNonSpace finds the last non-whitespace byte before offset end.
// It returns -1 when there is none.
func lastNonSpace(r io.ReaderAt, end int64) (int64, byte, error) {
	const chunk = 512
	buf := make([]byte, chunk)
	for end > 0 {
		start := end - chunk
		if start < 0 {
			start = 0
		}
		n, err := r.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return -1, 0, err
		}
		for i := n - 1; i >= 0; i-- {
			switch buf[i] {
			case ' ', '\t', '\n', '\r':
				continue
			}
			return start + int64(i), buf[i], nil
		}
		end = start
	}
	return -1, 0, nil
}

// Load reads every record in the log. A missing file is an empty log.
// Entries that are not objects are skipped with a warning.
func (s *LogStore) Load(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []record.Record{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse log %s: %w", s.path, err)
	}

	out := make([]record.Record, 0, len(raw))
	for i, elem := range raw {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			slog.Warn("skipping log entry that is not an object", "path", s.path, "index", i)
			continue
		}

		rec := make(record.Record, len(obj))
		for name, v := range obj {
			var fields record.Fields
			if err := json.Unmarshal(v, &fields); err != nil {
				slog.Warn("skipping source that is not a field-dict", "path", s.path, "index", i, "source", name)
				continue
			}
			rec[name] = fields
		}
		out = append(out, rec)
	}
	return out, nil
}

// LogSummary describes the contents of the record log.
type LogSummary struct {
	Path      string
	SizeBytes int64
	Records   int
	Sources   []SourceTally
	First     time.Time
	Last      time.Time
}

// SourceTally counts the records that carry a source.
type SourceTally struct {
	Source string
	Count  int
}

// Summary loads the log and tallies records per source along with the
// earliest and latest datetime found.
func (s *LogStore) Summary(ctx context.Context) (*LogSummary, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	sum := &LogSummary{Path: s.path, Records: len(records)}
	if info, err := os.Stat(s.path); err == nil {
		sum.SizeBytes = info.Size()
	}

	counts := make(map[string]int)
	for _, rec := range records {
		for name, fields := range rec {
			counts[name]++
			ts, ok := fields.String(record.KeyDatetime)
			if !ok {
				continue
			}
			t, err := series.ParseTimestamp(ts)
			if err != nil {
				continue
			}
			if sum.First.IsZero() || t.Before(sum.First) {
				sum.First = t
			}
			if t.After(sum.Last) {
				sum.Last = t
			}
		}
	}

	for name, n := range counts {
		sum.Sources = append(sum.Sources, SourceTally{Source: name, Count: n})
	}
	sort.Slice(sum.Sources, func(i, j int) bool {
		if sum.Sources[i].Count != sum.Sources[j].Count {
			return sum.Sources[i].Count > sum.Sources[j].Count
		}
		return sum.Sources[i].Source < sum.Sources[j].Source
	})
	return sum, nil
}
