// Package changelog persists the append-only record of every successful
// unmonitor action. The on-disk format is one JSON document per line so
// each record parses independently; a torn trailing line from a crashed
// write corrupts at most itself and is skipped on read.
package changelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/haltarr/haltarr/internal/arr"
)

// Entry is one durable action record. Immutable once written.
type Entry struct {
	Timestamp time.Time   `json:"timestamp"`
	Service   arr.Service `json:"service"`
	ItemKey   string      `json:"itemKey"`
	ItemID    int64       `json:"itemId"`
	SeriesID  int64       `json:"seriesId,omitempty"`
	Title     string      `json:"title"`
	Quality   string      `json:"quality"`
	Action    string      `json:"action"`
}

// Actions recorded per service granularity.
const (
	ActionUnmonitorMovie   = "unmonitor_movie"
	ActionUnmonitorEpisode = "unmonitor_episode"
)

// Store is the durable change log. Appends are flushed to disk before
// returning so a recorded action survives an immediate crash.
type Store struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewStore creates a change log store backed by the given file, creating
// parent directories as needed.
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create change log directory: %w", err)
	}

	return &Store{
		path:   path,
		logger: logger.With().Str("component", "changelog").Logger(),
	}, nil
}

// Append writes one record and flushes it to stable storage.
func (s *Store) Append(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode change log entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open change log: %w", err)
	}
	defer f.Close()

	// A crash can leave the file ending mid-record without a newline.
	// Terminate any such fragment so the new record gets its own line.
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			line = append([]byte{'\n'}, line...)
		}
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append change log entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush change log: %w", err)
	}

	return nil
}

// All returns every parseable record in chronological order. Malformed
// lines (including a torn trailing partial write) are skipped.
func (s *Store) All() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	entries, err := s.All()
	if err != nil {
		return nil, err
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	// newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Clear truncates the durable log. Callers owning an in-memory view of
// the log must reset it alongside.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Truncate(s.path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear change log: %w", err)
	}

	s.logger.Info().Msg("change log cleared")
	return nil
}

func (s *Store) readLocked() ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open change log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			s.logger.Warn().Err(err).Msg("skipping malformed change log line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read change log: %w", err)
	}

	return entries, nil
}
