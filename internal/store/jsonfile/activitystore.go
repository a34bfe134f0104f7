// Package jsonfile persists the activity journal as a JSONL file.
package jsonfile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/core/feed"
)

const (
	defaultMaxEntries = 1000
	defaultQueueSize  = 64
	activityFilename  = "activity.jsonl"
)

// Entry is one journaled activity.
type Entry struct {
	Activity   feed.Activity `json:"activity"`
	Reason     string        `json:"reason"`
	RecordedAt time.Time     `json:"recorded_at"`
	// Run identifies the process that recorded the entry. Activity ids restart
	// with every process, so an id is only unique within its run.
	Run string `json:"run"`
}

// ActivityStore is a bounded journal of emitted activities backed by a JSONL file.
// It implements aggregator.Observer. Observed activities are queued and written
// by Run, so the aggregator never waits on the file lock.
type ActivityStore struct {
	dir        string
	maxEntries int
	run        string
	log        zerolog.Logger
	mu         sync.Mutex
	queue      chan Entry
}

var _ aggregator.Observer = (*ActivityStore)(nil)

// NewActivityStore creates a new activity store at the given directory.
func NewActivityStore(dir string) *ActivityStore {
	return &ActivityStore{
		dir:        dir,
		maxEntries: defaultMaxEntries,
		run:        uuid.NewString(),
		log:        zerolog.Nop(),
		queue:      make(chan Entry, defaultQueueSize),
	}
}

// WithMaxEntries sets the maximum number of entries to retain.
func (s *ActivityStore) WithMaxEntries(n int) *ActivityStore {
	if n > 0 {
		s.maxEntries = n
	}
	return s
}

// WithLogger sets the logger used to report failed writes from Run.
func (s *ActivityStore) WithLogger(l zerolog.Logger) *ActivityStore {
	s.log = l
	return s
}

// Path returns the journal file path.
func (s *ActivityStore) Path() string {
	return filepath.Join(s.dir, activityFilename)
}

func (s *ActivityStore) lockPath() string {
	return s.Path() + ".lock"
}

// withSharedLock executes fn while holding a shared (read) file lock.
// Multiple processes can hold shared locks simultaneously.
func (s *ActivityStore) withSharedLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_SH, fn)
}

// withExclusiveLock executes fn while holding an exclusive (write) file lock.
func (s *ActivityStore) withExclusiveLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_EX, fn)
}

func (s *ActivityStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// OnSnapshot queues the newest activity of each delivered snapshot for Run.
// Activities are dropped when the queue is full.
func (s *ActivityStore) OnSnapshot(snap feed.Snapshot, reason aggregator.Reason, _ int) {
	act, ok := snap.Newest()
	if !ok {
		return
	}

	entry := Entry{
		Activity:   act,
		Reason:     string(reason),
		RecordedAt: snap.LastUpdated,
	}

	select {
	case s.queue <- entry:
	default:
		s.log.Warn().Int64("activity", act.ID).Msg("journal queue full, dropping activity")
	}
}

// Run records queued activities until ctx is cancelled. Activities still queued
// at cancellation are written before Run returns.
func (s *ActivityStore) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.queue:
					s.record(entry)
				default:
					return nil
				}
			}
		case entry := <-s.queue:
			s.record(entry)
		}
	}
}

func (s *ActivityStore) record(entry Entry) {
	if err := s.Record(entry); err != nil {
		s.log.Error().Err(err).Int64("activity", entry.Activity.ID).Msg("journal activity")
	}
}

// OnSubscribers is a no-op; the journal only tracks activity.
func (s *ActivityStore) OnSubscribers(int) {}

// Record appends an entry. An entry whose activity was already recorded by the
// same run is skipped.
func (s *ActivityStore) Record(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		if entry.Run == "" {
			entry.Run = s.run
		}
		if entry.RecordedAt.IsZero() {
			entry.RecordedAt = time.Now()
		}

		entries, err := s.readEntriesUnsafe()
		if err != nil {
			return err
		}

		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Run == entry.Run && entries[i].Activity.ID == entry.Activity.ID {
				return nil
			}
		}

		entries = append(entries, entry)

		if len(entries) > s.maxEntries {
			entries = entries[len(entries)-s.maxEntries:]
		}

		return s.writeEntriesUnsafe(entries)
	})
}

// List returns journaled entries, newest first. A limit of zero returns all.
func (s *ActivityStore) List(limit int) ([]Entry, error) {
	return s.ListSince(time.Time{}, limit)
}

// ListSince returns entries recorded after since, newest first.
func (s *ActivityStore) ListSince(since time.Time, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Entry
	err := s.withSharedLock(func() error {
		entries, err := s.readEntriesUnsafe()
		if err != nil {
			return err
		}

		for i := len(entries) - 1; i >= 0; i-- {
			if !entries[i].RecordedAt.After(since) {
				continue
			}
			result = append(result, entries[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
		return nil
	})
	return result, err
}

// Clear removes all journaled entries.
func (s *ActivityStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove journal: %w", err)
		}
		return nil
	})
}

// readEntriesUnsafe reads all entries from the file.
// Caller must hold lock.
func (s *ActivityStore) readEntriesUnsafe() ([]Entry, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// Skip malformed lines
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	return entries, nil
}

// writeEntriesUnsafe replaces the file with entries.
// Caller must hold lock.
func (s *ActivityStore) writeEntriesUnsafe(entries []Entry) error {
	tmpPath := s.Path() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			f.Close() //nolint:errcheck
			_ = os.Remove(tmpPath)
			return fmt.Errorf("write entry: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flush journal: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
