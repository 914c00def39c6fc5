// Package counter persists the incense counters: one global total plus a
// per-user count, snapshotted to a JSON file on every increment. The file
// layout matches the bot's historical incense_count.json so existing
// deployments keep their numbers.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ray319129/czj/internal/fsstore"
)

// ErrPersist reports that the in-memory increment succeeded but the snapshot
// write did not. The in-memory record stays authoritative; callers may log
// and move on.
var ErrPersist = errors.New("counter: persist failed")

// Record is the durable snapshot. Invariant: Total equals the sum of Users
// at every persisted checkpoint.
type Record struct {
	Total int            `json:"total_count"`
	Users map[string]int `json:"user_counts"`
}

// UserCount is one ranking row.
type UserCount struct {
	UserID string
	Count  int
}

// Store owns the counter record. A single mutex serializes increments; the
// global total makes finer-grained locking pointless here, and increments
// are rare (the ritual tier allows five per five minutes per user).
type Store struct {
	path     string
	lockPath string
	logger   *slog.Logger

	mu  sync.Mutex
	rec Record
}

func NewStore(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing counter file path")
	}
	lockPath, err := fsstore.LockPathFor(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:     path,
		lockPath: lockPath,
		logger:   logger,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the snapshot; a missing file yields a zero record.
func (s *Store) load() error {
	var rec Record
	found, err := fsstore.ReadJSON(s.path, &rec)
	if err != nil {
		return fmt.Errorf("load counter: %w", err)
	}
	if !found || rec.Users == nil {
		rec.Users = make(map[string]int)
	}
	if !found {
		rec.Total = 0
	}
	s.rec = rec
	return nil
}

// Increment atomically bumps both the global total and the user's count,
// then persists the full record before returning. A failed write is logged
// and reported as ErrPersist; the returned counts are still valid.
func (s *Store) Increment(ctx context.Context, userID string) (total int, userCount int, err error) {
	if s == nil {
		return 0, 0, fmt.Errorf("nil counter store")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, 0, fmt.Errorf("missing user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Total++
	s.rec.Users[userID]++
	total = s.rec.Total
	userCount = s.rec.Users[userID]

	snapshot := Record{Total: s.rec.Total, Users: make(map[string]int, len(s.rec.Users))}
	for k, v := range s.rec.Users {
		snapshot.Users[k] = v
	}

	if werr := fsstore.WithLock(ctx, s.lockPath, func() error {
		return fsstore.WriteJSONAtomic(s.path, snapshot)
	}); werr != nil {
		s.logger.Warn("counter snapshot write failed", "path", s.path, "error", werr)
		return total, userCount, fmt.Errorf("%w: %v", ErrPersist, werr)
	}
	return total, userCount, nil
}

func (s *Store) Total() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Total
}

func (s *Store) UserCount(userID string) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Users[strings.TrimSpace(userID)]
}

// TopN returns the n highest counts, descending, ties broken by user id so
// the ranking is stable across calls.
func (s *Store) TopN(n int) []UserCount {
	if s == nil || n <= 0 {
		return nil
	}
	s.mu.Lock()
	rows := make([]UserCount, 0, len(s.rec.Users))
	for id, c := range s.rec.Users {
		rows = append(rows, UserCount{UserID: id, Count: c})
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].UserID < rows[j].UserID
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
