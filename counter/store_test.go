package counter

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "incense_count.json"), nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestLoadMissingFileIsZero(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if s.Total() != 0 {
		t.Fatalf("Total() = %d, want 0", s.Total())
	}
	if got := s.TopN(10); len(got) != 0 {
		t.Fatalf("TopN() = %v, want empty", got)
	}
}

func TestIncrementPersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "incense_count.json")
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	total, user, err := s.Increment(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if total != 1 || user != 1 {
		t.Fatalf("Increment() = (%d, %d), want (1, 1)", total, user)
	}
	if _, _, err := s.Increment(context.Background(), "u2"); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	// Reload into a fresh store, as after a process restart.
	s2, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore() reload error = %v", err)
	}
	if s2.Total() != 2 {
		t.Fatalf("reloaded Total() = %d, want 2", s2.Total())
	}
	if s2.UserCount("u1") != 1 || s2.UserCount("u2") != 1 {
		t.Fatalf("reloaded counts = (%d, %d), want (1, 1)", s2.UserCount("u1"), s2.UserCount("u2"))
	}
}

func TestTotalEqualsSumOfUsers(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	users := []string{"u1", "u2", "u1", "u3", "u1", "u2"}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if _, _, err := s.Increment(context.Background(), u); err != nil {
				t.Errorf("Increment(%s) error = %v", u, err)
			}
		}(u)
	}
	wg.Wait()

	sum := 0
	for _, row := range s.TopN(100) {
		sum += row.Count
	}
	if s.Total() != len(users) || sum != s.Total() {
		t.Fatalf("Total() = %d, sum = %d, want both %d", s.Total(), sum, len(users))
	}
}

func TestTopNOrdering(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Increment(ctx, "heavy")
	}
	for i := 0; i < 2; i++ {
		s.Increment(ctx, "mid")
	}
	s.Increment(ctx, "tie-a")
	s.Increment(ctx, "tie-b")

	got := s.TopN(3)
	if len(got) != 3 {
		t.Fatalf("TopN(3) = %d rows, want 3", len(got))
	}
	if got[0].UserID != "heavy" || got[0].Count != 3 {
		t.Fatalf("TopN()[0] = %+v, want heavy/3", got[0])
	}
	if got[1].UserID != "mid" {
		t.Fatalf("TopN()[1] = %+v, want mid", got[1])
	}
	if got[2].UserID != "tie-a" {
		t.Fatalf("TopN()[2] = %+v, want tie-a (stable tie order)", got[2])
	}
}

func TestIncrementRejectsEmptyUser(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, _, err := s.Increment(context.Background(), "  "); err == nil {
		t.Fatalf("Increment(empty) error = nil, want error")
	}
}
