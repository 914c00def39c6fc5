package session

import (
	"sync"
	"testing"
)

func TestWithCreatesInitialSession(t *testing.T) {
	t.Parallel()

	st := NewStore()
	st.With("u1", func(s *Session) {
		if s.State != StateInit {
			t.Fatalf("new session state = %q, want %q", s.State, StateInit)
		}
		if s.LastIndex != NoIndex {
			t.Fatalf("new session index = %d, want %d", s.LastIndex, NoIndex)
		}
		s.State = StateWaitingID
		s.LastIndex = 7
	})

	got, ok := st.Snapshot("u1")
	if !ok {
		t.Fatalf("Snapshot() ok = false, want true")
	}
	if got.State != StateWaitingID || got.LastIndex != 7 {
		t.Fatalf("Snapshot() = %+v, want waiting_id/7", got)
	}
}

func TestSnapshotUnknownUser(t *testing.T) {
	t.Parallel()

	st := NewStore()
	if _, ok := st.Snapshot("nobody"); ok {
		t.Fatalf("Snapshot(unknown) ok = true, want false")
	}
}

func TestWithSerializesPerUser(t *testing.T) {
	t.Parallel()

	st := NewStore()
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.With("u1", func(s *Session) {
				s.LastIndex++
			})
		}()
	}
	wg.Wait()

	got, _ := st.Snapshot("u1")
	if got.LastIndex != NoIndex+n {
		t.Fatalf("LastIndex = %d, want %d", got.LastIndex, NoIndex+n)
	}
}
