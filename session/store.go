// Package session tracks per-user conversational state: which prompt the
// user is answering and the last catalog position they were shown. Sessions
// are created lazily and live for the process lifetime; the map is bounded
// by the number of distinct users.
package session

import (
	"sync"
)

// State names the prompt the bot is waiting on for a user. Values match the
// bot's historical state strings.
type State string

const (
	StateInit              State = "initial"
	StateWaitingSearchType State = "waiting_search_type"
	StateWaitingID         State = "waiting_id"
	StateWaitingKeyword    State = "waiting_keyword"
	StateWaitingQuestion   State = "waiting_question"
	StateWaitingShouldI    State = "waiting_should_i"
	StateWaitingCharacter  State = "waiting_character"
	StateWaitingMeme       State = "waiting_meme"
)

// NoIndex marks a session that has not been shown any catalog entry yet.
const NoIndex = -1

// Session is one user's conversational state. It is only touched under the
// store's per-user lock.
type Session struct {
	State     State
	LastIndex int
}

type entry struct {
	mu sync.Mutex
	s  Session
}

// Store owns all sessions. Locking is per user, so concurrent events from
// different users never contend.
type Store struct {
	users sync.Map // user id -> *entry
}

func NewStore() *Store {
	return &Store{}
}

// With runs fn with exclusive access to the user's session, creating it in
// the initial state on first contact. Everything the dispatcher does for one
// inbound event happens inside fn, which serializes a user's events.
func (st *Store) With(userID string, fn func(*Session)) {
	if st == nil || fn == nil {
		return
	}
	val, _ := st.users.LoadOrStore(userID, &entry{s: Session{State: StateInit, LastIndex: NoIndex}})
	e := val.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.s)
}

// Snapshot returns a copy of the user's session, or false if the user has
// never been seen.
func (st *Store) Snapshot(userID string) (Session, bool) {
	if st == nil {
		return Session{}, false
	}
	val, ok := st.users.Load(userID)
	if !ok {
		return Session{}, false
	}
	e := val.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s, true
}
