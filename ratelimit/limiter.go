// Package ratelimit implements the sliding-window request throttle. Each
// configured tier is an independent Limiter; the bot runs one for ordinary
// commands and a slower one for the incense ritual.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Verdict is the outcome of a limit check. A denial carries whether the
// caller should tell the user about it: only the first denial per warn
// cooldown is worth a reply, the rest are dropped silently.
type Verdict int

const (
	Allowed Verdict = iota
	DeniedWithWarning
	DeniedSilent
)

func (v Verdict) Denied() bool { return v != Allowed }

// Limiter allows at most max events per user inside a sliding window.
// A WarnCooldown of zero disables warning suppression, so every denial
// reports DeniedWithWarning.
type Limiter struct {
	window       time.Duration
	max          int
	warnCooldown time.Duration

	users sync.Map // user id -> *userWindow
}

// userWindow owns one user's timestamps. Its mutex serializes that user
// only; different users never contend.
type userWindow struct {
	mu       sync.Mutex
	stamps   []time.Time
	lastWarn time.Time
}

func New(window time.Duration, max int, warnCooldown time.Duration) *Limiter {
	if window <= 0 {
		window = time.Second
	}
	if max <= 0 {
		max = 1
	}
	return &Limiter{
		window:       window,
		max:          max,
		warnCooldown: warnCooldown,
	}
}

// Check records the event at now if the user is under the limit and returns
// the verdict. Timestamps older than the window are pruned on every call,
// so a user's slice never holds more than max entries.
func (l *Limiter) Check(userID string, now time.Time) Verdict {
	if l == nil {
		return Allowed
	}
	userID = strings.TrimSpace(userID)

	val, _ := l.users.LoadOrStore(userID, &userWindow{})
	w := val.(*userWindow)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := w.stamps[:0]
	for _, t := range w.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= l.max {
		if l.warnCooldown <= 0 {
			return DeniedWithWarning
		}
		if now.Sub(w.lastWarn) > l.warnCooldown {
			w.lastWarn = now
			return DeniedWithWarning
		}
		return DeniedSilent
	}

	w.stamps = append(w.stamps, now)
	return Allowed
}
