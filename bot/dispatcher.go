// Package bot is the conversational core: it turns one inbound text event
// into outbound reply actions and a session transition. Recognized commands
// are checked first regardless of state; otherwise the user's current state
// picks a search strategy, falling back to id lookup and keyword search.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ray319129/czj/catalog"
	"github.com/ray319129/czj/counter"
	"github.com/ray319129/czj/ratelimit"
	"github.com/ray319129/czj/session"
	"github.com/ray319129/czj/trivia"
)

// Command texts. These are the bot's wire protocol and are deliberately not
// configurable; the reply voice is (see Replies).
const (
	cmdIncense        = "上香"
	cmdIncenseRanking = "上香排行榜"
	cmdMemeSearch     = "查梗"
	cmdMemeList       = "列梗"
	cmdCharacter      = "角色"
	cmdShouldI        = "我該嗎"
	cmdQuestion       = "看見甄相"
	cmdDailyFortune   = "每日運勢"
	cmdEnterID        = "id"
	cmdMenu           = "menu"
	cmdLottery        = "抽"
	cmdNext           = "下一張"
	cmdPrevious       = "上一張"

	groupPrefix = "!"
	incenseID   = "a0368"
)

var (
	fortuneIDs  = []string{"a0417", "a0199", "a0013", "a0414", "a0519"}
	shouldIIDs  = []string{"a0182", "a0202"}
	questionIDs = []string{
		"a0261", "a0157", "a0299", "a0220", "a0452",
		"a0517", "a0202", "a0182", "a0222", "a0466",
		"a0427", "a0404", "a0236", "a0155", "a0371",
		"a0441", "a0292", "a0457", "a0411", "a0373",
	}
)

// TriviaSource yields the current trivia snapshot (normally a
// trivia.CachedSource).
type TriviaSource interface {
	Table(ctx context.Context) (*trivia.Table, error)
}

// ProfileResolver resolves a user id to a display name for the ranking
// board. A nil resolver or an error falls back to the anonymous label.
type ProfileResolver interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Config carries the two rate tiers and the ranking size.
type Config struct {
	CommandWindow       time.Duration
	CommandMax          int
	CommandWarnCooldown time.Duration

	RitualWindow time.Duration
	RitualMax    int

	RankingSize int
}

func DefaultConfig() Config {
	return Config{
		CommandWindow:       10 * time.Second,
		CommandMax:          7,
		CommandWarnCooldown: 10 * time.Second,
		RitualWindow:        5 * time.Minute,
		RitualMax:           5,
		RankingSize:         10,
	}
}

type Options struct {
	Config   Config
	Replies  *Replies
	Catalog  *catalog.Index
	Trivia   TriviaSource
	Sessions *session.Store
	Counter  *counter.Store
	Profiles ProfileResolver
	Logger   *slog.Logger

	// Rand picks a uniform int in [0, n); injected by tests.
	Rand func(n int) int
}

// Dispatcher is safe for concurrent use; per-user work is serialized by the
// session store, and the shared stores lock per key themselves.
type Dispatcher struct {
	cfg      Config
	replies  *Replies
	catalog  *catalog.Index
	trivia   TriviaSource
	sessions *session.Store
	counter  *counter.Store
	profiles ProfileResolver
	logger   *slog.Logger
	randFn   func(n int) int

	cmdLimiter    *ratelimit.Limiter
	ritualLimiter *ratelimit.Limiter
}

func New(opts Options) (*Dispatcher, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("missing session store")
	}
	if opts.Counter == nil {
		return nil, fmt.Errorf("missing counter store")
	}
	cfg := opts.Config
	if cfg.CommandMax <= 0 {
		cfg = DefaultConfig()
	}
	replies := opts.Replies
	if replies == nil {
		replies = DefaultReplies()
	}
	ix := opts.Catalog
	if ix == nil {
		ix = catalog.NewIndex(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	randFn := opts.Rand
	if randFn == nil {
		randFn = rand.IntN
	}
	return &Dispatcher{
		cfg:           cfg,
		replies:       replies,
		catalog:       ix,
		trivia:        opts.Trivia,
		sessions:      opts.Sessions,
		counter:       opts.Counter,
		profiles:      opts.Profiles,
		logger:        logger,
		randFn:        randFn,
		cmdLimiter:    ratelimit.New(cfg.CommandWindow, cfg.CommandMax, cfg.CommandWarnCooldown),
		ritualLimiter: ratelimit.New(cfg.RitualWindow, cfg.RitualMax, 0),
	}, nil
}

// Dispatch handles one inbound text event and returns the replies to send.
// It never panics and never leaves a session in a transient state after an
// internal fault.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, text string, isGroup bool, now time.Time) (actions []Action) {
	if d == nil {
		return nil
	}
	text = strings.TrimSpace(text)

	// Group chats only listen to prefixed commands.
	if isGroup {
		if !strings.HasPrefix(text, groupPrefix) {
			return nil
		}
		text = strings.TrimSpace(strings.TrimPrefix(text, groupPrefix))
	}

	switch d.cmdLimiter.Check(userID, now) {
	case ratelimit.DeniedWithWarning:
		return []Action{ShowText{Text: d.replies.RateLimited}}
	case ratelimit.DeniedSilent:
		return nil
	}

	d.sessions.With(userID, func(s *session.Session) {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("dispatch failed", "user_id", userID, "panic", r)
				s.State = session.StateInit
				actions = []Action{ShowText{Text: d.replies.InternalError}}
			}
		}()
		actions = d.handle(ctx, userID, text, isGroup, now, s)
	})
	return actions
}

func (d *Dispatcher) handle(ctx context.Context, userID, text string, isGroup bool, now time.Time, s *session.Session) []Action {
	if acts, ok := d.handleCommand(ctx, userID, text, isGroup, now, s); ok {
		return acts
	}

	switch s.State {
	case session.StateWaitingCharacter:
		s.State = session.StateInit
		return d.characterSearch(text, isGroup)
	case session.StateWaitingQuestion:
		s.State = session.StateInit
		return d.randomAnswer(questionIDs, s)
	case session.StateWaitingShouldI:
		s.State = session.StateInit
		return d.randomAnswer(shouldIIDs, s)
	case session.StateWaitingMeme:
		s.State = session.StateInit
		return d.triviaSearch(ctx, text)
	case session.StateWaitingID:
		if acts, ok := d.showByID(text, s); ok {
			s.State = session.StateInit
			return acts
		}
	}

	// An id-shaped message beats keyword search.
	if catalog.LooksLikeID(text) {
		if acts, ok := d.showByID(text, s); ok {
			s.State = session.StateInit
			return acts
		}
	}

	return d.keywordSearch(text, s)
}

// handleCommand evaluates the fixed command table. The second return value
// reports whether the text matched a command; a match short-circuits all
// further processing for the event.
func (d *Dispatcher) handleCommand(ctx context.Context, userID, text string, isGroup bool, now time.Time, s *session.Session) ([]Action, bool) {
	switch strings.ToLower(text) {
	case cmdIncense:
		return d.incense(ctx, userID, now, s), true
	case cmdIncenseRanking:
		return d.incenseRanking(ctx), true
	case cmdMemeSearch:
		s.State = session.StateWaitingMeme
		return []Action{ShowText{Text: d.replies.AskMeme}}, true
	case cmdMemeList:
		return d.triviaList(ctx), true
	case cmdCharacter:
		s.State = session.StateWaitingCharacter
		return []Action{ShowText{Text: d.replies.AskCharacter}}, true
	case cmdShouldI:
		s.State = session.StateWaitingShouldI
		return []Action{ShowText{Text: d.replies.AskShouldI}}, true
	case cmdQuestion:
		s.State = session.StateWaitingQuestion
		return []Action{ShowText{Text: d.replies.AskQuestion}}, true
	case cmdDailyFortune:
		return d.randomAnswer(fortuneIDs, s), true
	case cmdEnterID:
		s.State = session.StateWaitingID
		return []Action{ShowText{Text: d.replies.AskID}}, true
	case cmdMenu:
		// Absorbed silently; the menu itself lives in the rich menu on the
		// chat platform side.
		return nil, true
	case cmdLottery:
		return d.lottery(s), true
	case cmdNext:
		return d.navigate(s, +1), true
	case cmdPrevious:
		return d.navigate(s, -1), true
	}
	return nil, false
}

func (d *Dispatcher) incense(ctx context.Context, userID string, now time.Time, s *session.Session) []Action {
	if d.ritualLimiter.Check(userID, now).Denied() {
		return []Action{ShowText{Text: d.replies.IncenseLimit}}
	}

	total, userCount, err := d.counter.Increment(ctx, userID)
	if err != nil && !errors.Is(err, counter.ErrPersist) {
		return d.internalFailure(s, err)
	}

	e, _, ok := d.catalog.ByID(incenseID)
	if !ok {
		return []Action{ShowText{Text: d.replies.NotFound}}
	}
	return []Action{
		ShowEntry{Entry: e},
		ShowText{Text: fmt.Sprintf(d.replies.IncenseCount, userCount, total)},
	}
}

// internalFailure converts an unexpected fault into the generic failure
// reply and resets the session, mirroring the top-level recover path.
func (d *Dispatcher) internalFailure(s *session.Session, err error) []Action {
	d.logger.Error("dispatch failed", "error", err)
	s.State = session.StateInit
	return []Action{ShowText{Text: d.replies.InternalError}}
}

func (d *Dispatcher) incenseRanking(ctx context.Context) []Action {
	rows := d.counter.TopN(d.cfg.RankingSize)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(d.replies.RankingHeader, d.cfg.RankingSize))
	sb.WriteString("\n")
	for i, row := range rows {
		name := d.replies.AnonymousUser
		if d.profiles != nil {
			if resolved, err := d.profiles.DisplayName(ctx, row.UserID); err == nil && strings.TrimSpace(resolved) != "" {
				name = resolved
			}
		}
		var emoji string
		switch i {
		case 0:
			emoji = "👑"
		case 1:
			emoji = "🥈"
		case 2:
			emoji = "🥉"
		default:
			emoji = "🙏"
		}
		sb.WriteString(fmt.Sprintf("%s 第%d名：%s - %d柱香\n", emoji, i+1, name, row.Count))
	}
	return []Action{ShowText{Text: strings.TrimRight(sb.String(), "\n")}}
}

func (d *Dispatcher) triviaSearch(ctx context.Context, term string) []Action {
	table, err := d.triviaTable(ctx)
	if err != nil {
		return []Action{ShowText{Text: d.replies.TriviaUnavailable}}
	}
	matches := table.Search(term)
	if len(matches) == 0 {
		return []Action{ShowText{Text: d.replies.TriviaNotFound}}
	}
	parts := make([]string, len(matches))
	for i, r := range matches {
		parts[i] = fmt.Sprintf("重點摘要：%s\n集數：%s\n首輪：%s\n二輪：%s\n三輪：%s\n四輪：%s\n五輪：%s",
			r.Summary, r.Episode, r.Rounds[0], r.Rounds[1], r.Rounds[2], r.Rounds[3], r.Rounds[4])
	}
	return []Action{ShowText{Text: strings.Join(parts, "\n\n")}}
}

func (d *Dispatcher) triviaList(ctx context.Context) []Action {
	table, err := d.triviaTable(ctx)
	if err != nil {
		return []Action{ShowText{Text: d.replies.TriviaUnavailable}}
	}
	var sb strings.Builder
	sb.WriteString(d.replies.TriviaListHeader)
	sb.WriteString("\n")
	for _, key := range table.Keys() {
		sb.WriteString("- ")
		sb.WriteString(key)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(d.replies.TriviaListFooter)
	return []Action{ShowText{Text: sb.String()}}
}

func (d *Dispatcher) triviaTable(ctx context.Context) (*trivia.Table, error) {
	if d.trivia == nil {
		return nil, trivia.ErrUnavailable
	}
	table, err := d.trivia.Table(ctx)
	if err != nil {
		d.logger.Warn("trivia lookup unavailable", "error", err)
		return nil, err
	}
	if table.Len() == 0 {
		return nil, trivia.ErrUnavailable
	}
	return table, nil
}

func (d *Dispatcher) characterSearch(name string, isGroup bool) []Action {
	if name == "" {
		return []Action{ShowText{Text: d.replies.AskCharacter}}
	}
	matches := d.catalog.ByCharacter(name)
	if len(matches) == 0 {
		return []Action{ShowText{Text: fmt.Sprintf(d.replies.CharacterNotFound, name)}}
	}
	return []Action{ShowList{
		Header:  fmt.Sprintf(d.replies.CharacterFoundHeader, name),
		Entries: matches,
		Footer:  d.replies.ListFooter,
		WithNav: !isGroup,
	}}
}

func (d *Dispatcher) keywordSearch(term string, s *session.Session) []Action {
	matches := d.catalog.SearchKeyword(term)
	if len(matches) == 0 {
		return []Action{ShowText{Text: d.replies.NotFound}}
	}
	s.State = session.StateWaitingID
	return []Action{ShowList{
		Header:  d.replies.KeywordFoundHeader,
		Entries: matches,
		Footer:  d.replies.ListFooter,
		WithNav: true,
	}}
}

func (d *Dispatcher) randomAnswer(ids []string, s *session.Session) []Action {
	if len(ids) == 0 {
		return []Action{ShowText{Text: d.replies.NotFound}}
	}
	id := ids[d.randFn(len(ids))]
	acts, ok := d.showByID(id, s)
	if !ok {
		return []Action{ShowText{Text: d.replies.NotFound}}
	}
	return acts
}

func (d *Dispatcher) lottery(s *session.Session) []Action {
	if d.catalog.Len() == 0 {
		return []Action{ShowText{Text: d.replies.NotFound}}
	}
	return d.showByIndex(d.randFn(d.catalog.Len()), s)
}

func (d *Dispatcher) navigate(s *session.Session, delta int) []Action {
	if s.LastIndex == session.NoIndex {
		return []Action{ShowText{Text: d.replies.NoMoreImages}}
	}
	target := s.LastIndex + delta
	if _, ok := d.catalog.At(target); !ok {
		return []Action{ShowText{Text: d.replies.NoMoreImages}}
	}
	return d.showByIndex(target, s)
}

func (d *Dispatcher) showByID(id string, s *session.Session) ([]Action, bool) {
	e, idx, ok := d.catalog.ByID(id)
	if !ok {
		return nil, false
	}
	s.LastIndex = idx
	return []Action{ShowEntry{Entry: e, WithNav: true}}, true
}

func (d *Dispatcher) showByIndex(idx int, s *session.Session) []Action {
	e, ok := d.catalog.At(idx)
	if !ok {
		return []Action{ShowText{Text: d.replies.NoMoreImages}}
	}
	s.LastIndex = idx
	return []Action{ShowEntry{Entry: e, WithNav: true}}
}
