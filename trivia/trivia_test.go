package trivia

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

const samplePage = `<html><body>
<h1>直播馬拉松</h1>
<table>
<tr><th>集數</th><th>重點摘要</th><th colspan="10">輪次</th></tr>
<tr>
<td>EP01</td><td>滴血驗親</td>
<td>1/1</td><td>10:00</td>
<td>1/2</td><td>12:00</td>
<td>1/3</td><td>14:00</td>
<td>1/4</td><td>16:00</td>
<td>1/5</td><td>18:00</td>
</tr>
<tr>
<td>EP02</td><td></td>
<td>2/1</td><td>10:00</td>
<td>2/2</td><td>12:00</td>
<td>2/3</td><td>14:00</td>
<td>2/4</td><td>16:00</td>
<td>2/5</td><td>18:00</td>
</tr>
<tr><td>EP03</td><td>太短的列</td><td>3/1</td></tr>
</table>
</body></html>`

func TestParseScheduleHTML(t *testing.T) {
	t.Parallel()

	records, err := parseScheduleHTML([]byte(samplePage))
	if err != nil {
		t.Fatalf("parseScheduleHTML() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("parseScheduleHTML() = %d records, want 1", len(records))
	}
	r := records[0]
	if r.Summary != "滴血驗親" || r.Episode != "EP01" {
		t.Fatalf("record = %+v", r)
	}
	if r.Rounds[0] != "1/1 10:00" || r.Rounds[4] != "1/5 18:00" {
		t.Fatalf("rounds = %v", r.Rounds)
	}
}

func TestParseScheduleHTMLNoTable(t *testing.T) {
	t.Parallel()

	_, err := parseScheduleHTML([]byte("<html><body><p>nothing</p></body></html>"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("parseScheduleHTML() error = %v, want ErrUnavailable", err)
	}
}

func TestTableSearchCaseInsensitive(t *testing.T) {
	t.Parallel()

	table := NewTable([]Record{
		{Summary: "滴血驗親"},
		{Summary: "Fight Night"},
	})
	if got := table.Search("fight"); len(got) != 1 {
		t.Fatalf("Search(fight) = %v, want one match", got)
	}
	if got := table.Search("驗親"); len(got) != 1 {
		t.Fatalf("Search(驗親) = %v, want one match", got)
	}
	if got := table.Search("miss"); len(got) != 0 {
		t.Fatalf("Search(miss) = %v, want empty", got)
	}
}

type fakeSource struct {
	table *Table
	err   error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context) (*Table, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func TestCachedSourceServesWithinTTL(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	src := &fakeSource{table: NewTable([]Record{{Summary: "one"}})}
	cache := NewCachedSource(CachedSourceOptions{
		Source: src,
		TTL:    time.Minute,
		Now:    func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		if _, err := cache.Table(context.Background()); err != nil {
			t.Fatalf("Table() error = %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("Fetch() calls = %d, want 1", src.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Table(context.Background()); err != nil {
		t.Fatalf("Table() after expiry error = %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("Fetch() calls = %d, want 2", src.calls)
	}
}

func TestCachedSourceLastKnownGood(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	src := &fakeSource{table: NewTable([]Record{{Summary: "one"}})}
	cache := NewCachedSource(CachedSourceOptions{
		Source: src,
		TTL:    time.Minute,
		Now:    func() time.Time { return now },
	})

	if _, err := cache.Table(context.Background()); err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	src.err = fmt.Errorf("%w: boom", ErrUnavailable)
	now = now.Add(2 * time.Minute)

	table, err := cache.Table(context.Background())
	if err != nil {
		t.Fatalf("Table() with failing source error = %v, want stale snapshot", err)
	}
	if table.Len() != 1 {
		t.Fatalf("stale snapshot Len() = %d, want 1", table.Len())
	}
}

func TestCachedSourceUnavailableWithoutSnapshot(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: fmt.Errorf("%w: down", ErrUnavailable)}
	cache := NewCachedSource(CachedSourceOptions{Source: src, TTL: time.Minute})

	_, err := cache.Table(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Table() error = %v, want ErrUnavailable", err)
	}
}

func TestScraperRequiresURL(t *testing.T) {
	t.Parallel()

	s := NewScraper("  ")
	_, err := s.Fetch(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Fetch() error = %v, want ErrUnavailable", err)
	}
	if !strings.Contains(err.Error(), "no page url") {
		t.Fatalf("Fetch() error = %v, want mention of missing url", err)
	}
}
