// Package trivia holds the marathon schedule lookup ("梗" table): a small
// dataset scraped from an external web page, keyed by a free-text summary.
// Unlike the image catalog it is refreshed periodically, so access goes
// through a caching source with a last-known-good fallback.
package trivia

import (
	"errors"
	"strings"
)

// ErrUnavailable reports that no trivia data could be obtained and no cached
// copy exists. Callers degrade to a "try again later" reply.
var ErrUnavailable = errors.New("trivia: data unavailable")

// RoundCount is the number of broadcast rounds tracked per entry.
const RoundCount = 5

// Record is one schedule row. Summary is the lookup key; Rounds holds the
// combined date/time text of each broadcast round in order.
type Record struct {
	Summary string
	Episode string
	Rounds  [RoundCount]string
}

// Table is an immutable snapshot of the scraped schedule, in document order.
type Table struct {
	records []Record
}

func NewTable(records []Record) *Table {
	t := &Table{records: make([]Record, len(records))}
	copy(t.records, records)
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Keys returns every summary in document order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, len(t.records))
	for i, r := range t.records {
		keys[i] = r.Summary
	}
	return keys
}

// Search returns every record whose summary contains term,
// case-insensitive, in document order.
func (t *Table) Search(term string) []Record {
	if t == nil {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	var out []Record
	for _, r := range t.records {
		if strings.Contains(strings.ToLower(r.Summary), needle) {
			out = append(out, r)
		}
	}
	return out
}
