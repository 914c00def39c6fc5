// Package catalog holds the meme image catalog: an ordered, read-only index
// of entries loaded once at startup. The load order of the catalog file
// defines the index space used for next/previous navigation and random draws,
// so the JSON document order is preserved explicitly.
package catalog

import (
	"regexp"
	"strings"
)

// Entry is one catalog item. ID is stable and never reassigned ("a" plus a
// zero-padded sequence); Name doubles as the catalog's primary key.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	Character   string `json:"character,omitempty"`
}

var idPattern = regexp.MustCompile(`^a\d+$`)

// LooksLikeID reports whether text matches the entry id shape (prefix letter
// followed only by digits). Matching is done on the lowercased text.
func LooksLikeID(text string) bool {
	return idPattern.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

// Index is an immutable ordered view over the catalog. All methods are pure
// reads; a nil or empty index answers every query with no results.
type Index struct {
	entries []Entry
	byID    map[string]int
}

func NewIndex(entries []Entry) *Index {
	ix := &Index{
		entries: make([]Entry, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	copy(ix.entries, entries)
	for i, e := range ix.entries {
		id := strings.ToLower(strings.TrimSpace(e.ID))
		if id == "" {
			continue
		}
		if _, exists := ix.byID[id]; !exists {
			ix.byID[id] = i
		}
	}
	return ix
}

func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// At returns the entry at position i in catalog order.
func (ix *Index) At(i int) (Entry, bool) {
	if ix == nil || i < 0 || i >= len(ix.entries) {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// ByID resolves an entry id (case-insensitive) to the entry and its position.
func (ix *Index) ByID(id string) (Entry, int, bool) {
	if ix == nil {
		return Entry{}, 0, false
	}
	i, ok := ix.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Entry{}, 0, false
	}
	return ix.entries[i], i, true
}

// SearchKeyword returns every entry whose name or description contains term,
// case-insensitive, in catalog order.
func (ix *Index) SearchKeyword(term string) []Entry {
	if ix == nil {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	var out []Entry
	for _, e := range ix.entries {
		if strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle) {
			out = append(out, e)
		}
	}
	return out
}

// ByCharacter returns every entry whose character field equals name,
// case-insensitive, in catalog order.
func (ix *Index) ByCharacter(name string) []Entry {
	if ix == nil {
		return nil
	}
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}
	var out []Entry
	for _, e := range ix.entries {
		if e.Character != "" && strings.ToLower(e.Character) == want {
			out = append(out, e)
		}
	}
	return out
}
