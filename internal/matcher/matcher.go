// Package matcher pairs media items with records through a lookup index.
package matcher

import (
	"photodock/internal/lookup"
	"photodock/internal/media"
	"photodock/internal/textutil"
)

// Match pairs one media item with at most one record. An empty RecordID means
// no record correlates.
type Match struct {
	Item     media.Item
	RecordID string
}

// Matched reports whether a record was found.
func (m Match) Matched() bool { return m.RecordID != "" }

// Matcher resolves media items against an immutable index. It never touches
// the asset or record stores.
type Matcher struct {
	index    *lookup.Index
	fastMode bool
}

// New returns a Matcher. In fast mode every item is left unmatched without
// consulting the index.
func New(index *lookup.Index, fastMode bool) *Matcher {
	return &Matcher{index: index, fastMode: fastMode}
}

// Key normalizes an item filename the same way record values are normalized
// when the index is built. Directory prefixes from the archive are dropped.
func Key(filename string) string {
	return textutil.Normalize(textutil.BaseName(filename))
}

// Match resolves a single item: the full normalized name first, then the
// extension-stripped name.
func (m *Matcher) Match(item media.Item) Match {
	if m.fastMode {
		return Match{Item: item}
	}
	key := Key(item.Filename)
	if id, ok := m.index.Lookup(key); ok {
		return Match{Item: item, RecordID: id}
	}
	if stripped := textutil.StripExtension(key); stripped != key {
		if id, ok := m.index.Lookup(stripped); ok {
			return Match{Item: item, RecordID: id}
		}
	}
	return Match{Item: item}
}

// MatchAll resolves items in order, producing exactly one Match per item.
func (m *Matcher) MatchAll(items []media.Item) []Match {
	out := make([]Match, len(items))
	for i, item := range items {
		out[i] = m.Match(item)
	}
	return out
}

// Count returns the number of matched and unmatched entries in matches.
func Count(matches []Match) (matched, unmatched int) {
	for _, m := range matches {
		if m.Matched() {
			matched++
		} else {
			unmatched++
		}
	}
	return matched, unmatched
}
