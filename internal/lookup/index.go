// Package lookup builds the normalized filename-token index used to pair
// photos with records.
package lookup

import (
	"slices"
	"strings"

	"photodock/internal/records"
	"photodock/internal/textutil"
)

// Index maps normalized tokens to record identifiers. It is immutable after
// Build and safe for concurrent reads.
type Index struct {
	tokens map[string]string
	// omitted counts records with no non-empty candidate field.
	omitted int
	// shadowed lists records whose primary token was already claimed.
	shadowed []string
}

// Build indexes recs using the first non-empty value among fields, in order,
// for each record. Both the normalized value and its extension-stripped form
// point at the record. When two records claim the same token the first one
// in iteration order keeps it.
func Build(recs []records.Record, fields []string) *Index {
	idx := &Index{tokens: make(map[string]string, len(recs)*2)}
	for _, rec := range recs {
		value, ok := candidateValue(rec, fields)
		if !ok {
			idx.omitted++
			continue
		}
		token := textutil.Normalize(value)
		if !idx.claim(token, rec.ID) {
			idx.shadowed = append(idx.shadowed, rec.ID)
		}
		idx.claim(textutil.StripExtension(token), rec.ID)
	}
	return idx
}

// claim reports false when token belongs to a different record.
func (i *Index) claim(token, id string) bool {
	if token == "" {
		return true
	}
	if owner, taken := i.tokens[token]; taken {
		return owner == id
	}
	i.tokens[token] = id
	return true
}

func candidateValue(rec records.Record, fields []string) (string, bool) {
	for _, field := range fields {
		if value := strings.TrimSpace(rec.Fields[field]); value != "" {
			return value, true
		}
	}
	return "", false
}

// Lookup returns the record claiming token. The token must already be
// normalized.
func (i *Index) Lookup(token string) (string, bool) {
	if i == nil {
		return "", false
	}
	id, ok := i.tokens[token]
	return id, ok
}

// Len reports the number of distinct tokens.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.tokens)
}

// Omitted reports how many records had no usable candidate field.
func (i *Index) Omitted() int {
	if i == nil {
		return 0
	}
	return i.omitted
}

// Shadowed returns the ids of records that lost their token to an earlier
// record, in build order. Those records can never be matched.
func (i *Index) Shadowed() []string {
	if i == nil {
		return nil
	}
	return slices.Clone(i.shadowed)
}

// Keys returns the indexed tokens in sorted order.
func (i *Index) Keys() []string {
	if i == nil {
		return nil
	}
	keys := make([]string, 0, len(i.tokens))
	for k := range i.tokens {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
