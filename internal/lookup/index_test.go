package lookup_test

import (
	"fmt"
	"reflect"
	"testing"

	"photodock/internal/lookup"
	"photodock/internal/records"
)

func rec(id string, fields map[string]string) records.Record {
	return records.Record{ID: id, Fields: fields}
}

func TestBuildUsesFirstNonEmptyCandidate(t *testing.T) {
	recs := []records.Record{
		rec("A", map[string]string{"photo": "Alice.JPG", "roll_no": "101"}),
		rec("B", map[string]string{"photo": "  ", "roll_no": "102"}),
		rec("C", map[string]string{"name": "nobody"}),
	}
	idx := lookup.Build(recs, []string{"photo", "roll_no"})

	cases := map[string]string{"alice.jpg": "A", "alice": "A", "102": "B"}
	for token, want := range cases {
		if got, ok := idx.Lookup(token); !ok || got != want {
			t.Fatalf("Lookup(%q) = %q,%v want %q", token, got, ok, want)
		}
	}
	if _, ok := idx.Lookup("101"); ok {
		t.Fatal("roll_no should be ignored when photo field is present")
	}
	if idx.Omitted() != 1 {
		t.Fatalf("expected 1 omitted record, got %d", idx.Omitted())
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 tokens, got %d (%v)", idx.Len(), idx.Keys())
	}
}

func TestBuildFirstWriterWins(t *testing.T) {
	recs := []records.Record{
		rec("first", map[string]string{"roll_no": "101"}),
		rec("second", map[string]string{"roll_no": " 101 "}),
		rec("third", map[string]string{"roll_no": "101.jpg"}),
	}
	idx := lookup.Build(recs, []string{"roll_no"})
	if got, _ := idx.Lookup("101"); got != "first" {
		t.Fatalf("expected first claimant to keep 101, got %q", got)
	}
	if got, _ := idx.Lookup("101.jpg"); got != "third" {
		t.Fatalf("expected third record to own 101.jpg, got %q", got)
	}
	if got := idx.Shadowed(); !reflect.DeepEqual(got, []string{"second"}) {
		t.Fatalf("Shadowed() = %v, want [second]", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	recs := make([]records.Record, 0, 50)
	for i := range 50 {
		recs = append(recs, rec(fmt.Sprintf("r%d", i), map[string]string{"roll_no": fmt.Sprintf("%d.png", i%20)}))
	}
	fields := []string{"photo", "roll_no"}
	a := lookup.Build(recs, fields)
	b := lookup.Build(recs, fields)
	if !reflect.DeepEqual(a.Keys(), b.Keys()) {
		t.Fatal("keys differ between builds")
	}
	for _, k := range a.Keys() {
		x, _ := a.Lookup(k)
		y, _ := b.Lookup(k)
		if x != y {
			t.Fatalf("token %q maps to %q then %q", k, x, y)
		}
	}
}

func TestNilIndex(t *testing.T) {
	var idx *lookup.Index
	if _, ok := idx.Lookup("x"); ok || idx.Len() != 0 || idx.Keys() != nil {
		t.Fatal("nil index should behave as empty")
	}
}
