package matcher_test

import (
	"testing"

	"photodock/internal/lookup"
	"photodock/internal/matcher"
	"photodock/internal/media"
	"photodock/internal/records"
)

func scenarioIndex() *lookup.Index {
	recs := []records.Record{
		{ID: "A", Fields: map[string]string{"roll_no": "101"}},
		{ID: "B", Fields: map[string]string{"roll_no": "102"}},
	}
	return lookup.Build(recs, []string{"photo", "roll_no"})
}

func TestMatchCaseInsensitiveScenario(t *testing.T) {
	m := matcher.New(scenarioIndex(), false)
	items := []media.Item{
		media.NewItem("101.jpg", nil),
		media.NewItem("102.JPG", nil),
		media.NewItem("unknown.png", nil),
	}
	got := m.MatchAll(items)
	want := []string{"A", "B", ""}
	if len(got) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].RecordID != want[i] {
			t.Fatalf("%s matched %q, want %q", items[i].Filename, got[i].RecordID, want[i])
		}
		if got[i].Item.Filename != items[i].Filename {
			t.Fatalf("match %d lost its item", i)
		}
	}
	matched, unmatched := matcher.Count(got)
	if matched != 2 || unmatched != 1 {
		t.Fatalf("unexpected counts %d/%d", matched, unmatched)
	}
}

func TestMatchFullNameBeforeStripped(t *testing.T) {
	recs := []records.Record{
		{ID: "with-ext", Fields: map[string]string{"photo": "Alice.png"}},
		{ID: "bare", Fields: map[string]string{"photo": "bob"}},
	}
	m := matcher.New(lookup.Build(recs, []string{"photo"}), false)

	cases := map[string]string{
		"class 5/ALICE.PNG":  "with-ext",
		"alice.jpg":          "with-ext",
		`scans\Bob.jpeg`:     "bare",
		"bob":                "bare",
		"carol.jpg":          "",
		"__nested/alice.txt": "with-ext",
	}
	for name, want := range cases {
		if got := m.Match(media.NewItem(name, nil)); got.RecordID != want {
			t.Fatalf("Match(%q) = %q, want %q", name, got.RecordID, want)
		}
	}
}

func TestFastModeNeverMatches(t *testing.T) {
	m := matcher.New(scenarioIndex(), true)
	for _, name := range []string{"101.jpg", "102.JPG", "unknown.png"} {
		if got := m.Match(media.NewItem(name, nil)); got.Matched() {
			t.Fatalf("fast mode matched %q to %q", name, got.RecordID)
		}
	}
}

func TestKey(t *testing.T) {
	if got := matcher.Key(" Class A/Sub/102.JPG"); got != "102.jpg" {
		t.Fatalf("Key = %q", got)
	}
}
