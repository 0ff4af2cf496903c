package pgstore

import (
	"strings"
	"testing"

	"photodock/internal/config"
	"photodock/internal/records"
)

func testMapping() config.Records {
	return config.Records{
		Table:               "school.students",
		IDColumn:            "student_id",
		FieldsColumn:        "attrs",
		PhotoURLColumn:      "photo",
		PhotoPublicIDColumn: "photo key",
	}
}

func TestQueriesQuoteIdentifiers(t *testing.T) {
	q, err := newQueries(testMapping())
	if err != nil {
		t.Fatalf("newQueries: %v", err)
	}
	if q.table != `"school"."students"` {
		t.Fatalf("unexpected table identifier %s", q.table)
	}
	if q.photoPublic != `"photo key"` {
		t.Fatalf("unexpected column identifier %s", q.photoPublic)
	}
	update := q.updatePhoto()
	want := `UPDATE "school"."students" SET "photo" = $1, "photo key" = $2 WHERE "student_id"::text = $3`
	if update != want {
		t.Fatalf("unexpected update sql:\n got %s\nwant %s", update, want)
	}
	if !strings.Contains(q.upsert(), `ON CONFLICT ("student_id")`) {
		t.Fatalf("upsert missing conflict target: %s", q.upsert())
	}
}

func TestQueriesRejectEmptyTable(t *testing.T) {
	cfg := testMapping()
	cfg.Table = "school."
	if _, err := newQueries(cfg); err == nil {
		t.Fatal("expected error for empty table segment")
	}
	cfg.Table = ""
	if _, err := newQueries(cfg); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestListQueryFilters(t *testing.T) {
	q, err := newQueries(config.Records{Table: "records"})
	if err != nil {
		t.Fatalf("newQueries: %v", err)
	}

	query, args := q.list(records.Filter{})
	if strings.Contains(query, "WHERE") || len(args) != 0 {
		t.Fatalf("expected unfiltered query, got %s %v", query, args)
	}

	query, args = q.list(records.Filter{IDs: []string{"1", "2"}, MissingPhoto: true, Limit: 5})
	if !strings.Contains(query, `"id"::text = ANY($1)`) {
		t.Fatalf("expected id filter, got %s", query)
	}
	if !strings.Contains(query, `("photo_url" IS NULL OR "photo_url" = '')`) {
		t.Fatalf("expected missing photo filter, got %s", query)
	}
	if !strings.HasSuffix(query, "LIMIT $2") {
		t.Fatalf("expected limit placeholder, got %s", query)
	}
	if len(args) != 2 || args[1] != 5 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestDecodeFieldsFlattensValues(t *testing.T) {
	fields, err := decodeFields([]byte(`{"roll_no": 101, "name": "Alice", "active": true, "tags": ["a"], "gone": null}`))
	if err != nil {
		t.Fatalf("decodeFields: %v", err)
	}
	if fields["roll_no"] != "101" || fields["name"] != "Alice" || fields["active"] != "true" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["tags"] != `["a"]` {
		t.Fatalf("expected nested value kept as json, got %q", fields["tags"])
	}
	if _, ok := fields["gone"]; ok {
		t.Fatal("expected null value dropped")
	}

	empty, err := decodeFields(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map for nil, got %v %v", empty, err)
	}
}
