package pgstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"photodock/internal/config"
	"photodock/internal/records"
)

// queries holds SQL rendered once from the configured table mapping.
type queries struct {
	table       string
	id          string
	fields      string
	photoURL    string
	photoPublic string
}

func newQueries(cfg config.Records) (queries, error) {
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		return queries{}, fmt.Errorf("records.table is required")
	}
	parts := strings.Split(table, ".")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return queries{}, fmt.Errorf("records.table %q has an empty segment", table)
		}
	}
	col := func(name, fallback string) string {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fallback
		}
		return pgx.Identifier{name}.Sanitize()
	}
	return queries{
		table:       pgx.Identifier(parts).Sanitize(),
		id:          col(cfg.IDColumn, "id"),
		fields:      col(cfg.FieldsColumn, "fields"),
		photoURL:    col(cfg.PhotoURLColumn, "photo_url"),
		photoPublic: col(cfg.PhotoPublicIDColumn, "photo_public_id"),
	}, nil
}

func (q queries) selectColumns() string {
	return strings.Join([]string{q.id + "::text", q.fields, q.photoURL, q.photoPublic}, ", ")
}

// list renders the SELECT for filter with positional arguments.
func (q queries) list(filter records.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		clauses = append(clauses, q.id+"::text = ANY($"+strconv.Itoa(len(args))+")")
	}
	if filter.MissingPhoto {
		clauses = append(clauses, "("+q.photoURL+" IS NULL OR "+q.photoURL+" = '')")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.selectColumns())
	b.WriteString(" FROM ")
	b.WriteString(q.table)
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(q.id)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func (q queries) updatePhoto() string {
	return fmt.Sprintf("UPDATE %s SET %s = $1, %s = $2 WHERE %s::text = $3",
		q.table, q.photoURL, q.photoPublic, q.id)
}

func (q queries) upsert() string {
	return fmt.Sprintf(`INSERT INTO %[1]s AS t (%[2]s, %[3]s, %[4]s, %[5]s)
VALUES ($1, $2::jsonb, $3, $4)
ON CONFLICT (%[2]s) DO UPDATE SET
    %[3]s = EXCLUDED.%[3]s,
    %[4]s = COALESCE(EXCLUDED.%[4]s, t.%[4]s),
    %[5]s = COALESCE(EXCLUDED.%[5]s, t.%[5]s)`,
		q.table, q.id, q.fields, q.photoURL, q.photoPublic)
}

func (q queries) createTable() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s text PRIMARY KEY,
    %s jsonb NOT NULL DEFAULT '{}'::jsonb,
    %s text,
    %s text
)`, q.table, q.id, q.fields, q.photoURL, q.photoPublic)
}
