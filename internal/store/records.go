package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"photodock/internal/records"
	"photodock/internal/services"
)

const recordColumns = "id, fields_json, photo_url, photo_public_id"

var _ records.Store = (*Store)(nil)

// List returns records ordered by id, narrowed by filter.
func (s *Store) List(ctx context.Context, filter records.Filter) ([]records.Record, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if len(filter.IDs) > 0 {
		clauses = append(clauses, "id IN ("+makePlaceholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.MissingPhoto {
		clauses = append(clauses, "(photo_url IS NULL OR photo_url = '')")
	}

	query := "SELECT " + recordColumns + " FROM records"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get fetches a single record. Missing ids return services.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (records.Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+recordColumns+" FROM records WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, services.Wrap(services.ErrNotFound, "records", "get", fmt.Sprintf("record %q", id), nil)
	}
	if err != nil {
		return records.Record{}, fmt.Errorf("get record %q: %w", id, err)
	}
	return rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// UpdatePhotoReference stores url and publicID against the record. Missing
// ids return services.ErrNotFound.
func (s *Store) UpdatePhotoReference(ctx context.Context, id, url, publicID string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE records SET photo_url = ?, photo_public_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nullableString(url), nullableString(publicID), id,
	)
	if err != nil {
		return fmt.Errorf("update photo reference for %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update photo reference for %q: %w", id, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "records", "update photo", fmt.Sprintf("record %q", id), nil)
	}
	return nil
}

// Upsert inserts new records and replaces the fields of existing ones. Photo
// references on existing rows are kept unless the incoming record carries one.
func (s *Store) Upsert(ctx context.Context, recs []records.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	written := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		written = 0
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (id, fields_json, photo_url, photo_public_id)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    fields_json = excluded.fields_json,
    photo_url = COALESCE(excluded.photo_url, records.photo_url),
    photo_public_id = COALESCE(excluded.photo_public_id, records.photo_public_id),
    updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range recs {
			id := strings.TrimSpace(rec.ID)
			if id == "" {
				return services.Wrap(services.ErrValidation, "records", "upsert", "record without id", nil)
			}
			fields := rec.Fields
			if fields == nil {
				fields = map[string]string{}
			}
			encoded, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("encode fields for %q: %w", id, err)
			}
			if _, err := stmt.ExecContext(ctx, id, string(encoded), nullableString(rec.PhotoURL), nullableString(rec.PhotoPublicID)); err != nil {
				return fmt.Errorf("upsert record %q: %w", id, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (records.Record, error) {
	var (
		id       string
		fields   sql.NullString
		photoURL sql.NullString
		publicID sql.NullString
	)
	if err := scanner.Scan(&id, &fields, &photoURL, &publicID); err != nil {
		return records.Record{}, err
	}
	rec := records.Record{
		ID:            id,
		Fields:        map[string]string{},
		PhotoURL:      photoURL.String,
		PhotoPublicID: publicID.String,
	}
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &rec.Fields); err != nil {
			return records.Record{}, fmt.Errorf("decode fields for %q: %w", id, err)
		}
	}
	return rec, nil
}
