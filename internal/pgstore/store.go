package pgstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photodock/internal/config"
	"photodock/internal/records"
	"photodock/internal/services"
)

// Store is a records.Store backed by a Postgres table.
type Store struct {
	pool *pgxpool.Pool
	q    queries
}

var _ records.Store = (*Store)(nil)

// Open connects to cfg.DSN and verifies the connection.
func Open(ctx context.Context, cfg config.Records) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, services.Wrap(services.ErrConfiguration, "records", "open", "records.dsn is required for the postgres driver", nil)
	}
	q, err := newQueries(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "records", "open", "invalid table mapping", err)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "records", "open", "parse dsn", err)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "records", "open", "create pool", err)
	}
	st := &Store{pool: pool, q: q}
	if err := st.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

// Close releases pooled connections.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return services.Wrap(services.ErrTransient, "records", "ping", "postgres unreachable", err)
	}
	return nil
}

// EnsureTable creates the mapped table when it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, s.q.createTable()); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// List returns records narrowed by filter, ordered by id.
func (s *Store) List(ctx context.Context, filter records.Filter) ([]records.Record, error) {
	query, args := s.q.list(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		var (
			id       string
			raw      []byte
			photoURL *string
			publicID *string
		)
		if err := rows.Scan(&id, &raw, &photoURL, &publicID); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode fields for %q: %w", id, err)
		}
		out = append(out, records.Record{
			ID:            id,
			Fields:        fields,
			PhotoURL:      deref(photoURL),
			PhotoPublicID: deref(publicID),
		})
	}
	return out, rows.Err()
}

// UpdatePhotoReference writes url and publicID against id. Missing ids return
// services.ErrNotFound.
func (s *Store) UpdatePhotoReference(ctx context.Context, id, url, publicID string) error {
	tag, err := s.pool.Exec(ctx, s.q.updatePhoto(), nullable(url), nullable(publicID), id)
	if err != nil {
		return fmt.Errorf("update photo reference for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return services.Wrap(services.ErrNotFound, "records", "update photo", fmt.Sprintf("record %q", id), nil)
	}
	return nil
}

// Upsert inserts or replaces record fields in one batch round trip.
func (s *Store) Upsert(ctx context.Context, recs []records.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	stmt := s.q.upsert()
	batch := &pgx.Batch{}
	for _, rec := range recs {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			return 0, services.Wrap(services.ErrValidation, "records", "upsert", "record without id", nil)
		}
		encoded, err := encodeFields(rec.Fields)
		if err != nil {
			return 0, fmt.Errorf("encode fields for %q: %w", id, err)
		}
		batch.Queue(stmt, id, encoded, nullable(rec.PhotoURL), nullable(rec.PhotoPublicID))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	written := 0
	for range recs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("upsert records: %w", err)
		}
		written++
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}

// decodeFields flattens a JSONB object into string values. Numbers keep their
// literal form so "101" and 101 index the same way.
func decodeFields(raw []byte) (map[string]string, error) {
	fields := map[string]string{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = fmt.Sprint(val)
		default:
			nested, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			fields[k] = string(nested)
		}
	}
	return fields, nil
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
