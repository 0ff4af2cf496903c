package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"photodock/internal/services"
)

const idHeader = "id"

// ParseCSV reads records from r. The header row must contain an "id" column;
// every other column becomes a field keyed by its header. Empty cells are
// omitted from Fields. Rows without an id are rejected.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "records", "parse csv", "read header", err)
	}

	idCol := -1
	names := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		names[i] = name
		if strings.EqualFold(name, idHeader) && idCol < 0 {
			idCol = i
		}
	}
	if idCol < 0 {
		return nil, services.Wrap(services.ErrValidation, "records", "parse csv", `header has no "id" column`, nil)
	}

	var out []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "records", "parse csv", fmt.Sprintf("line %d", line), err)
		}
		if idCol >= len(row) || strings.TrimSpace(row[idCol]) == "" {
			return nil, services.Wrap(services.ErrValidation, "records", "parse csv", fmt.Sprintf("line %d: missing id", line), nil)
		}
		rec := Record{ID: strings.TrimSpace(row[idCol]), Fields: make(map[string]string, len(row)-1)}
		for i, cell := range row {
			if i == idCol || i >= len(names) || names[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				rec.Fields[names[i]] = cell
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// ImportCSV parses r and upserts the rows into dst, returning the number of
// records written.
func ImportCSV(ctx context.Context, dst Importer, r io.Reader) (int, error) {
	recs, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	return dst.Upsert(ctx, recs)
}
