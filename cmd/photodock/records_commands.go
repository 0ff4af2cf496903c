package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"photodock/internal/config"
	"photodock/internal/records"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and load the record store",
	}
	recordsCmd.AddCommand(newRecordsImportCommand(ctx))
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	return recordsCmd
}

func newRecordsImportCommand(ctx *commandContext) *cobra.Command {
	var createTable bool

	cmd := &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Upsert records from a CSV file whose first column is id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()

			b, err := ctx.openBackends(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if createTable {
				if b.pg == nil {
					return fmt.Errorf("--create-table requires the %s records driver", config.RecordsDriverPostgres)
				}
				if err := b.pg.EnsureTable(cmd.Context()); err != nil {
					return err
				}
			}

			n, err := records.ImportCSV(cmd.Context(), b.records, file)
			if err != nil {
				return err
			}
			result := map[string]any{"imported": n, "driver": cfg.Records.Driver}
			return ctx.emit(cmd, result, func(out io.Writer) {
				fmt.Fprintf(out, "Imported %d records into the %s store\n", n, cfg.Records.Driver)
			})
		},
	}
	cmd.Flags().BoolVar(&createTable, "create-table", false, "Create the postgres records table when missing")
	return cmd
}

type recordView struct {
	ID            string            `json:"id"`
	Fields        map[string]string `json:"fields"`
	PhotoURL      string            `json:"photo_url,omitempty"`
	PhotoPublicID string            `json:"photo_public_id,omitempty"`
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var missingPhoto bool
	var limit int
	var ids []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records and their photo references",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackends(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			recs, err := b.records.List(cmd.Context(), records.Filter{
				IDs:          ids,
				MissingPhoto: missingPhoto,
				Limit:        limit,
			})
			if err != nil {
				return err
			}

			views := make([]recordView, 0, len(recs))
			for _, r := range recs {
				views = append(views, recordView{ID: r.ID, Fields: r.Fields, PhotoURL: r.PhotoURL, PhotoPublicID: r.PhotoPublicID})
			}
			return ctx.emit(cmd, views, func(out io.Writer) {
				if len(recs) == 0 {
					fmt.Fprintln(out, "No records found")
					return
				}
				fmt.Fprintln(out, renderTable([]column{right("ID"), left("Fields"), left("Photo")}, recordRows(recs)))
				fmt.Fprintf(out, "%d record(s)\n", len(recs))
			})
		},
	}
	cmd.Flags().BoolVar(&missingPhoto, "missing-photo", false, "Only list records without a photo")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to list")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Only list the given record ids (repeatable)")
	return cmd
}

func recordRows(recs []records.Record) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.ID, truncate(formatFields(r.Fields), 60), dashIfEmpty(r.PhotoURL)})
	}
	return rows
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, " ")
}
