package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"photodock/internal/config"
	"photodock/internal/logging"
	"photodock/internal/pgstore"
	"photodock/internal/records"
	"photodock/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger builds the command logger. Commands writing to the real stderr also
// append to the log file; redirected output (tests, pipes set by callers) gets
// a logger bound to that writer only.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	errOut := cmd.ErrOrStderr()
	if errOut == os.Stderr {
		return logging.NewFromConfig(cfg)
	}
	return logging.NewWithWriter(errOut, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}), nil
}

// recordStore is what commands need from the configured record store.
type recordStore interface {
	records.Store
	records.Importer
}

// backends holds the stores opened for one command. history is always the
// local SQLite store; records is the same store unless the postgres driver is
// configured.
type backends struct {
	history *store.Store
	records recordStore
	pg      *pgstore.Store
}

func (c *commandContext) openBackends(ctx context.Context) (*backends, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	history, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	b := &backends{history: history, records: history}
	if cfg.Records.Driver == config.RecordsDriverPostgres {
		pg, err := pgstore.Open(ctx, cfg.Records)
		if err != nil {
			history.Close()
			return nil, err
		}
		b.pg = pg
		b.records = pg
	}
	return b, nil
}

func (b *backends) Close() {
	if b == nil {
		return
	}
	if b.pg != nil {
		b.pg.Close()
	}
	if b.history != nil {
		_ = b.history.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
