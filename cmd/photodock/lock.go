package main

import (
	"fmt"

	"github.com/gofrs/flock"

	"photodock/internal/config"
)

// acquireStateLock takes the per-state-directory lock that keeps two ingests
// (or an ingest and a cleanup) from writing the same records concurrently.
func acquireStateLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another photodock run holds %s", cfg.LockPath())
	}
	return lock, nil
}
