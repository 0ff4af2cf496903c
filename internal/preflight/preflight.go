package preflight

import (
	"context"

	"photodock/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	// Assets before records: opening the local record store creates missing
	// state directories, including the local asset root.
	results = append(results, CheckAssets(ctx, cfg.Assets))
	results = append(results, CheckRecords(ctx, cfg))

	if cfg.Detection.Enabled {
		results = append(results, CheckDetection(ctx, cfg.Detection))
	}
	if cfg.Background.URL != "" {
		results = append(results, CheckEndpoint(ctx, "Background removal", cfg.Background.URL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
