// Package preflight verifies the runtime environment before the daemon
// starts processing packages: directory access, media tool binaries, and
// configured platform endpoints.
package preflight

import (
	"context"

	"packflow/internal/config"
	"packflow/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Hot folder", cfg.Paths.IncomingDir),
		CheckDirectoryAccess("Working directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Public directory", cfg.Paths.PublicDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: status.Detail,
		})
	}

	for _, name := range cfg.PlatformNames() {
		entry := cfg.Platforms[name]
		if entry.URL == "" {
			// Local platforms publish into the public directory, which is
			// already checked above.
			continue
		}
		results = append(results, CheckPlatform(ctx, name, entry.URL, entry.APIKey))
	}

	return results
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out
// to. Both the daemon and the CLI check command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaTools(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}
