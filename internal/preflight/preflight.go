package preflight

import (
	"context"

	"framecloak/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and key checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Work directory free space", cfg.Paths.WorkDir, MinFreeBytes(cfg)),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckKeyMaterial(cfg.Paths.KeyDir),
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

// MinFreeBytes is the free space a work directory needs for one upload: the
// input itself, its extracted frames and the lossless output are all held at
// once, so the budget is a multiple of the upload limit.
func MinFreeBytes(cfg *config.Config) uint64 {
	const factor = 8
	limit := cfg.MaxUploadBytes()
	if limit <= 0 {
		return 0
	}
	return uint64(limit) * factor
}
