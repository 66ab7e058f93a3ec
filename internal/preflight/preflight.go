package preflight

import (
	"context"
	"strings"

	"autosub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that gate a subtitle run: the working
// directories and the external binaries. Correction is checked separately
// because its failures never abort a run.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
	}
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: depDetail(status.Command, status.Detail)})
	}
	return results
}

// CheckCorrection evaluates the correction stage from config and connectivity.
// The LLM is only contacted when correction is enabled and a key was resolved.
// A missing key is reported but counts as passing: runs degrade to the raw
// transcription instead of failing.
func CheckCorrection(ctx context.Context, cfg *config.Config, apiKey string) Result {
	const name = "Correction LLM"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Correction.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Passed: true, Detail: "No API key (correction will be skipped)"}
	}
	llmCfg := cfg.GetLLM()
	llmCfg.APIKey = strings.TrimSpace(apiKey)
	return CheckLLM(ctx, name, llmCfg)
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

func depDetail(command, detail string) string {
	switch {
	case command == "":
		return detail
	case detail == "":
		return command
	default:
		return command + " (" + detail + ")"
	}
}
