package main

import (
	"testing"
)

func TestHistoryEmptyAndTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, nil, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, env.configPath, nil, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	requireContains(t, out, "[]")

	if _, _, err := runCLI(t, env.configPath, nil, "run", env.video, "--no-correct"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err = runCLI(t, env.configPath, nil, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "lecture.mp4")
	requireContains(t, out, "completed")
}

func TestHistoryPruneKeepsRecentRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, nil, "run", env.video, "--no-correct"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, nil, "history", "prune", "--older-than", "24h")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 0 run(s)")
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, nil, "history", "--limit", "0"); err == nil {
		t.Fatal("expected error for zero limit")
	}
}
