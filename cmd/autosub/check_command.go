package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autosub/internal/credentials"
	"autosub/internal/preflight"
)

type checkRow struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var skipRecognizer bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, ffmpeg, faster-whisper and the correction endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			var rows []checkRow
			for _, r := range preflight.RunAll(cfg) {
				rows = append(rows, checkRow{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
			}
			if !skipRecognizer {
				r := preflight.CheckRecognizer(cmd.Context(), cfg.Transcription.Command)
				rows = append(rows, checkRow{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
			}

			apiKey, _, keyErr := credentials.ResolveAPIKey(cfg.Correction.APIKey, ctx.credentialStore(cfg))
			correction := preflight.CheckCorrection(cmd.Context(), cfg, apiKey)
			if keyErr != nil {
				correction = preflight.Result{Name: correction.Name, Detail: fmt.Sprintf("credential store unreadable: %v", keyErr)}
			}
			// Correction failures degrade runs instead of failing them.
			rows = append(rows, checkRow{Name: correction.Name, Passed: correction.Passed, Optional: true, Detail: correction.Detail})

			if jsonOutput {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else {
				renderCheckRows(cmd, rows)
			}

			failed := 0
			for _, row := range rows {
				if !row.Passed && !row.Optional {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d required check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&skipRecognizer, "skip-recognizer", false, "Skip the faster-whisper import check")
	return cmd
}

func renderCheckRows(cmd *cobra.Command, rows []checkRow) {
	headers := []string{"Check", "Status", "Detail"}
	body := make([][]string, 0, len(rows))
	for _, row := range rows {
		body = append(body, []string{row.Name, statusKindLabel(checkKind(row.Passed, row.Optional)), row.Detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, body, []columnAlignment{alignLeft, alignLeft, alignLeft}))
}
