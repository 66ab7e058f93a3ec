package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autosub/internal/config"
	"autosub/internal/subtitles"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <subtitle.srt>",
		Short:       "Check an SRT file for timing and ordering problems",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			segs, err := subtitles.ParseFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File: %s\n", path)
			fmt.Fprintf(out, "Cues: %d\n", len(segs))
			if len(segs) > 0 {
				fmt.Fprintf(out, "Span: %s --> %s\n",
					subtitles.FormatTimestamp(segs[0].Start),
					subtitles.FormatTimestamp(segs[len(segs)-1].End))
			}
			problems := subtitles.ValidateContent(segs)
			if len(problems) == 0 {
				fmt.Fprintln(out, "Subtitle file valid")
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return fmt.Errorf("%d subtitle problem(s) found", len(problems))
		},
	}
}
