package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"autosub/internal/credentials"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored correction API key",
	}
	authCmd.AddCommand(newAuthSetCommand(ctx))
	authCmd.AddCommand(newAuthStatusCommand(ctx))
	authCmd.AddCommand(newAuthClearCommand(ctx))
	return authCmd
}

func newAuthSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the Gemini API key (read from the terminal without echo, or stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			key, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Gemini API key: ")
			if err != nil {
				return err
			}
			if key == "" {
				return errors.New("no API key provided")
			}
			store := ctx.credentialStore(cfg)
			if err := store.Set(credentials.Service, credentials.APIKeyKey, key); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key %s in %s\n", credentials.Mask(key), store.Path())
			return nil
		},
	}
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which API key correction will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			key, source, err := credentials.ResolveAPIKey(cfg.Correction.APIKey, ctx.credentialStore(cfg))
			if err != nil {
				return fmt.Errorf("read credential store: %w", err)
			}
			if key == "" {
				fmt.Fprintln(out, "No API key configured; correction will be skipped")
				fmt.Fprintln(out, "Run `autosub auth set` or export GEMINI_API_KEY")
				return nil
			}
			fmt.Fprintf(out, "API key: %s (source: %s)\n", credentials.Mask(key), source)
			if !cfg.Correction.Enabled {
				fmt.Fprintln(out, "Correction is disabled in the configuration")
			}
			return nil
		},
	}
}

func newAuthClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			err = ctx.credentialStore(cfg).Delete(credentials.Service, credentials.APIKeyKey)
			switch {
			case errors.Is(err, credentials.ErrNotFound):
				fmt.Fprintln(cmd.OutOrStdout(), "No stored API key")
				return nil
			case err != nil:
				return fmt.Errorf("remove api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed stored API key")
			return nil
		},
	}
}

// readSecret reads one line. Terminals get a prompt and no echo.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(prompt, label)
		secret, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
