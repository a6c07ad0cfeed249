package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ambiance/internal/ledger"
)

var resolveText string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one conversation from stdin",
	Long: `Reads a conversation ledger as JSON from stdin, resolves it
against the catalogs and prints the outcome as JSON. With --text the
ledger is a single user turn built from the flag instead.

Example:
  ambiance resolve --text "a pirate ship approaches"
  echo '[{"id":"t1","role":"user","parts":[{"text":"rain"}]}]' | ambiance resolve`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveText, "text", "t", "", "resolve a single user message instead of reading stdin")
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var history ledger.Ledger
	if resolveText != "" {
		history = ledger.Ledger{ledger.NewUserText(resolveText)}
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if err := json.Unmarshal(raw, &history); err != nil {
			return fmt.Errorf("failed to parse ledger: %w", err)
		}
	}

	res, err := buildResolver(ctx, cfg)
	if err != nil {
		return err
	}

	out, err := res.resolver.Resolve(ctx, history)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		SoundID  *string       `json:"soundId"`
		ThemeID  *string       `json:"themeId"`
		Contents ledger.Ledger `json:"contents"`
	}{out.SoundID, out.ThemeID, out.Ledger})
}
