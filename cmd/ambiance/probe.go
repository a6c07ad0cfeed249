package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ambiance/internal/catalog"
)

var probeApply bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check sound asset liveness and flag dead entries",
	Long: `Issues a HEAD request for every cataloged sound asset, including
currently disabled ones so recovered assets come back. With --apply the
sound catalog file is rewritten with updated disabled flags; the running
server picks the new file up through its watcher. Without --apply the
result is only reported.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeApply, "apply", false, "rewrite the sound catalog with the probe result")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Catalog.SoundsPath == "" && probeApply {
		return fmt.Errorf("--apply needs catalog.sounds_path; the embedded catalog cannot be rewritten")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cat *catalog.Store
	if cfg.Catalog.SoundsPath != "" {
		cat, err = catalog.Load(cfg.Catalog.SoundsPath, cfg.Catalog.ThemesPath)
		if err != nil {
			return fmt.Errorf("failed to load catalogs: %w", err)
		}
	} else {
		cat = catalog.NewStore()
	}

	prober := catalog.NewProber(cfg.Catalog.AssetBaseURL)
	updated, failed, err := prober.Run(ctx, cat.Snapshot())
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	logger.Info("probe complete",
		zap.Int("sounds", len(updated)),
		zap.Strings("unreachable", failed))
	for _, id := range failed {
		fmt.Printf("unreachable: %s\n", id)
	}
	if len(failed) == 0 {
		fmt.Println("all sound assets reachable")
	}

	if !probeApply {
		return nil
	}
	if err := catalog.WriteSounds(cfg.Catalog.SoundsPath, updated); err != nil {
		return fmt.Errorf("failed to write sound catalog: %w", err)
	}
	fmt.Printf("wrote %s\n", cfg.Catalog.SoundsPath)
	return nil
}
