package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ambiance/internal/catalog"
	"ambiance/internal/config"
	"ambiance/internal/gemini"
	"ambiance/internal/resolver"
	"ambiance/internal/server"
	"ambiance/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ambiance HTTP API",
	Long: `Starts the resolution server: POST /api/resolve classifies a
conversation against the catalogs, GET /sounds/{name} proxies local audio
assets, GET /healthz reports liveness. Catalog files are watched and
reloaded on change.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := buildResolver(ctx, cfg)
	if err != nil {
		return err
	}

	reqLog, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open request log: %w", err)
	}
	defer reqLog.Close()

	srv := server.New(res.resolver, reqLog, server.Config{
		Addr:        cfg.Server.Addr,
		AssetDir:    cfg.Server.AssetDir,
		BearerToken: cfg.Server.BearerToken,
	})

	logger.Info("ambiance server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("model", cfg.LLM.Model),
		zap.String("strategy", cfg.LLM.Strategy))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if cfg.Catalog.SoundsPath != "" || cfg.Catalog.ThemesPath != "" {
		g.Go(func() error {
			return res.catalog.Watch(gctx)
		})
	}
	return g.Wait()
}

// builtResolver bundles the wired resolver with its catalog store so
// callers can hook the watcher.
type builtResolver struct {
	resolver *resolver.Resolver
	catalog  *catalog.Store
}

// buildResolver wires catalog, model client and resolver from config.
func buildResolver(ctx context.Context, cfg *config.Config) (*builtResolver, error) {
	var (
		cat *catalog.Store
		err error
	)
	if cfg.Catalog.SoundsPath != "" || cfg.Catalog.ThemesPath != "" {
		cat, err = catalog.Load(cfg.Catalog.SoundsPath, cfg.Catalog.ThemesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalogs: %w", err)
		}
	} else {
		cat = catalog.NewStore()
	}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured (set GEMINI_API_KEY or llm.api_key)")
	}
	gcfg := gemini.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.Model != "" {
		gcfg.Model = cfg.LLM.Model
	}
	gcfg.Timeout = cfg.LLM.TimeoutDuration()
	client, err := gemini.NewClient(ctx, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	return &builtResolver{
		resolver: resolver.New(cat, client, resolver.Strategy(cfg.LLM.Strategy)),
		catalog:  cat,
	}, nil
}
