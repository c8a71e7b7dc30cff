// spotwatch tracks cloud spot instance prices.
//
// Usage:
//
//	spotwatch update [--regions us-east-1,eu-west-1] [--lookback-days 30]
//	spotwatch serve
//	spotwatch regions
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/spotwatch/spotwatch/internal/catalog"
	"github.com/spotwatch/spotwatch/internal/config"
	"github.com/spotwatch/spotwatch/internal/database"
	"github.com/spotwatch/spotwatch/internal/ingest"
	"github.com/spotwatch/spotwatch/internal/provider"
	"github.com/spotwatch/spotwatch/internal/server"
	"github.com/spotwatch/spotwatch/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "spotwatch",
		Usage:   "Spot instance price tracking and normalization",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/spotwatch.yaml",
				Usage:   "path to config file",
				EnvVars: []string{"SPOTWATCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"SPOTWATCH_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			updateCommand(),
			serveCommand(),
			regionsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config and installs the process-wide logger.
func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	logger := newLogger(c.String("log-level"))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Sync the instance type catalog and ingest new price history",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "regions",
				Usage: "regions to fetch (default: config, then all provider regions)",
			},
			&cli.IntFlag{
				Name:  "lookback-days",
				Usage: "how far back a first fetch may reach",
			},
			&cli.IntFlag{
				Name:  "end-days-ago",
				Usage: "stop fetching this many days before now",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "max parallel region fetches",
			},
			&cli.BoolFlag{
				Name:  "skip-catalog-sync",
				Usage: "reuse the stored instance type catalog",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(c)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c.Context, logger)
			defer cancel()

			logger.Info("starting update",
				"version", version.Version,
				"commit", version.Commit,
			)

			pool, err := database.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			store := database.NewStore(pool, logger)

			source, err := provider.NewAWS(ctx, logger)
			if err != nil {
				return fmt.Errorf("create aws provider: %w", err)
			}

			if !c.Bool("skip-catalog-sync") {
				registry := catalog.NewRegistry(source, store, logger)
				if _, err := registry.Sync(ctx, cfg.AWS.CatalogRegion); err != nil {
					return fmt.Errorf("catalog sync: %w", err)
				}
			}

			svcCfg := ingest.ServiceConfig{
				LookbackDays:    cfg.Ingest.LookbackDays,
				EndOffsetDays:   cfg.Ingest.EndOffsetDays,
				MaxConcurrency:  cfg.Ingest.MaxConcurrency,
				SinkCapacity:    cfg.Ingest.SinkCapacity,
				AppendBatchSize: cfg.Ingest.AppendBatchSize,
			}
			svc := ingest.NewService(svcCfg, source, store, logger)

			regions := c.StringSlice("regions")
			if len(regions) == 0 {
				regions = cfg.Ingest.Regions
			}

			opts := ingest.RunOptions{
				Regions:        regions,
				LookbackDays:   c.Int("lookback-days"),
				MaxConcurrency: c.Int("concurrency"),
			}
			if c.IsSet("end-days-ago") {
				endOffset := c.Int("end-days-ago")
				opts.EndOffsetDays = &endOffset
			}

			result, err := svc.Run(ctx, opts)
			if err != nil {
				return fmt.Errorf("ingestion run: %w", err)
			}

			fmt.Printf("Stored %d records across %d regions in %s (%d current rows updated)\n",
				result.RecordsStored, result.RegionsCompleted,
				result.Duration.Round(time.Millisecond), result.CurrentRowsUpdated)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the current-price query API",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(c)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c.Context, logger)
			defer cancel()

			pool, err := database.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			store := database.NewStore(pool, logger)

			srv := server.New(server.Config{
				Port:         cfg.Server.Port,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				MaxPageSize:  cfg.Server.MaxPageSize,
			}, store, pool, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return srv.Stop(shutdownCtx)
			}
		},
	}
}

func regionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "regions",
		Usage: "List regions visible to the provider",
		Action: func(c *cli.Context) error {
			_, logger, err := setup(c)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c.Context, logger)
			defer cancel()

			source, err := provider.NewAWS(ctx, logger)
			if err != nil {
				return fmt.Errorf("create aws provider: %w", err)
			}

			regions, err := source.ListRegions(ctx)
			if err != nil {
				return fmt.Errorf("list regions: %w", err)
			}
			for _, region := range regions {
				fmt.Println(region)
			}
			return nil
		},
	}
}
