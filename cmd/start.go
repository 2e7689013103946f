package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inventory-monitor/core/config"
	"inventory-monitor/core/database"
	"inventory-monitor/core/loader"
	"inventory-monitor/core/logger"
	"inventory-monitor/core/metrics"
	"inventory-monitor/core/middleware/auth"
	"inventory-monitor/core/middleware/rayid"
	"inventory-monitor/core/reconcile"
	"inventory-monitor/core/scheduler"
	"inventory-monitor/core/sink"
	"inventory-monitor/core/snapshot"
	"inventory-monitor/core/storage"

	"inventory-monitor/feature/archive"
	"inventory-monitor/feature/dumpsource"
	"inventory-monitor/feature/history"
	"inventory-monitor/feature/monitor"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the inventory monitor",
	Long: `Loads every dump in the dump directory, starts the refresh loop and the
directory watcher, then serves the HTTP API with every enabled feature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database (Optional, history only)
		var db *gorm.DB
		if cfg.History.Enabled {
			if conn, err := database.Connect(cfg.Database); err != nil {
				logg.Warn("Optional database connection failed, history disabled", zap.Error(err))
			} else {
				db = conn
				logg.Info("Connected to history database", zap.String("driver", cfg.Database.Driver))
			}
		}

		// 4. Metrics
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)

		// 5. Core pipeline
		store := snapshot.NewStore()
		dispatcher := sink.NewDispatcher(logg)
		sk := sink.New(dispatcher, m, logg, cfg.Monitor.ChangeLogSize)
		engine := reconcile.NewEngine(logg)

		if err := os.MkdirAll(cfg.Monitor.DumpDir, 0o755); err != nil {
			return fmt.Errorf("failed to create dump directory: %w", err)
		}
		dumps := dumpsource.New(cfg.Monitor.DumpDir, logg)
		scopes, err := dumps.Load()
		if err != nil {
			return err
		}

		sched := scheduler.New(scheduler.Config{
			Interval: cfg.Monitor.Interval,
			Cooldown: cfg.Monitor.Cooldown,
		}, dumps, dumps, store, engine, sk, m, logg)
		for _, scope := range scopes {
			if err := sched.Register(scope); err != nil {
				logg.Warn("Failed to register scope", zap.String("scope", scope.String()), zap.Error(err))
			}
		}

		// 6. Initialize Storage (archive only)
		var objects storage.Client
		if cfg.Archive.Enabled {
			objects, err = storage.NewClient(cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to create storage client: %w", err)
			}
		}

		historyFeature := history.NewFeature(db, dispatcher, logg, cfg.History.Enabled, cfg.History.IncludeMoves)
		defer historyFeature.Close()
		archiveFeature := archive.NewFeature(objects, cfg.Storage, cfg.Archive.Prefix, cfg.Archive.Interval, store, dispatcher, logg, cfg.Archive.Enabled)
		defer archiveFeature.Close()

		// 7. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// RayID must be first to trace everything.
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Debug("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})
		app.Use(auth.New(auth.Config{
			ApiKey: cfg.Server.ApiKey,
			Skip:   []string{monitor.MetricsPath},
		}))

		// 8. Load Features
		mgr := loader.NewManager(logg)
		mgr.Register(monitor.NewFeature(sched, sk, store, reg, logg))
		mgr.Register(historyFeature)
		mgr.Register(archiveFeature)
		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		// Continue batch ids after the last recorded one.
		last, err := historyFeature.LastBatchID(cmd.Context())
		if err != nil {
			return err
		}
		engine.Resume(last)

		// 9. Run until interrupted
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return sched.Run(gctx) })
		g.Go(func() error { return sched.Watch(gctx, dumps) })
		g.Go(func() error { return dumps.Watch(gctx, sched) })
		g.Go(func() error { return dispatcher.Run(gctx) })
		g.Go(func() error { return archiveFeature.Run(gctx) })

		if cfg.Server.Enabled {
			g.Go(func() error {
				logg.Info("Starting server", zap.String("address", cfg.Server.Address()))
				if err := app.Listen(cfg.Server.Address()); err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logg.Info("Shutting down server...")
				return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout())
			})
		}

		logg.Info("Inventory monitor started",
			zap.Int("scopes", len(scopes)),
			zap.String("dump_dir", cfg.Monitor.DumpDir),
		)
		return g.Wait()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
