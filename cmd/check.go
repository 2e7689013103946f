package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inventory-monitor/core/config"
	"inventory-monitor/core/database"
	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"
	"inventory-monitor/core/snapshot"
	"inventory-monitor/core/storage"
	"inventory-monitor/feature/archive"
	"inventory-monitor/feature/dumpsource"
	"inventory-monitor/feature/history"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the dump directory, history table and archive bucket",
	Long:  `Validates every dump file, the history table schema and the archive bucket. Use the subcommands to check one of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecks(cmd.Context(), true, true, true)
	},
}

var checkDumpsCmd = &cobra.Command{
	Use:   "dumps",
	Short: "Parse every dump file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecks(cmd.Context(), true, false, false)
	},
}

var checkHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Check (and migrate with --fix) the history table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecks(cmd.Context(), false, true, false)
	},
}

var checkArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Check (and create with --fix) the archive bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	checkCmd.PersistentFlags().BoolVar(&fixFlag, "fix", false, "Repair what can be repaired")
	checkCmd.AddCommand(checkDumpsCmd, checkHistoryCmd, checkArchiveCmd)
	RootCmd.AddCommand(checkCmd)
}

func runChecks(ctx context.Context, dumps, hist, arch bool) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	failed := 0
	if dumps {
		failed += checkDumps(cfg.Monitor.DumpDir, logg)
	}
	if hist {
		failed += checkHistory(cfg.Database, logg)
	}
	if arch {
		failed += checkArchive(ctx, cfg, logg)
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	logg.Info("All checks passed")
	return nil
}

// dumpIssue is one problem found in the dump directory.
type dumpIssue struct {
	File  string
	Error error
}

// inspectDumps parses every dump in dir and returns the scopes found and the
// files that failed. A scope served by two files is reported on the second.
func inspectDumps(dir string) (map[inventory.ScopeID]string, []dumpIssue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dump directory: %w", err)
	}
	scopes := make(map[inventory.ScopeID]string)
	var issues []dumpIssue
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		d, err := dumpsource.ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			issues = append(issues, dumpIssue{File: e.Name(), Error: err})
			continue
		}
		if other, ok := scopes[d.Scope]; ok {
			issues = append(issues, dumpIssue{File: e.Name(), Error: fmt.Errorf("scope %s is already served by %s", d.Scope, other)})
			continue
		}
		scopes[d.Scope] = e.Name()
	}
	return scopes, issues, nil
}

func checkDumps(dir string, logg *zap.Logger) int {
	scopes, issues, err := inspectDumps(dir)
	if err != nil {
		logg.Error("Dump check failed", zap.Error(err))
		return 1
	}
	for _, issue := range issues {
		logg.Error("Invalid dump", zap.String("file", issue.File), zap.Error(issue.Error))
	}
	fmt.Println("\n=== Dump Directory ===")
	fmt.Printf("Directory:      %s\n", dir)
	fmt.Printf("Scopes:         %d\n", len(scopes))
	fmt.Printf("Invalid files:  %d\n", len(issues))
	if len(issues) > 0 {
		return 1
	}
	return 0
}

func checkHistory(dbCfg database.Config, logg *zap.Logger) int {
	db, err := database.Connect(dbCfg)
	if err != nil {
		logg.Error("Database connection required", zap.Error(err))
		return 1
	}
	svc := history.NewService(db, logg)

	missing, err := svc.CheckSchema()
	if err != nil {
		logg.Error("History schema check failed", zap.Error(err))
		return 1
	}
	if len(missing) > 0 && fixFlag {
		logg.Info("Migrating history table", zap.Strings("missing", missing))
		if err := svc.Migrate(); err != nil {
			logg.Error("History migration failed", zap.Error(err))
			return 1
		}
		if missing, err = svc.CheckSchema(); err != nil {
			logg.Error("History schema check failed", zap.Error(err))
			return 1
		}
	}

	fmt.Println("\n=== History Table ===")
	fmt.Printf("Driver:          %s\n", dbCfg.Driver)
	fmt.Printf("Missing columns: %s\n", strings.Join(missing, ", "))
	if len(missing) > 0 {
		logg.Warn("History table is incomplete, run with --fix", zap.Strings("missing", missing))
		return 1
	}
	return 0
}

func checkArchive(ctx context.Context, cfg *config.Config, logg *zap.Logger) int {
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		logg.Error("Failed to create storage client", zap.Error(err))
		return 1
	}
	timeout := time.Duration(cfg.Storage.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
	if err != nil {
		logg.Error("Failed to check bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		return 1
	}
	if !exists {
		if !fixFlag {
			logg.Warn("Archive bucket is missing, run with --fix", zap.String("bucket", cfg.Storage.Bucket))
			return 1
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			logg.Error("Failed to create bucket", zap.Error(err))
			return 1
		}
	}

	svc := archive.NewService(client, cfg.Storage.Bucket, cfg.Archive.Prefix, snapshot.NewStore(), logg)
	entries, err := svc.List(ctx)
	if err != nil {
		logg.Error("Failed to list archive", zap.Error(err))
		return 1
	}
	fmt.Println("\n=== Snapshot Archive ===")
	fmt.Printf("Bucket:         %s\n", cfg.Storage.Bucket)
	fmt.Printf("Prefix:         %s\n", cfg.Archive.Prefix)
	fmt.Printf("Snapshots:      %d\n", len(entries))
	return 0
}
