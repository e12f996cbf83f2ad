package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ContentRefresher/internal/app"
	"ContentRefresher/internal/config"
	"ContentRefresher/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig    string
	flagTest      bool
	flagOlderThan string
)

var rootCmd = &cobra.Command{
	Use:           "contentrefresh",
	Short:         "Refresh curated parenting content",
	Long:          "contentrefresh searches the web for every topic and age range, scores the results and stores the best articles.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRefresh,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Clean stale content, run every scope and check store health",
	RunE:  runRefresh,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Retire content older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, application *app.Application) error {
			n, err := application.Clean(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retired %d article(s).\n", n)
			return nil
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete retired content from the store",
	Long: `Hard-delete rows that a cleanup already retired.

Without --older-than every retired row is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var olderThan time.Duration
		if flagOlderThan != "" {
			d, err := parseAge(flagOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			olderThan = d
		}
		return withApp(cmd, func(ctx context.Context, application *app.Application) error {
			n, err := application.Purge(ctx, olderThan)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to purge.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d retired article(s).\n", n)
			}
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Count active content in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, application *app.Application) error {
			report, err := application.Health(ctx)
			if err != nil {
				return err
			}
			state := "ok"
			if !report.Healthy {
				state = "empty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active articles: %d (%s)\n", report.ActiveItems, state)
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh on the configured interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, application *app.Application) error {
			return application.Serve(ctx)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "contentrefresh %s (commit: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagTest, "test", false, "limit the run to one scope and five candidates")
	purgeCmd.Flags().StringVar(&flagOlderThan, "older-than", "", "only purge rows created before this age (e.g., 30d, 720h)")

	rootCmd.AddCommand(refreshCmd, cleanupCmd, purgeCmd, healthCmd, serveCmd, versionCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.Application) error {
		summary, err := application.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), summary.String())
		return nil
	})
}

// withApp loads config, builds the application and runs fn with a context
// cancelled on SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.Application) error) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "configuration error:", err)
		return err
	}
	if flagTest {
		cfg.ApplyTestMode()
	}

	logger := logging.New(cfg.Logging.Level)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close store failed", "error", cerr)
		}
	}()

	if err := fn(ctx, application); err != nil {
		logger.Error("command failed", slog.String("command", cmd.Name()), slog.Any("error", err))
		return err
	}
	return nil
}

// parseAge accepts Go durations plus a day suffix ("30d").
func parseAge(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days >= 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
