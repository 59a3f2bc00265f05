package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/wastecollect-backend/internal/app"
	"github.com/yungbote/wastecollect-backend/internal/data/db"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
)

var rootCmd = &cobra.Command{
	Use:           "wastecollect",
	Short:         "Municipal waste collection API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), app.ModeServe, func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		cfg, err := app.LoadConfig(log)
		if err != nil {
			return err
		}
		dbs, err := db.NewDatabaseService(log, cfg.DB)
		if err != nil {
			return err
		}
		defer dbs.Close()
		if err := db.AutoMigrateAll(dbs.DB()); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Info("Schema up to date", "driver", dbs.Driver())
		return nil
	},
}

var adminFlags struct {
	name     string
	email    string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:     "create-admin",
	Short:   "Create the first administrator account",
	Example: `  wastecollect create-admin --email ops@example.org --password 's3cret-pass' --name "Ops"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), app.ModeCLI, func(ctx context.Context, a *app.App) error {
			u, err := a.Services.User.BootstrapAdmin(ctx, adminFlags.name, adminFlags.email, adminFlags.password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s)\n", u.ID, u.Email)
			return nil
		})
	},
}

var snapshotFlags struct {
	municipality string
	period       string
	anchor       string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Persist a statistics snapshot for one municipality",
	Example: `  wastecollect snapshot --municipality 6f1c... --period MONTH
  wastecollect snapshot --municipality 6f1c... --period DAY --anchor 2024-03-01`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mid, err := uuid.Parse(strings.TrimSpace(snapshotFlags.municipality))
		if err != nil {
			return fmt.Errorf("invalid --municipality: %w", err)
		}
		anchor := time.Now().UTC()
		if snapshotFlags.anchor != "" {
			anchor, err = time.Parse("2006-01-02", snapshotFlags.anchor)
			if err != nil {
				return fmt.Errorf("invalid --anchor (want YYYY-MM-DD): %w", err)
			}
		}
		period := stats.PeriodType(strings.ToUpper(strings.TrimSpace(snapshotFlags.period)))
		return withApp(cmd.Context(), app.ModeCLI, func(ctx context.Context, a *app.App) error {
			s, err := a.Services.Statistics.Snapshot(ctx, mid, period, anchor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s %s %s..%s requests=%d completed=%d\n",
				s.ID, s.PeriodType, s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"),
				s.TotalRequests, s.CompletedRequests)
			return nil
		})
	},
}

func withApp(ctx context.Context, mode app.Mode, fn func(context.Context, *app.App) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, log, mode)
	if err != nil {
		log.Error("Failed to initialize app", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func init() {
	createAdminCmd.Flags().StringVar(&adminFlags.name, "name", "Administrator", "display name")
	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "login email")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "initial password (min 8 characters)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	snapshotCmd.Flags().StringVar(&snapshotFlags.municipality, "municipality", "", "municipality id")
	snapshotCmd.Flags().StringVar(&snapshotFlags.period, "period", string(stats.PeriodMonth), "DAY, WEEK, MONTH or YEAR")
	snapshotCmd.Flags().StringVar(&snapshotFlags.anchor, "anchor", "", "date inside the period (YYYY-MM-DD); defaults to today")
	_ = snapshotCmd.MarkFlagRequired("municipality")

	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd, snapshotCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
