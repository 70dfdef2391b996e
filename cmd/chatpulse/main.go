package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"chatpulse/internal/app"
	"chatpulse/internal/config"
	"chatpulse/internal/store"
	"chatpulse/internal/store/migrations"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Credentials may live in a local .env during development; a missing
	// file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readConfig loads the config file from the default location.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

var rootCmd = &cobra.Command{
	Use:   "chatpulse",
	Short: "Daily Slack contribution scoring and moderation batch",
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the daily batch once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.RunDaily(cmd.Context())
		if err != nil {
			return fmt.Errorf("batch run failed: %w", err)
		}

		fmt.Printf("Window:    %s .. %s\n",
			summary.Window.Start.Format("2006-01-02 15:04:05 MST"),
			summary.Window.End.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Processed: %d post(s)\n", summary.PostsProcessed)
		fmt.Printf("Notified:  %d violation(s)\n", summary.ViolationsNotified)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Timezone:        %s\n", cfg.Timezone)
		fmt.Printf("Anchor Hour:     %d\n", cfg.AnchorHour)
		fmt.Printf("Log Dir:         %s\n", cfg.LogDir)
		fmt.Printf("Admin Channel:   %s\n", cfg.Slack.AdminChannelID)
		fmt.Printf("Ranking Channel: %s\n", cfg.Slack.RankingChannelID)
		fmt.Printf("Target Channels: %v\n", cfg.Slack.TargetChannels)
		fmt.Printf("Model:           %s\n", cfg.Classifier.Model)
		fmt.Printf("Database:        %s\n", cfg.Database.Type)
		fmt.Printf("Archive:         %s\n", cfg.Archive.Type)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		path, err := store.DatabasePath(cfg.Database)
		if err != nil {
			return err
		}

		db, err := store.OpenConnection(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}

		version, dirty, err := migrations.Version(db)
		if err != nil {
			return err
		}
		fmt.Printf("Database at %s migrated to version %d (dirty=%v)\n", path, version, dirty)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		path, err := store.DatabasePath(cfg.Database)
		if err != nil {
			return err
		}

		db, err := store.OpenConnection(path)
		if err != nil {
			return err
		}
		defer db.Close()

		version, dirty, err := migrations.Version(db)
		if err != nil {
			return err
		}
		fmt.Printf("Database: %s\n", path)
		fmt.Printf("Version:  %d\n", version)
		fmt.Printf("Dirty:    %v\n", dirty)
		return nil
	},
}

// score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Manage contribution scores",
}

var scoreGrantCmd = &cobra.Command{
	Use:   "grant USER_ID USER_NAME DELTA",
	Short: "Apply a manual score adjustment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("parsing delta: %w", err)
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		total, err := a.GrantScore(args[0], args[1], delta)
		if err != nil {
			return fmt.Errorf("granting score: %w", err)
		}

		fmt.Printf("User %s now has %.1f point(s)\n", args[0], total)
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Work with daily reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the leaderboard for a day without posting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		dateArg, _ := cmd.Flags().GetString("date")

		day := time.Now()
		if dateArg != "" {
			parsed, err := time.Parse("2006-01-02", dateArg)
			if err != nil {
				return fmt.Errorf("parsing date: %w", err)
			}
			day = parsed
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.RenderReport(day)
		if err != nil {
			return err
		}
		fmt.Print(report)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View batch run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No batch runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt != nil {
				d := r.FinishedAt.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %s  %-10s  %d post(s)  %s\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.PostsProcessed,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	// score subcommands
	scoreCmd.AddCommand(scoreGrantCmd)

	// report subcommands
	reportCmd.AddCommand(reportShowCmd)
	reportShowCmd.Flags().String("date", "", "Day to report on (YYYY-MM-DD, default today)")

	// root commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
