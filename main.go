package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/cinecircle/server/config"
	database "github.com/cinecircle/server/db"
	"github.com/cinecircle/server/logger"
	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/model"
	"github.com/spf13/cobra"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cinecircle",
		Short:         "CineCircle social server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.Version = Version
	cmd.PersistentFlags().String("config", "config/config.yaml", "path to the YAML config file")

	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return cmd
}

// loadConfig reads the --config file. A missing file falls back to the
// built-in defaults so a fresh checkout starts with sqlite and a local cache.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		return config.Default()
	}
	return nil, fmt.Errorf("config %s: %w", path, err)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log, cfg.Server.Debug)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer log.Sync()
			db, err := database.Open(cfg.Database, log)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			if err := model.AutoMigrate(db); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Database.Mode)
			return nil
		},
	}
}

// newTokenCmd mints a bearer token for a user id. Accounts live in the
// identity provider; this exists for local development and operations.
func newTokenCmd() *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user must be a positive id")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Security.JWTSecret == "" {
				return errors.New("security.jwt_secret is not set")
			}
			tok, err := mw.GenerateToken(userID, cfg.Security.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to issue the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
