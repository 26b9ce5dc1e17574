package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "retrace",
	Short:   "Session recording backend with pluggable blob storage",
	Long: `Retrace ingests browser session recordings, stores them in memory
or in a remote blob bucket, and serves them back for replay.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: RETRACE_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: retrace.db, env: RETRACE_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-mode", "", "blob storage mode: memory, remote (default: memory, env: RETRACE_STORAGE_MODE)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: RETRACE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (env: RETRACE_LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
