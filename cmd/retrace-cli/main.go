package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var (
	version = "dev"

	cfgFile       string
	serverFlag    string
	ingestKey     string
	adminUser     string
	adminPassword string
	profileName   string
	jsonOutput    bool
	quiet         bool
)

var rootCmd = &cobra.Command{
	Use:     "retrace-cli",
	Version: version,
	Short:   "Client for retrace session recording servers",
	Long: `Retrace CLI - Client for retrace session recording servers

Drives a running retrace server over its REST API: seed recordings, inspect
and delete sessions, pull recordings for offline replay, mint share links,
and manage stored blobs through the admin routes.

Credentials resolve in order: flags, RETRACE_* environment variables, then
the selected profile from ~/.retrace/config.yaml.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.retrace/config.yaml, env: RETRACE_CLI_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "server URL (default: http://localhost:5710, env: RETRACE_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&ingestKey, "ingest-key", "k", "", "ingest key for recording uploads (env: RETRACE_INGEST_KEY)")
	rootCmd.PersistentFlags().StringVar(&adminUser, "admin-user", "", "admin username for blob routes (env: RETRACE_ADMIN_USER)")
	rootCmd.PersistentFlags().StringVar(&adminPassword, "admin-password", "", "admin password for blob routes (env: RETRACE_ADMIN_PASSWORD)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: RETRACE_PROFILE)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(blobsCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath resolves the profile config path from the flag, the
// environment, or the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envPath := apiclient.ConfigPathFromEnv(); envPath != "" {
		return envPath
	}
	return apiclient.DefaultConfigPath()
}

// buildConfig merges config from the profile file, env vars, and flags
// (flags take precedence).
func buildConfig() (*apiclient.Config, error) {
	var configs []*apiclient.Config

	// 1. Load from the selected profile
	configPath := getConfigPath()
	if configPath != "" {
		configFile, err := apiclient.LoadConfigFile(configPath)
		if err != nil {
			// Only error if user explicitly specified a config file
			if cfgFile != "" {
				return nil, err
			}
		} else {
			name := profileName
			if name == "" {
				name = apiclient.ProfileFromEnv()
			}
			p, profileErr := configFile.GetProfile(name)
			if profileErr != nil {
				// A named profile that does not exist is an error. An
				// empty profile file without --profile is not.
				if name != "" {
					return nil, profileErr
				}
			} else {
				configs = append(configs, apiclient.ConfigFromProfile(p))
			}
		}
	}

	// 2. Load from environment variables
	configs = append(configs, apiclient.ConfigFromEnv())

	// 3. Load from flags
	configs = append(configs, &apiclient.Config{
		Server:        serverFlag,
		IngestKey:     ingestKey,
		AdminUser:     adminUser,
		AdminPassword: adminPassword,
	})

	// Merge all configs
	return apiclient.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() apiclient.Formatter {
	return apiclient.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*apiclient.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return apiclient.New(cfg)
}
