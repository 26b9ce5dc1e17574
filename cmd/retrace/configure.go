package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create a config file interactively",
	Long: `Create a config file interactively.

You will be prompted for:
  - Server port
  - Database type and DSN
  - Storage mode, and bucket credentials for remote mode
  - Optional ingest key, share secret, and admin password

Remote storage settings are probed before saving. The file is written
with 0600 permissions because it may contain secrets; in production,
prefer passing secrets through RETRACE_SECRET_* environment variables
and leaving them out of the file.`,
	// A broken config file must not block the command that fixes it, so
	// configure skips the strict load the other commands do.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(config.LogConfig{Level: "info", Format: "text"})
		return nil
	},
	RunE: runConfigure,
}

var configureOutput string

func init() {
	configureCmd.Flags().StringVar(&configureOutput, "output", "config.yaml", "path to write the config file")

	rootCmd.AddCommand(configureCmd)
}

// configDocument is the shape written to disk. It carries only the keys
// configure asks about; everything else stays on defaults.
type configDocument struct {
	Server   serverSection   `yaml:"server"`
	Database databaseSection `yaml:"database"`
	Storage  storageSection  `yaml:"storage"`
	Ingest   *ingestSection  `yaml:"ingest,omitempty"`
	Share    *shareSection   `yaml:"share,omitempty"`
	Admin    *adminSection   `yaml:"admin,omitempty"`
}

type serverSection struct {
	Port int `yaml:"port"`
}

type databaseSection struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

type storageSection struct {
	Mode       string `yaml:"mode"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	Bucket     string `yaml:"bucket,omitempty"`
	ServiceKey string `yaml:"service_key,omitempty"`
	PublicBase string `yaml:"public_base,omitempty"`
}

type ingestSection struct {
	Key string `yaml:"key"`
}

type shareSection struct {
	Secret string `yaml:"secret"`
}

type adminSection struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

func runConfigure(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(configureOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Config file '%s' already exists. Overwrite it", configureOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	doc := configDocument{}

	// Server port
	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "5710",
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil {
				return errors.New("port must be a number")
			}
			if n < 1 || n > 65535 {
				return errors.New("port must be between 1 and 65535")
			}
			return nil
		},
	}
	portVal, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	doc.Server.Port, _ = strconv.Atoi(portVal)

	// Database
	dbSelect := promptui.Select{
		Label: "Database type",
		Items: []string{"sqlite", "postgres"},
	}
	_, dbType, err := dbSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}
	doc.Database.Type = dbType

	defaultDSN := "retrace.db"
	if dbType == "postgres" {
		defaultDSN = "postgres://localhost:5432/retrace"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database DSN",
		Default: defaultDSN,
		Validate: func(input string) error {
			if input == "" {
				return errors.New("database DSN is required")
			}
			return nil
		},
	}
	doc.Database.DSN, err = dsnPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	// Storage
	modeSelect := promptui.Select{
		Label: "Storage mode",
		Items: []string{"memory", "remote"},
	}
	_, storageMode, err := modeSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}
	doc.Storage.Mode = storageMode

	if storageMode == "remote" {
		if err := promptRemoteStorage(&doc.Storage); err != nil {
			return err
		}

		fmt.Print("Testing storage endpoint... ")
		if probeErr := probeStorage(blob.Settings{
			Mode:       "remote",
			Endpoint:   doc.Storage.Endpoint,
			Bucket:     doc.Storage.Bucket,
			ServiceKey: doc.Storage.ServiceKey,
		}); probeErr != nil {
			fmt.Println("FAILED")
			fmt.Printf("Warning: Storage is not reachable: %v\n", probeErr)

			continuePrompt := promptui.Prompt{
				Label:     "Save configuration anyway",
				IsConfirm: true,
			}
			if _, promptErr := continuePrompt.Run(); promptErr != nil {
				fmt.Println("Cancelled.")
				return nil //nolint:nilerr // User cancelled, not an error
			}
		} else {
			fmt.Println("OK")
		}
	}

	// Ingest key (optional)
	ingestPrompt := promptui.Prompt{
		Label: "Ingest key (empty for open ingest)",
		Mask:  '*',
	}
	ingestKey, err := ingestPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	if ingestKey != "" {
		doc.Ingest = &ingestSection{Key: ingestKey}
	}

	// Share secret (optional)
	sharePrompt := promptui.Prompt{
		Label: "Share link secret (empty to disable share links)",
		Mask:  '*',
	}
	shareSecret, err := sharePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	if shareSecret != "" {
		doc.Share = &shareSection{Secret: shareSecret}
	}

	// Admin credentials (optional)
	adminConfirm := promptui.Prompt{
		Label:     "Protect admin routes with a password",
		IsConfirm: true,
	}
	if _, promptErr := adminConfirm.Run(); promptErr == nil {
		admin, adminErr := promptAdmin()
		if adminErr != nil {
			return adminErr
		}
		doc.Admin = admin
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(configureOutput, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration written to %s.\n", configureOutput)
	if doc.Storage.ServiceKey != "" || doc.Ingest != nil || doc.Share != nil {
		fmt.Println("The file contains secrets; keep its permissions at 0600.")
	}

	return nil
}

func promptRemoteStorage(section *storageSection) error {
	endpointPrompt := promptui.Prompt{
		Label: "Storage endpoint URL",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("endpoint URL is required")
			}
			parsedURL, parseErr := url.Parse(input)
			if parseErr != nil {
				return fmt.Errorf("invalid URL: %w", parseErr)
			}
			if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
				return errors.New("URL must start with http:// or https://")
			}
			return nil
		},
	}
	endpointURL, err := endpointPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	section.Endpoint = strings.TrimSuffix(endpointURL, "/")

	bucketPrompt := promptui.Prompt{
		Label: "Bucket name",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("bucket name is required")
			}
			return nil
		},
	}
	section.Bucket, err = bucketPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	keyPrompt := promptui.Prompt{
		Label: "Service key",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("service key is required")
			}
			return nil
		},
	}
	section.ServiceKey, err = keyPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	basePrompt := promptui.Prompt{
		Label: "Public base URL (empty to proxy blob reads)",
		Validate: func(input string) error {
			if input == "" {
				return nil
			}
			parsedURL, parseErr := url.Parse(input)
			if parseErr != nil {
				return fmt.Errorf("invalid URL: %w", parseErr)
			}
			if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
				return errors.New("URL must start with http:// or https://")
			}
			return nil
		},
	}
	publicBase, err := basePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	section.PublicBase = strings.TrimSuffix(publicBase, "/")

	return nil
}

func promptAdmin() (*adminSection, error) {
	usernamePrompt := promptui.Prompt{
		Label:   "Admin username",
		Default: "admin",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("username is required")
			}
			return nil
		},
	}
	username, err := usernamePrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	passwordPrompt := promptui.Prompt{
		Label: "Admin password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			return nil
		},
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &adminSection{Username: username, PasswordHash: string(hash)}, nil
}

// probeStorage asks the blob facade for a health report against the
// entered settings. A reachable bucket answers the probe's list call.
func probeStorage(settings blob.Settings) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := blob.New(blob.SourceFunc(func() blob.Settings { return settings }))
	report := store.Health(ctx)
	if !report.OK {
		return errors.New(report.Reason)
	}
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
