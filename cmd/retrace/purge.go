package main

import (
	"fmt"
	"log/slog"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/config"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <prefix>",
	Short: "Delete every blob under a key prefix",
	Long: `Delete all stored blobs whose keys start with the given prefix.

This goes straight to blob storage without touching session rows. Use
it to reclaim space from sessions deleted while storage was
unreachable, or to drop a whole session's files by its prefix
(sessions/<id>/).

Only meaningful in remote mode; a memory store dies with the server
process that owns it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

var purgeYes bool

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "skip the confirmation prompt")

	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	prefix := args[0]

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	if !purgeYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete every blob under '%s'", prefix),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	blobs := blob.New(config.NewSnapshot(cfg.Storage))

	deleted, err := blobs.DeletePrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("purge '%s': %w", prefix, err)
	}

	slog.Info("purge complete", "prefix", prefix, "deleted", deleted)
	return nil
}
