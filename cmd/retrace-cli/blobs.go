package main

import (
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var (
	blobsListLimit  int
	blobsListCursor string
	blobsPurgeYes   bool
)

var blobsCmd = &cobra.Command{
	Use:   "blobs",
	Short: "Inspect and purge stored blobs",
	Long: `Inspect and purge blobs through the server's admin routes.

Requires admin credentials; the routes are disabled when the server has
no admin password configured.`,
}

var blobsListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List stored blobs",
	Long: `List stored blobs, optionally under a key prefix.

Examples:
  retrace-cli blobs list
  retrace-cli blobs list sessions/
  retrace-cli blobs list --limit 50 --cursor "sessions/7b6a.../recording.json"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBlobsList,
}

var blobsPurgeCmd = &cobra.Command{
	Use:   "purge <prefix>",
	Short: "Delete every blob under a key prefix",
	Long: `Delete every blob under a key prefix.

Purging does not touch session rows; use it for orphaned storage, not as
a substitute for deleting sessions.

Examples:
  retrace-cli blobs purge sessions/7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034/
  retrace-cli blobs purge --yes tmp/`,
	Args: cobra.ExactArgs(1),
	RunE: runBlobsPurge,
}

func init() {
	blobsCmd.AddCommand(blobsListCmd)
	blobsCmd.AddCommand(blobsPurgeCmd)

	blobsListCmd.Flags().IntVarP(&blobsListLimit, "limit", "l", 100, "max results per page (max: 1000)")
	blobsListCmd.Flags().StringVar(&blobsListCursor, "cursor", "", "pagination cursor")
	blobsPurgeCmd.Flags().BoolVar(&blobsPurgeYes, "yes", false, "skip the confirmation prompt")
}

func runBlobsList(_ *cobra.Command, args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.ListBlobs(context.Background(), apiclient.BlobListOptions{
		Prefix: prefix,
		Limit:  blobsListLimit,
		Cursor: blobsListCursor,
	})
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatBlobList(os.Stdout, result)
}

func runBlobsPurge(_ *cobra.Command, args []string) error {
	prefix := args[0]

	if !blobsPurgeYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete every blob under %q", prefix),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	deleted, err := client.PurgeBlobs(context.Background(), prefix)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatPurge(os.Stdout, prefix, deleted)
}
