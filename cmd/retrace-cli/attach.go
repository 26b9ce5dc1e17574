package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var (
	attachName        string
	attachContentType string
)

var attachCmd = &cobra.Command{
	Use:   "attach <session-id> <local-file>",
	Short: "Upload an attachment for a session",
	Long: `Upload an auxiliary file alongside a session, such as a console
dump or a screenshot.

The stored key gets a random suffix, so attaching the same filename
twice keeps both copies.

Examples:
  retrace-cli attach 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034 ./console.log
  retrace-cli attach --name screenshot.png 7b6a8a2e-... ./shot-2026-01-15.png
  retrace-cli attach --content-type text/plain 7b6a8a2e-... ./trace.out`,
	Args: cobra.ExactArgs(2),
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachName, "name", "", "filename to store under (default: basename of the local file)")
	attachCmd.Flags().StringVarP(&attachContentType, "content-type", "t", "", "override content-type")
}

func runAttach(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	attachment, err := client.Attach(context.Background(), apiclient.AttachOptions{
		ID:          id,
		LocalPath:   args[1],
		Filename:    attachName,
		ContentType: attachContentType,
	})
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatAttach(os.Stdout, attachment)
}
