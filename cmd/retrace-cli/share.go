package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Mint a share link for a session",
	Long: `Mint a time-limited share link for a session.

Anyone holding the link can replay the session without credentials until
it expires. Requires the server to have share tokens configured.

Examples:
  retrace-cli share 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034
  retrace-cli share --json 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034`,
	Args: cobra.ExactArgs(1),
	RunE: runShare,
}

func runShare(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Share(context.Background(), id)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatShare(os.Stdout, result)
}
