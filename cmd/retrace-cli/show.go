package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show session details",
	Long: `Show details for a single session.

Examples:
  retrace-cli show 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034
  retrace-cli show --json 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	session, err := client.Get(context.Background(), id)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatSession(os.Stdout, session)
}
