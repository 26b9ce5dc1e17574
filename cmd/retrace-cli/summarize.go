package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <session-id>",
	Short: "Generate a summary for a session",
	Long: `Ask the server to generate a text summary of a session's activity.

Requires the server to have an AI provider configured; the call blocks
until generation finishes.

Examples:
  retrace-cli summarize 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func runSummarize(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	session, err := client.Summarize(context.Background(), id)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatSession(os.Stdout, session)
}
