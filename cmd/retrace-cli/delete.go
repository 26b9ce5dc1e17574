package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id> [session-id...]",
	Short: "Delete sessions from the server",
	Long: `Delete one or more sessions from the server.

Deleting a session removes its metadata row together with the stored
recording and attachments.

Examples:
  retrace-cli delete 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034
  retrace-cli delete -q 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034 9d0f1c7a-...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(_ *cobra.Command, args []string) error {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(context.Background(), ids)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	if err := formatter.FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	// Return error if any deletes failed
	if apiclient.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}

// exitError is returned when we want to exit with a specific code
// but don't want cobra to print an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}
