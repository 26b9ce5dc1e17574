package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var (
	recordPageURL   string
	recordUserAgent string
)

var recordCmd = &cobra.Command{
	Use:   "record <events-file>",
	Short: "Ingest a recording into the server",
	Long: `Ingest a recording into the server.

The events file must contain a JSON array of rrweb-style events. Use "-"
to read events from stdin.

Sends the configured ingest key; required when the server has one set.

Examples:
  retrace-cli record ./events.json --page-url https://app.example.com/checkout
  cat events.json | retrace-cli record - --page-url https://app.example.com/
  retrace-cli record ./events.json --page-url https://app.example.com/ --user-agent "Mozilla/5.0"`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordPageURL, "page-url", "", "page URL the session was recorded on (required)")
	recordCmd.Flags().StringVar(&recordUserAgent, "user-agent", "", "browser user agent")
	_ = recordCmd.MarkFlagRequired("page-url")
}

func runRecord(_ *cobra.Command, args []string) error {
	var (
		events []byte
		err    error
	)
	if args[0] == "-" {
		events, err = io.ReadAll(os.Stdin)
	} else {
		events, err = os.ReadFile(args[0]) //#nosec G304 -- path is user-provided input
	}
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	session, err := client.Record(context.Background(), apiclient.RecordOptions{
		PageURL:   recordPageURL,
		UserAgent: recordUserAgent,
		Events:    events,
	})
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatRecord(os.Stdout, session)
}
