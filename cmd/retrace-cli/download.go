package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var (
	downloadOutput string
	downloadStdout bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <session-id> [local-path]",
	Short: "Download a session recording",
	Long: `Download a session's recording for offline replay.

The recording is written to <session-id>.json unless a local path is
given. Use --stdout to stream the events to stdout instead.

Examples:
  retrace-cli download 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034
  retrace-cli download 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034 ./replay.json
  retrace-cli download --stdout 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034 | jq length
  retrace-cli download -o ./replay.json 7b6a8a2e-3f0c-4a9e-9a1d-2f9d64c1b034`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")
}

func runDownload(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	// Determine local path
	localPath := ""
	if len(args) > 1 {
		localPath = args[1]
	}
	if downloadOutput != "" {
		localPath = downloadOutput
	}
	if downloadStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	opts := apiclient.DownloadOptions{
		ID:        id,
		LocalPath: localPath,
	}

	result, reader, err := client.DownloadRecording(context.Background(), opts)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	// If stdout, write content to stdout
	if reader != nil {
		defer func() { _ = reader.Close() }()
		_, err := io.Copy(os.Stdout, reader)
		if err != nil {
			return err
		}
		// Don't print metadata when writing to stdout (unless JSON mode)
		if jsonOutput {
			formatter := getFormatter()
			return formatter.FormatDownload(os.Stderr, result)
		}
		return nil
	}

	// Otherwise, format the result
	formatter := getFormatter()
	return formatter.FormatDownload(os.Stdout, result)
}
