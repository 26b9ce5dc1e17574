package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/apiclient"
)

var (
	listPrefix string
	listLimit  int
	listAll    bool
	listCursor string
)

var listCmd = &cobra.Command{
	Use:   "list [url-prefix]",
	Short: "List sessions on the server",
	Long: `List sessions on the server, newest first.

Sessions can be filtered by page URL prefix, passed as a positional
argument or with --prefix.

Examples:
  retrace-cli list
  retrace-cli list https://app.example.com/checkout
  retrace-cli list --prefix https://app.example.com/ --limit 10
  retrace-cli list --all
  retrace-cli list --cursor "MTc3Mj..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "filter by page URL prefix")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 100, "max results per page (max: 1000)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "fetch all pages")
	listCmd.Flags().StringVar(&listCursor, "cursor", "", "pagination cursor")
}

func runList(_ *cobra.Command, args []string) error {
	// Prefix can come from positional arg or flag
	prefix := listPrefix
	if len(args) > 0 {
		prefix = args[0]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	opts := apiclient.ListOptions{
		URLPrefix: prefix,
		Limit:     listLimit,
		Cursor:    listCursor,
		All:       listAll,
	}

	result, err := client.List(context.Background(), opts)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	return formatter.FormatSessionList(os.Stdout, result)
}
