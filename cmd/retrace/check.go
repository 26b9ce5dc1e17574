package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/config"
	"github.com/retracehq/retrace/deploy"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check storage configuration and health",
	Long: `Resolve the active configuration, probe the blob backend, and print
a report. Exits non-zero when the backend is unreachable.

The report covers the resolved storage environment, a live health
probe, and the build's deploy metadata. Database connectivity is
checked by the running server's /api/health route, not here; check
stays read-only and never runs migrations.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	blobs := blob.New(config.NewSnapshot(cfg.Storage))

	report := struct {
		Deploy      deploy.Info       `json:"deploy"`
		Environment blob.Environment  `json:"environment"`
		Health      blob.HealthReport `json:"health"`
	}{
		Deploy:      deploy.Resolve(),
		Environment: blobs.Environment(),
		Health:      blobs.Health(ctx),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(data))

	if !report.Health.OK {
		return fmt.Errorf("storage unhealthy: %s", report.Health.Reason)
	}

	return nil
}
