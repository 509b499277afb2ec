package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportStatusCmd = &cobra.Command{
	Use:   "export-status <operation>",
	Short: "Look up an enqueued export once",
	Long: `Fetch the current state of an export task by its operation name, as
printed by "run" and recorded in summary.json. Accepts the full
"projects/<p>/operations/<id>" name or just the id. Does not wait.`,
	Args: cobra.ExactArgs(1),
	RunE: exportStatus,
}

func exportStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	op, err := a.ee.GetOperation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get operation: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(op); err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}
	if op.Error != nil {
		return fmt.Errorf("export failed: %s", op.Error.Message)
	}
	return nil
}
