package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/replay"
)

// #region export
func newExportCommand() *cobra.Command {
	var (
		dbPath      string
		out         string
		last        int
		description string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export logged decisions as a replay fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			st, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := loadRecords(cmd.Context(), st, last)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return errors.New("no decisions to export")
			}

			if description == "" {
				description = fmt.Sprintf("Exported from %s (%d decisions)", dbPath, len(records))
			}
			if err := replay.WriteFixture(out, replay.FixtureFromRecords(description, records)); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d cases to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the answer log database")
	cmd.Flags().StringVar(&out, "out", "", "fixture file to write")
	cmd.Flags().IntVar(&last, "last", 100, "export the N most recent decisions")
	cmd.Flags().StringVar(&description, "description", "", "fixture description")
	return cmd
}

// #endregion export
