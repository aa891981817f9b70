package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/replay"
)

// #region replay
func newReplayCommand() *cobra.Command {
	var (
		dbPath      string
		fixturePath string
		last        int
		workers     int
		tAllow      float64
		tClarify    float64
		override    float64
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-decide logged turns and report drift",
		Long: "Replays recorded turns through the gate and answer assembler without calling\n" +
			"retrieval or the model. Each turn is decided under the thresholds it was\n" +
			"logged with; threshold flags override them for every turn.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (dbPath == "") == (fixturePath == "") {
				return errors.New("exactly one of --db or --fixture is required")
			}

			var cases []replay.Case
			var config replay.ReplayConfig
			if fixturePath != "" {
				f, err := replay.LoadFixture(fixturePath)
				if err != nil {
					return err
				}
				cases = f.ReplayCases()
				config = f.Config.ToReplayConfig()
			} else {
				st, err := openStore(dbPath)
				if err != nil {
					return err
				}
				defer st.Close()
				records, err := loadRecords(cmd.Context(), st, last)
				if err != nil {
					return err
				}
				f := replay.FixtureFromRecords("", records)
				cases = f.ReplayCases()
				config = f.Config.ToReplayConfig()
			}

			flags := cmd.Flags()
			if flags.Changed("t-allow") {
				config.Overrides.TAllow = &tAllow
			}
			if flags.Changed("t-clarify") {
				config.Overrides.TClarify = &tClarify
			}
			if flags.Changed("override") {
				config.Overrides.OverrideScore = &override
			}
			config.Workers = workers

			results, err := replay.Replay(cmd.Context(), cases, config)
			if err != nil {
				return err
			}
			summary := replay.Summarize(results)

			if jsonOut {
				if err := printJSON(map[string]any{"results": results, "summary": summary}); err != nil {
					return err
				}
			} else {
				printReplay(results, summary)
			}
			if summary.Mismatched > 0 {
				return errDrift
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "replay decisions from the answer log database")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "replay a fixture JSON file")
	cmd.Flags().IntVar(&last, "last", 100, "with --db, replay the N most recent decisions")
	cmd.Flags().IntVar(&workers, "workers", 8, "concurrent cases")
	cmd.Flags().Float64Var(&tAllow, "t-allow", 0, "override t_allow")
	cmd.Flags().Float64Var(&tClarify, "t-clarify", 0, "override t_clarify")
	cmd.Flags().Float64Var(&override, "override", 0, "override the hedging-model override score")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

// #endregion replay

// #region render
func printReplay(results []replay.ReplayResult, s replay.ReplaySummary) {
	fmt.Printf("%-36s  %-33s  %-33s  %s\n", "Request", "Expected", "Actual", "")
	for _, r := range results {
		mark := "ok"
		if !r.Match {
			mark = "DRIFT"
		}
		if r.ModelMissing {
			mark += " (no model output)"
		}
		fmt.Printf("%-36s  %-33s  %-33s  %s\n", r.RequestID,
			fmt.Sprintf("%s/%s", r.Expected.Decision.Mode, r.Expected.Decision.Reason),
			fmt.Sprintf("%s/%s", r.Actual.Decision.Mode, r.Actual.Decision.Reason),
			mark)
	}
	for _, r := range results {
		if !r.Match {
			fmt.Printf("\n%s (-expected +actual):\n%s", r.RequestID, r.Diff)
		}
	}
	fmt.Printf("\nCases: %d | Matched: %d | Drifted: %d | Model missing: %d\n",
		s.TotalCases, s.Matched, s.Mismatched, s.ModelMissing)
}

// #endregion render
