package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/store"
)

// #region inspect
func newInspectCommand() *cobra.Command {
	var (
		dbPath  string
		last    int
		id      string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List recent decisions or show one in detail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if id != "" {
				rec, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(rec)
				}
				printDetail(rec)
				return nil
			}

			recs, err := st.ListRecent(cmd.Context(), last)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(os.Stderr, "no decisions logged")
				return nil
			}
			if jsonOut {
				return printJSON(recs)
			}
			counts, err := st.CountByMode(cmd.Context())
			if err != nil {
				return err
			}
			printList(recs, counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the answer log database")
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent decisions")
	cmd.Flags().StringVar(&id, "id", "", "show a single request in detail")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of a table")
	return cmd
}

// #endregion inspect

// #region render
func printList(recs []store.AnswerRecord, counts map[string]int) {
	fmt.Printf("%-36s  %-9s  %-23s  %6s  %4s  %7s  %s\n",
		"Request", "Mode", "Reason", "Top", "Hits", "Total", "Question")
	fmt.Printf("%s\n", strings.Repeat("-", 120))
	for _, r := range recs {
		top := "-"
		if r.TopScore != nil {
			top = fmt.Sprintf("%.3f", *r.TopScore)
		}
		fmt.Printf("%-36s  %-9s  %-23s  %6s  %4d  %5dms  %s\n",
			r.RequestID, r.Mode, r.Reason, top, r.HitsCount, r.TotalMS, truncate(r.Question, 40))
	}
	fmt.Printf("\nAll time: ALLOW=%d CLARIFY=%d NO_ANSWER=%d\n",
		counts["ALLOW"], counts["CLARIFY"], counts["NO_ANSWER"])
}

func printDetail(r store.AnswerRecord) {
	fmt.Printf("Request:   %s\n", r.RequestID)
	fmt.Printf("Created:   %s\n", r.CreatedAt.UTC().Format(envelope.TimestampLayout))
	fmt.Printf("User:      %s\n", r.UserID)
	fmt.Printf("Question:  %s\n", r.Question)
	fmt.Printf("Decision:  %s / %s\n", r.Mode, r.Reason)
	if r.ErrorStage != "" {
		fmt.Printf("Error:     %s: %s\n", r.ErrorStage, r.ErrorMessage)
	}
	th := r.Record.Thresholds
	fmt.Printf("Gate:      min_hits=%d t_clarify=%.2f t_allow=%.2f override=%.2f\n",
		th.MinHits, th.TClarify, th.TAllow, r.Record.OverrideScore)

	fmt.Printf("\nHits (%d):\n", len(r.Record.Hits))
	for _, h := range r.Record.Hits {
		fmt.Printf("  [%d] %.3f  %-24s  %s / %s\n", h.N, h.Score, h.ChunkID, h.Doc, h.Section)
	}

	if r.Record.ModelCalled {
		fmt.Printf("\nModel output:\n  %s\n", truncate(r.Record.Raw, 400))
	} else {
		fmt.Println("\nModel not called")
	}

	fmt.Printf("\nAnswer:\n  %s\n", r.Record.AnswerText)
	for _, q := range r.Record.Clarify {
		fmt.Printf("  ? %s\n", q)
	}
	for _, s := range r.Record.Sources {
		fmt.Printf("  source [%d] %s (%s / %s)\n", s.N, s.ChunkID, s.Doc, s.Section)
	}
}

// #endregion render
