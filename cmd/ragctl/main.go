package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/store"
)

// errDrift makes replay exit non-zero without printing a second message.
var errDrift = errors.New("replay drift")

// #region main
func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errDrift) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ragctl",
		Short:         "Inspect, export and replay logged support-bot decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newReplayCommand())
	return cmd
}

// #endregion main

// #region helpers
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, errors.New("--db is required")
	}
	st, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return st, nil
}

// loadRecords returns up to last logged decisions in chronological order.
func loadRecords(ctx context.Context, st *store.Store, last int) ([]logging.DecisionRecord, error) {
	recs, err := st.ListRecent(ctx, last)
	if err != nil {
		return nil, err
	}
	out := make([]logging.DecisionRecord, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r.Record
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// #endregion helpers
