package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"
	"inventory-monitor/core/reconcile"
	"inventory-monitor/core/snapshot"
	"inventory-monitor/core/source"
	"inventory-monitor/feature/dumpsource"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var diffJSON bool

// diffCmd classifies the differences between two dumps of the same scope.
var diffCmd = &cobra.Command{
	Use:   "diff [before.yaml] [after.yaml]",
	Short: "Show the semantic changes between two dumps of one scope",
	Long: `Loads both dumps into a snapshot store, collects the slot transitions and
runs them through the reconciliation engine without starting the monitor.

Examples:
  # Human readable report
  diff dumps/character.yaml /tmp/character.yaml

  # Machine readable report
  diff before.yaml after.yaml --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logg, err := logger.New(&logger.Config{Level: "warn", Format: "console"})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		before, err := dumpsource.ParseFile(args[0])
		if err != nil {
			return err
		}
		after, err := dumpsource.ParseFile(args[1])
		if err != nil {
			return err
		}

		report, err := diffDumps(before, after, logg)
		if err != nil {
			return err
		}
		if diffJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printDiff(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Print the report as JSON")
	RootCmd.AddCommand(diffCmd)
}

// diffReport is the outcome of comparing two dumps.
type diffReport struct {
	Scope   inventory.ScopeID  `json:"scope"`
	Changes []inventory.Change `json:"changes"`
	Summary reconcile.Summary  `json:"summary"`
}

// diffDumps replays before then after through a store and classifies the
// transitions. Containers missing from after are compared against empty slots.
func diffDumps(before, after *dumpsource.Dump, logg *zap.Logger) (*diffReport, error) {
	if before.Scope != after.Scope {
		return nil, fmt.Errorf("dumps belong to different scopes: %s and %s", before.Scope, after.Scope)
	}

	store := snapshot.NewStore()
	for _, kind := range before.Kinds() {
		store.Update(before.Scope, kind, source.ApplyOrder(before.Containers[kind], before.Order[kind], logg))
	}

	kinds := after.Kinds()
	for _, kind := range before.Kinds() {
		if _, ok := after.Containers[kind]; !ok {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	cs := snapshot.NewChangeset()
	for _, kind := range kinds {
		slots, ok := after.Containers[kind]
		if !ok {
			slots = make([]inventory.StackDescriptor, kind.SlotCount())
		}
		cs.Add(store.Update(after.Scope, kind, source.ApplyOrder(slots, after.Order[kind], logg))...)
	}

	transitions := cs.Transitions()
	changes, summary := reconcile.Classify(transitions)
	if err := reconcile.Verify(transitions, changes); err != nil {
		logg.Warn("Changes do not account for every transition", zap.Error(err))
	}
	return &diffReport{Scope: after.Scope, Changes: changes, Summary: summary}, nil
}

func describeChange(c inventory.Change) string {
	switch c.Kind {
	case inventory.ChangeAdded:
		return fmt.Sprintf("+ %s x%d at %s", c.To.Stack.Item, c.Quantity, c.To.Slot)
	case inventory.ChangeRemoved:
		return fmt.Sprintf("- %s x%d from %s", c.From.Stack.Item, c.Quantity, c.From.Slot)
	case inventory.ChangeMoved:
		return fmt.Sprintf("> %s x%d %s -> %s", c.Item(), c.Quantity, c.From.Slot, c.To.Slot)
	case inventory.ChangeQuantityChanged:
		return fmt.Sprintf("~ %s now x%d at %s (%+d)", c.Item(), c.Quantity, c.To.Slot, c.Delta)
	default:
		return fmt.Sprintf("* %s attributes changed at %s", c.Item(), c.To.Slot)
	}
}

func printDiff(w io.Writer, r *diffReport) {
	fmt.Fprintf(w, "\n--- Changes for %s ---\n", r.Scope)
	if len(r.Changes) == 0 {
		fmt.Fprintln(w, "No changes.")
	}
	for _, c := range r.Changes {
		fmt.Fprintln(w, describeChange(c))
	}
	fmt.Fprintln(w, "-----------------------------")
	fmt.Fprintf(w, "Transitions:    %d\n", r.Summary.Transitions)
	fmt.Fprintf(w, "Conserved:      %d\n", r.Summary.Conserved)
	fmt.Fprintf(w, "Relinked:       %d\n", r.Summary.Relinked)
	fmt.Fprintf(w, "Resolved:       %d\n", r.Summary.Resolved)
	fmt.Fprintf(w, "Fallbacks:      %d\n", r.Summary.Fallbacks)
}
