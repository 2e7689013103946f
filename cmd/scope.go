package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"inventory-monitor/core/config"
	"inventory-monitor/core/inventory"
	"inventory-monitor/feature/dumpsource"

	"github.com/spf13/cobra"
)

// scopeCmd lists the scopes of the dump directory or shows the totals of one.
var scopeCmd = &cobra.Command{
	Use:   "scope [scope]",
	Short: "List dumped scopes or show the item totals of one scope",
	Long:  `Without arguments, lists every scope found in the dump directory. With a scope such as "retainer:33000000001", prints its per item totals.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		scopes, _, err := inspectDumps(cfg.Monitor.DumpDir)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			printScopes(cmd.OutOrStdout(), scopes)
			return nil
		}

		scope, err := inventory.ParseScopeID(args[0])
		if err != nil {
			return err
		}
		file, ok := scopes[scope]
		if !ok {
			return fmt.Errorf("%w: no dump for %s", inventory.ErrUnknownScope, scope)
		}
		d, err := dumpsource.ParseFile(filepath.Join(cfg.Monitor.DumpDir, file))
		if err != nil {
			return err
		}
		printTotals(cmd.OutOrStdout(), d)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scopeCmd)
}

func printScopes(w io.Writer, scopes map[inventory.ScopeID]string) {
	ids := make([]inventory.ScopeID, 0, len(scopes))
	for scope := range scopes {
		ids = append(ids, scope)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	fmt.Fprintln(w, "\n--- Dumped Scopes ---")
	for _, scope := range ids {
		fmt.Fprintf(w, "%-32s %s\n", scope, scopes[scope])
	}
	fmt.Fprintf(w, "Total: %d\n", len(ids))
}

// dumpTotals sums quantities per item across every container of d.
func dumpTotals(d *dumpsource.Dump) map[inventory.ItemIdentity]uint64 {
	totals := make(map[inventory.ItemIdentity]uint64)
	for _, stacks := range d.Containers {
		for _, stack := range stacks {
			if !stack.IsEmpty() {
				totals[stack.Item] += uint64(stack.Quantity)
			}
		}
	}
	return totals
}

func printTotals(w io.Writer, d *dumpsource.Dump) {
	totals := dumpTotals(d)
	items := make([]inventory.ItemIdentity, 0, len(totals))
	for item := range totals {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ItemID != items[j].ItemID {
			return items[i].ItemID < items[j].ItemID
		}
		return !items[i].HQ && items[j].HQ
	})

	fmt.Fprintf(w, "\n--- Totals for %s ---\n", d.Scope)
	for _, item := range items {
		fmt.Fprintf(w, "%-12s %d\n", item, totals[item])
	}
	fmt.Fprintf(w, "Containers: %d  Items: %d\n", len(d.Containers), len(items))
}
