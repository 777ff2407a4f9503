package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"workfocus/internal/analysis"
	"workfocus/internal/workitem"
)

var (
	scanForce bool
	scanStale bool
	scanCopy  bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanForce, "force", false, "fetch items even when the last scan is still fresh")
	scanCmd.Flags().BoolVar(&scanStale, "stale", false, "reuse the last snapshot even when it is older than the freshness window")
	scanCmd.Flags().BoolVar(&scanCopy, "copy", false, "copy the analysis summary to the clipboard")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Load work items and show what to focus on",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !scanForce && !scanStale && a.session.NeedsRescan() {
			if _, ok := a.session.LastScan(); ok {
				fmt.Println("Last scan is older than the freshness window - fetching again (use --stale to reuse it)")
			}
		}

		report, err := a.workflow().Scan(ctx, analysis.ScanOptions{Force: scanForce, AllowStale: scanStale})
		if err != nil {
			return err
		}
		if report.Resumed {
			fmt.Println(a.session.Summary())
		}
		if len(report.Items) == 0 {
			fmt.Println("No open work items found.")
			return nil
		}

		printAnalysis(report.Outcome)
		printDependencies(report.Dependencies)

		if scanCopy {
			if err := clipboard.WriteAll(report.Outcome.Result.Summary); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
			} else {
				fmt.Println("Summary copied to clipboard!")
			}
		}
		return nil
	},
}

func printAnalysis(out analysis.Outcome) {
	res := out.Result
	marker := ""
	if res.Source == workitem.SourceFallback {
		marker = " (fallback ranking, provider unavailable)"
	}
	fmt.Printf("Analysis%s\n", marker)
	fmt.Println("─────────────────────────────────────────────────────────────────")
	fmt.Println(res.Summary)
	fmt.Println()

	if res.TopPriority == nil {
		return
	}
	top := res.TopPriority
	fmt.Printf("Top priority: %s - %s\n", top.ID, top.Title)
	fmt.Printf("Priority: %s | Status: %s | Comments: %d\n", top.Priority, top.Status, top.CommentCount)
	fmt.Printf("Why: %s\n", res.Reasoning)
	printList("Next steps", res.NextSteps)
	printList("I can help with", res.CanHelpWith)
	if len(res.OtherNotable) > 0 {
		fmt.Println("Also notable:")
		for _, it := range res.OtherNotable {
			fmt.Printf("  %-12s %-10s %s\n", it.ID, it.Priority, it.Title)
		}
	}
}

func printList(title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, l := range lines {
		fmt.Printf("  - %s\n", l)
	}
}

func printDependencies(deps map[string][]string) {
	if len(deps) == 0 {
		return
	}
	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Println("\nDependencies:")
	for _, id := range ids {
		fmt.Printf("  %s -> %s\n", id, strings.Join(deps[id], ", "))
	}
}
