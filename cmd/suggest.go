package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"workfocus/internal/analysis"
	"workfocus/internal/workitem"
)

var (
	suggestContext string
	suggestForce   bool
)

func init() {
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(planCmd)

	suggestCmd.Flags().StringVar(&suggestContext, "context", "", "what you are trying to do with the item")
	suggestCmd.Flags().BoolVar(&suggestForce, "force", false, "ignore a cached suggestion")
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <item-id>",
	Short: "Suggest the next action for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		it, err := a.item(args[0])
		if err != nil {
			return err
		}
		s := a.orchestrator.SuggestAction(cmd.Context(), it, suggestContext, analysis.SuggestOptions{Force: suggestForce})

		switch s.Source {
		case workitem.SourceCache:
			fmt.Println("(cached suggestion - use --force for a new one)")
		case workitem.SourceFallback:
			fmt.Println("(provider unavailable - generic suggestion)")
		}
		fmt.Printf("Suggestion for %s:\n\n%s\n", it.ID, s.Text)
		fmt.Printf("\nRate it with 'workfocus feedback %s good|bad'\n", it.ID)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [goal...]",
	Short: "Start a plan toward a goal, or continue the current plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		step, err := a.orchestrator.Plan(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		history := a.session.History()
		fmt.Printf("Step %d: %s\n", len(history)-1, step)
		return nil
	},
}
