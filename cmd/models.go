package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"workfocus/internal/provider"
)

func init() {
	rootCmd.AddCommand(modelsCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known reasoning models and their prompt budgets",
	Run: func(cmd *cobra.Command, args []string) {
		active := provider.ProfileFor(cfg.Provider)

		fmt.Printf("  %-14s %-8s %-24s %-9s %-8s %s\n", "KEY", "PROVIDER", "MODEL", "CONTEXT", "BUDGET", "DESCRIPTION")
		fmt.Println("──────────────────────────────────────────────────────────────────────────────────────")
		for _, m := range provider.ListModels() {
			mark := " "
			if m.Key == active.Key {
				mark = "*"
			}
			fmt.Printf("%s %-14s %-8s %-24s %-9s %-8s %s\n", mark, m.Key, m.Provider, m.Model,
				formatTokens(m.ContextLimit), formatTokens(m.PromptBudget()), m.Description)
		}
	},
}

func formatTokens(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%dM", n/1000000)
	}
	return fmt.Sprintf("%dK", n/1000)
}
