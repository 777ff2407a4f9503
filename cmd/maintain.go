package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInit(); err != nil {
			return err
		}
		fmt.Printf("%d cached entries in %s\n", openCache().Len(), cfg.CachePath())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached analysis and suggestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInit(); err != nil {
			return err
		}
		if err := openCache().Clear(); err != nil {
			return err
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the session state",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		fmt.Println(sess.Summary())
		if last, ok := sess.LastScan(); ok {
			fresh := "fresh"
			if sess.NeedsRescan() {
				fresh = "stale"
			}
			fmt.Printf("Last scan: %s (%s)\n", last.Local().Format("2006-01-02 15:04"), fresh)
		}
		if focus, ok := sess.CurrentFocus(); ok {
			fmt.Printf("Current focus: %s\n", focus)
		}
		if cats := sess.TopCategories(); len(cats) > 0 {
			fmt.Printf("Frequent categories: %s\n", strings.Join(cats, ", "))
		}
		if history := sess.History(); len(history) > 0 {
			fmt.Println("Plan:")
			for i, h := range history {
				fmt.Printf("  %d. %s\n", i, h)
			}
		}
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget items, focus, notes and plan (feedback is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		if err := sess.Reset(); err != nil {
			return err
		}
		fmt.Println("Session reset.")
		return nil
	},
}
