package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var feedbackContext string

func init() {
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringVar(&feedbackContext, "context", "", "context the suggestion was given in")
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Show dependencies between the items of the last scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		deps, err := a.orchestrator.Dependencies(a.session.Items())
		if err != nil {
			return err
		}
		if len(deps) == 0 {
			fmt.Println("No dependencies detected.")
			return nil
		}
		printDependencies(deps)
		return nil
	},
}

var focusCmd = &cobra.Command{
	Use:   "focus [item-id]",
	Short: "Show or set the item you are working on",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var id string
		if len(args) == 0 {
			current, ok := a.session.CurrentFocus()
			if !ok {
				fmt.Println("No current focus - run 'workfocus focus <item-id>'")
				return nil
			}
			id = current
		} else {
			id = args[0]
		}

		it, err := a.item(id)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := a.session.SetCurrentFocus(it.ID); err != nil {
				return err
			}
			if err := a.session.RecordRecent(it); err != nil {
				return err
			}
		}

		now := time.Now()
		fmt.Printf("Focus: %s - %s\n", it.ID, it.Title)
		fmt.Printf("Priority: %s | Status: %s | Age: %d days | Stale: %d days\n",
			it.Priority, it.Status, it.AgeDays(now), it.StaleDays(now))
		if len(it.Labels) > 0 {
			fmt.Printf("Labels: %s\n", strings.Join(it.Labels, ", "))
		}
		if note := a.session.Notes()[it.ID]; note != "" {
			fmt.Printf("Note: %s\n", note)
		}
		if m, ok, err := a.activity.Metric(cmd.Context(), it.ID); err == nil && ok {
			fmt.Printf("Activity: last %s, %d recent comments\n",
				m.LastActivity.Local().Format("2006-01-02 15:04"), m.RecentComments)
		}
		if it.Body != "" {
			fmt.Printf("\n%s\n", truncateShow(it.Body, 500))
		}
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <item-id> \"your note text\"",
	Short: "Attach a note to an item and post it to the source",
	Args:  cobra.MinimumNArgs(2),
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
		note := strings.Join(args[1:], " ")
		if err := a.session.AddNote(it.ID, note); err != nil {
			return err
		}
		posted, err := a.source.PostNote(cmd.Context(), it.ID, note)
		if err != nil || !posted {
			fmt.Printf("Note saved locally for %s (not posted: %v)\n", it.ID, err)
			return nil
		}
		fmt.Printf("Note saved and posted for %s\n", it.ID)
		return nil
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <item-id> good|bad",
	Short: "Rate the last suggestion for an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		if err := sess.RecordFeedback(args[0], feedbackContext, args[1]); err != nil {
			return err
		}
		fmt.Printf("Feedback recorded for %s\n", args[0])
		return nil
	},
}

func truncateShow(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
