package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workfocus/internal/activity"
	"workfocus/internal/store"
)

var pollOnce bool

func init() {
	rootCmd.AddCommand(activityCmd)
	activityCmd.AddCommand(activityPollCmd)
	activityCmd.AddCommand(activityListCmd)
	activityCmd.AddCommand(activityShowCmd)

	activityPollCmd.Flags().BoolVar(&pollOnce, "once", false, "run a single poll and exit")
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Track per-item engagement from the activity feed",
}

var activityPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the activity feed until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInit(); err != nil {
			return err
		}
		st, err := store.New(cfg.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := activity.New(activity.Config{
			Feed: &activity.HTTPFeed{
				URL:      cfg.Feed.URL,
				Username: cfg.Feed.Username,
				Password: cfg.Feed.Password,
			},
			Sink:     st,
			Owner:    cfg.Owner,
			Interval: cfg.Feed.Interval,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		if pollOnce {
			n, err := p.Tick(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Updated activity for %d items\n", n)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h, err := p.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Polling %s every %s (Ctrl-C to stop)\n", cfg.Feed.URL, cfg.Feed.Interval)
		<-ctx.Done()

		grace, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Stop(grace); err != nil {
			logger.Warn("poller did not stop in time", zap.Error(err))
		}
		return nil
	},
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored activity metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInit(); err != nil {
			return err
		}
		st, err := store.New(cfg.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		metrics, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			fmt.Println("No activity recorded - run 'workfocus activity poll --once'")
			return nil
		}
		fmt.Printf("%-14s %-18s %-9s %-6s %s\n", "ITEM", "LAST ACTIVITY", "COMMENTS", "DAYS", "OWNER ACTIVE")
		fmt.Println("─────────────────────────────────────────────────────────────────")
		for _, m := range metrics {
			fmt.Printf("%-14s %-18s %-9d %-6d %v\n",
				m.ItemID, m.LastActivity.Local().Format("2006-01-02 15:04"),
				m.RecentComments, m.DaysSinceActivity, m.OwnerRecentlyActive)
		}
		return nil
	},
}

var activityShowCmd = &cobra.Command{
	Use:   "show <item-id>",
	Short: "Show the activity metric of one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInit(); err != nil {
			return err
		}
		st, err := store.New(cfg.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		m, ok, err := st.Metric(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no activity recorded for %s", args[0])
		}
		fmt.Printf("Item:              %s\n", m.ItemID)
		fmt.Printf("Last activity:     %s\n", m.LastActivity.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Recent comments:   %d\n", m.RecentComments)
		fmt.Printf("Days since:        %d\n", m.DaysSinceActivity)
		fmt.Printf("Owner active:      %v\n", m.OwnerRecentlyActive)
		fmt.Printf("Updated:           %s\n", m.UpdatedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}
