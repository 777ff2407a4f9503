package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"workfocus/internal/capture"
	"workfocus/internal/store"
)

var (
	learnFile    string
	learnSince   string
	learnCommits int
)

func init() {
	rootCmd.AddCommand(learnCmd)
	learnCmd.AddCommand(learnGitCmd)

	learnCmd.Flags().StringVarP(&learnFile, "file", "f", "", "read the resolution from a file")
	learnGitCmd.Flags().StringVar(&learnSince, "since", "30 days ago", "only look at commits after this date")
	learnGitCmd.Flags().IntVarP(&learnCommits, "commits", "n", 200, "maximum commits to scan")
}

var learnCmd = &cobra.Command{
	Use:   "learn <item-id> <summary> [resolution]",
	Short: "Record how an item was resolved",
	Long: `Stores a resolved item in the knowledge base. Suggestions for new items
with similar titles quote these resolutions.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolution := ""
		if len(args) == 3 {
			resolution = args[2]
		}
		if learnFile != "" {
			text, err := capture.ReadResolutionFile(learnFile)
			if err != nil {
				return err
			}
			resolution = text
		}
		if resolution == "" {
			return fmt.Errorf("provide a resolution argument or --file")
		}

		kb, err := openKnowledge()
		if err != nil {
			return err
		}
		defer kb.Close()

		if err := capture.AddManual(cmd.Context(), kb, args[0], args[1], resolution); err != nil {
			return err
		}
		fmt.Printf("Learned resolution for %s\n", args[0])
		return nil
	},
}

var learnGitCmd = &cobra.Command{
	Use:   "git",
	Short: "Import resolutions from commits that mention item ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKnowledge()
		if err != nil {
			return err
		}
		defer kb.Close()

		n, err := capture.ImportGit(cmd.Context(), kb, projectRoot, learnSince, learnCommits)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("No commits referencing work items found.")
			return nil
		}
		fmt.Printf("Imported %d resolutions from git history\n", n)
		return nil
	},
}

func openKnowledge() (*store.Knowledge, error) {
	if err := requireInit(); err != nil {
		return nil, err
	}
	return store.NewKnowledge(cfg.DataDir)
}
