package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"workfocus/internal/config"
	"workfocus/internal/store"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize workfocus in the project directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := projectRoot
		configFile := filepath.Join(root, config.DirName, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			fmt.Printf("Already initialized - %s exists\n", configFile)
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.DefaultConfig().Save(root); err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		st, err := store.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		st.Close()
		kb, err := store.NewKnowledge(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		kb.Close()

		fmt.Printf("Initialized workfocus in %s\n", root)
		fmt.Printf("Config written to %s\n", configFile)
		fmt.Printf("Export your work items to %s, then run 'workfocus scan'\n", cfg.ItemsPath())
		return nil
	},
}
