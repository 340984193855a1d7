package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "agent",
		Short: "Order lifecycle and state reconciliation engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory containing config.yml")
	root.AddCommand(newRunCmd(), newSyncCmd(), newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
