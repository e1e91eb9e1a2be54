package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley mediates a consensus discussion between LLM panels",
	Long: `Parley orchestrates repeated discussion rounds between multiple large
language models until they converge on a shared position or a round limit
is reached. Each round, every participant sees the latest positions of its
peers and reports how far it agrees with them.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}
