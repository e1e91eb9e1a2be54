package main

import (
	"fmt"
	"os"

	"github.com/parley-dev/parley/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file for consistency",
	Long:  `Parses the configuration file and reports missing fields, duplicate model names, or unsupported providers.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "config.json", "Path to the discussion configuration file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if !cmd.Flags().Changed("config") && len(args) > 0 {
		path = args[0]
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	return cfg.Validate()
}
