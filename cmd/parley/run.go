package main

import (
	"fmt"
	"os"

	"github.com/parley-dev/parley/internal/cli"
	"github.com/parley-dev/parley/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a consensus discussion",
	Long: `Starts a mediation session: every configured model answers the research
prompt, then discusses the panel's answers round by round until consensus
is reached or the round limit is hit.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Title, _ = cmd.Flags().GetString("prompt-title")
		opts.ResearchPrompt, _ = cmd.Flags().GetString("research-prompt")
		opts.MaxRounds, _ = cmd.Flags().GetInt("max-interactions")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.RedisURL, _ = cmd.Flags().GetString("redis-url")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		opts.Render, _ = cmd.Flags().GetBool("render")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Debug, _ = cmd.Flags().GetBool("debug")

		if !opts.Quiet {
			tui.PrintBanner()
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if err := cli.RunMediation(ctx, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "config.json", "Path to the discussion configuration file")
	runCmd.Flags().String("prompt-title", "", "Short title for this session (used for the session folder)")
	runCmd.Flags().String("research-prompt", "", "The research question the panel discusses")
	runCmd.Flags().Int("max-interactions", 5, "Maximum number of discussion rounds")
	runCmd.Flags().String("store", "sqlite", "Turn store backend: sqlite, redis, or memory")
	runCmd.Flags().String("redis-url", "", "Redis address (host:port) when --store=redis")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
	runCmd.Flags().Bool("render", false, "Render final positions as styled markdown")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")

	_ = runCmd.MarkFlagRequired("prompt-title")
	_ = runCmd.MarkFlagRequired("research-prompt")
}
