package main

import (
	"fmt"
	"os"

	"github.com/parley-dev/parley/internal/cli"
	"github.com/spf13/cobra"
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Serve the web UI for a recorded session",
	Long: `Starts a local web server over a recorded session so the discussion can
be read round by round, with responses collapsed to short previews.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.ReviewOptions{}
		opts.Dir, _ = cmd.Flags().GetString("dir")
		opts.RedisURL, _ = cmd.Flags().GetString("redis-url")
		opts.Prefix, _ = cmd.Flags().GetString("redis-prefix")
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.Debug, _ = cmd.Flags().GetBool("debug")

		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			opts.Dir = args[0]
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if err := cli.RunReview(ctx, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("dir", "", "Session folder to review")
	reviewCmd.Flags().String("redis-url", "", "Redis address (host:port) to review instead of a folder")
	reviewCmd.Flags().String("redis-prefix", "", "Key prefix of the session in Redis")
	reviewCmd.Flags().String("addr", ":8321", "Address to serve the review UI on")
}
