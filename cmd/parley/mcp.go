package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/parley-dev/parley/internal/cli"
	"github.com/parley-dev/parley/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server over a recorded session",
	Long: `Exposes a recorded session as an MCP Server.
This allows AI agents (like Claude Desktop) to browse participants and their
turns as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		redisURL, _ := cmd.Flags().GetString("redis-url")
		prefix, _ := cmd.Flags().GetString("redis-prefix")
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}

		// Configure logger
		opts := &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		store, closeStore, err := cli.OpenReviewStore(cli.ReviewOptions{
			Dir:      dir,
			RedisURL: redisURL,
			Prefix:   prefix,
		})
		if err != nil {
			log.Fatalf("Error opening session store: %v", err)
		}
		defer closeStore()

		srv := mcp.NewServer(store)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			slog.Info("Starting Parley MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP Server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting Parley MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				if err != http.ErrServerClosed {
					slog.Error("MCP Server execution failed", "error", err)
					os.Exit(1)
				}
			}
			slog.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("dir", "", "Session folder to expose")
	mcpCmd.Flags().String("redis-url", "", "Redis address (host:port) to expose instead of a folder")
	mcpCmd.Flags().String("redis-prefix", "", "Key prefix of the session in Redis")
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
