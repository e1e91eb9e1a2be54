// Package mcp exposes a recorded consensus session as an MCP server, so
// agent tooling can browse participants and their turns.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/parley-dev/parley"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
)

// TurnSummary is the wire shape for a recorded turn.
type TurnSummary struct {
	Round       int    `json:"round" jsonschema_description:"Discussion round number, starting at 1"`
	Response    string `json:"response" jsonschema_description:"The participant's full response text"`
	Preview     string `json:"preview" jsonschema_description:"Short preview of the response"`
	Convergence *int   `json:"convergence,omitempty" jsonschema_description:"Extracted convergence percentage, absent when extraction failed"`
	Failed      bool   `json:"failed,omitempty" jsonschema_description:"True when the provider call failed for this round"`
}

// TurnsResponse is the structured result of the get_turns tool.
type TurnsResponse struct {
	Participant string        `json:"participant"`
	Turns       []TurnSummary `json:"turns" jsonschema_description:"Turns in round-descending order"`
}

// Server wraps a TurnReader and exposes it as an MCP Server.
type Server struct {
	reader    ports.TurnReader
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance over recorded turns.
func NewServer(reader ports.TurnReader) *Server {
	s := &Server{
		reader:    reader,
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(parley.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_participants
	s.mcpServer.AddTool(mcp.NewTool("list_participants",
		mcp.WithDescription("List the participants with recorded turns in this session."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.reader.Participants(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(names)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_turns
	turnsTool := mcp.NewTool("get_turns",
		mcp.WithDescription("Get a participant's recorded turns, latest round first."),
		mcp.WithString("participant", mcp.Required(), mcp.Description("Participant name as returned by list_participants")),
		mcp.WithOutputSchema[TurnsResponse](),
	)
	s.mcpServer.AddTool(turnsTool, mcp.NewStructuredToolHandler(s.handleGetTurns))
}

func (s *Server) handleGetTurns(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnsResponse, error) {
	name, _ := args["participant"].(string)

	turns, err := s.reader.Turns(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return TurnsResponse{}, fmt.Errorf("unknown participant: %s", name)
		}
		return TurnsResponse{}, fmt.Errorf("read turns failed: %w", err)
	}

	resp := TurnsResponse{Participant: name, Turns: make([]TurnSummary, len(turns))}
	for i, turn := range turns {
		resp.Turns[i] = TurnSummary{
			Round:       turn.Round,
			Response:    turn.Response,
			Preview:     turn.Preview(),
			Convergence: turn.Convergence,
			Failed:      turn.Failed,
		}
	}
	return resp, nil
}

func (s *Server) registerResources() {
	// EXPOSE: parley://participants
	s.mcpServer.AddResource(mcp.NewResource("parley://participants", "Session Participants",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.reader.Participants(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list participants: %w", err)
		}
		jsonBytes, _ := json.Marshal(names)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "parley://participants",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
