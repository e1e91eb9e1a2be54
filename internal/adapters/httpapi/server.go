// Package httpapi serves the session review UI and its JSON API over a
// recorded turn store.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
)

// Server exposes recorded turns for human review.
type Server struct {
	reader ports.TurnReader
	logger *slog.Logger
	title  string
}

type Option func(*Server)

// WithLogger sets the logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTitle sets the session title shown on the review page.
func WithTitle(title string) Option {
	return func(s *Server) {
		s.title = title
	}
}

// NewHandler builds the review HTTP handler.
func NewHandler(reader ports.TurnReader, opts ...Option) http.Handler {
	server := &Server{
		reader: reader,
		logger: slog.Default(),
		title:  "Consensus Review",
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/", server.ReviewPage)
	r.Get("/api/participants", server.ListParticipants)
	r.Get("/api/participants/{name}/turns", server.GetTurns)
	r.Get("/health", server.GetHealth)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListParticipants handles GET /api/participants.
func (s *Server) ListParticipants(w http.ResponseWriter, r *http.Request) {
	names, err := s.reader.Participants(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("List participants failed", "err", err)
		return
	}
	if names == nil {
		names = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		s.logger.Error("List response encode failed", "err", err)
	}
}

type turnResponse struct {
	Round       int    `json:"round"`
	Prompt      string `json:"prompt"`
	Response    string `json:"response"`
	Preview     string `json:"preview"`
	Convergence *int   `json:"convergence"`
	Failed      bool   `json:"failed"`
}

// GetTurns handles GET /api/participants/{name}/turns.
func (s *Server) GetTurns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	turns, err := s.reader.Turns(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			http.Error(w, fmt.Sprintf("Unknown participant: %s", name), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Turns error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Get turns failed", "participant", name, "err", err)
		return
	}

	resp := make([]turnResponse, len(turns))
	for i, turn := range turns {
		resp[i] = turnResponse{
			Round:       turn.Round,
			Prompt:      turn.Prompt,
			Response:    turn.Response,
			Preview:     turn.Preview(),
			Convergence: turn.Convergence,
			Failed:      turn.Failed,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Turns response encode failed", "err", err)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type reviewTurn struct {
	Round    int
	Preview  string
	Response string
	Score    string
	Failed   bool
}

type reviewParticipant struct {
	Name  string
	Turns []reviewTurn
}

type reviewData struct {
	Title        string
	Participants []reviewParticipant
}

// ReviewPage handles GET /: the server-rendered review page with collapsed
// response previews.
func (s *Server) ReviewPage(w http.ResponseWriter, r *http.Request) {
	names, err := s.reader.Participants(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Review page failed", "err", err)
		return
	}

	data := reviewData{Title: s.title}
	for _, name := range names {
		turns, err := s.reader.Turns(r.Context(), name)
		if err != nil {
			http.Error(w, fmt.Sprintf("Turns error: %v", err), http.StatusInternalServerError)
			s.logger.Error("Review page failed", "participant", name, "err", err)
			return
		}

		participant := reviewParticipant{Name: name}
		for _, turn := range turns {
			rt := reviewTurn{
				Round:    turn.Round,
				Preview:  turn.Preview(),
				Response: turn.Response,
				Failed:   turn.Failed,
			}
			if turn.Convergence != nil {
				rt.Score = fmt.Sprintf("%d%%", *turn.Convergence)
			}
			participant.Turns = append(participant.Turns, rt)
		}
		data.Participants = append(data.Participants, participant)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reviewTemplate.Execute(w, data); err != nil {
		s.logger.Error("Review template render failed", "err", err)
	}
}

var reviewTemplate = template.Must(template.New("review").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; background: #fafafa; }
h1 { font-size: 1.4rem; }
h2 { font-size: 1.1rem; margin-top: 2rem; }
details { background: #fff; border: 1px solid #ddd; border-radius: 4px; margin: 0.5rem 0; padding: 0.5rem 1rem; }
summary { cursor: pointer; }
pre { white-space: pre-wrap; }
.failed { color: #a00; }
.score { color: #060; font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Participants}}
<h2>{{.Name}}</h2>
{{range .Turns}}
<details>
<summary>Round {{.Round}}
{{- if .Failed}} <span class="failed">(failed)</span>
{{- else if .Score}} <span class="score">{{.Score}}</span>{{end}} | {{.Preview}}</summary>
<pre>{{.Response}}</pre>
</details>
{{end}}
{{end}}
</body>
</html>
`))
