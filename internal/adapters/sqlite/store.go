// Package sqlite provides SQLite-backed turn persistence: one database file
// per participant inside a session folder, matching the layout the review
// command consumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/parley-dev/parley/pkg/domain"
)

// Store implements ports.TurnStore over per-participant SQLite files.
type Store struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// New creates the session folder if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure session folder: %w", err)
	}
	return &Store{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

// Dir returns the session folder this store writes to.
func (s *Store) Dir() string { return s.dir }

// Close closes all open database handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, name)
	}
	return firstErr
}

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	round INTEGER PRIMARY KEY,
	participant_index INTEGER NOT NULL,
	prompt TEXT NOT NULL,
	response TEXT NOT NULL,
	convergence INTEGER,
	failed INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
`

// fileName maps a participant name to its database file, flattening path
// separators so a display name cannot escape the session folder.
func fileName(participant string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_").Replace(participant)
	return safe + ".db"
}

func (s *Store) open(participant string, create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[participant]; ok {
		return db, nil
	}

	path := filepath.Join(s.dir, fileName(participant))
	if !create {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, domain.ErrParticipantNotFound
			}
			return nil, fmt.Errorf("stat participant database: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	s.dbs[participant] = db
	return db, nil
}

// Record appends one turn. The round number is the primary key, so a second
// write for the same (participant, round) fails at the database layer.
func (s *Store) Record(ctx context.Context, turn *domain.Turn) error {
	db, err := s.open(turn.Participant, true)
	if err != nil {
		return err
	}

	var convergence sql.NullInt64
	if turn.Convergence != nil {
		convergence = sql.NullInt64{Int64: int64(*turn.Convergence), Valid: true}
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO turns (round, participant_index, prompt, response, convergence, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.Round, turn.ParticipantIndex, turn.Prompt, turn.Response, convergence, turn.Failed, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Participants lists participants by scanning the session folder for
// database files, sorted by name.
func (s *Store) Participants(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list session folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".db"))
	}
	sort.Strings(names)
	return names, nil
}

// Turns returns a participant's turns in round-descending order.
func (s *Store) Turns(ctx context.Context, participant string) ([]domain.Turn, error) {
	db, err := s.open(participant, false)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT round, participant_index, prompt, response, convergence, failed, created_at
		 FROM turns ORDER BY round DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []domain.Turn
	for rows.Next() {
		var (
			turn        domain.Turn
			convergence sql.NullInt64
		)
		if err := rows.Scan(&turn.Round, &turn.ParticipantIndex, &turn.Prompt, &turn.Response, &convergence, &turn.Failed, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if convergence.Valid {
			v := int(convergence.Int64)
			turn.Convergence = &v
		}
		turn.Participant = participant
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return turns, nil
}
