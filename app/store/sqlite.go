package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/umputun/flipper/app/rotation"
)

// SQLite keeps states in task_states table, one row per task
type SQLite struct {
	db   *sqlx.DB
	path string
}

type stateRow struct {
	Name         string  `db:"name"`
	CurrentIndex int     `db:"current_index"`
	LastPerson   *string `db:"last_person"`
	LastFlipTime *int64  `db:"last_flip_time"` // unix nanos
	People       string  `db:"people"`         // json array
}

// NewSQLite opens (or creates) sqlite database and makes the schema
func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS task_states (
		name TEXT PRIMARY KEY,
		current_index INTEGER NOT NULL DEFAULT 0,
		last_person TEXT,
		last_flip_time INTEGER,
		people TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create task_states table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Load reads all rows. Rows with broken people list or invalid state are skipped.
func (s *SQLite) Load(ctx context.Context) (rotation.States, error) {
	rows := []stateRow{}
	if err := s.db.SelectContext(ctx, &rows, "SELECT name, current_index, last_person, last_flip_time, people FROM task_states"); err != nil {
		return rotation.States{}, fmt.Errorf("failed to query task states: %w", err)
	}

	states := rotation.States{}
	for _, r := range rows {
		st := &rotation.TaskState{CurrentIndex: r.CurrentIndex, LastPerson: r.LastPerson}
		if err := json.Unmarshal([]byte(r.People), &st.People); err != nil {
			log.Printf("[WARN] failed to parse people for %q: %v", r.Name, err)
			continue
		}
		if r.LastFlipTime != nil {
			ts := time.Unix(0, *r.LastFlipTime).UTC()
			st.LastFlipTime = &ts
		}
		states[r.Name] = st
	}
	return sanitize(states), nil
}

// Save replaces the whole table content with states in a single transaction
func (s *SQLite) Save(ctx context.Context, states rotation.States) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_states"); err != nil {
		return fmt.Errorf("failed to clear task states: %w", err)
	}

	for name, st := range states {
		if st == nil {
			continue
		}
		people, err := json.Marshal(st.People)
		if err != nil {
			return fmt.Errorf("failed to marshal people for %q: %w", name, err)
		}
		r := stateRow{Name: name, CurrentIndex: st.CurrentIndex, LastPerson: st.LastPerson, People: string(people)}
		if st.LastFlipTime != nil {
			ns := st.LastFlipTime.UnixNano()
			r.LastFlipTime = &ns
		}
		_, err = tx.NamedExecContext(ctx, `INSERT INTO task_states (name, current_index, last_person, last_flip_time, people)
			VALUES (:name, :current_index, :last_person, :last_flip_time, :people)`, r)
		if err != nil {
			return fmt.Errorf("failed to save state %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) String() string { return "sqlite:" + s.path }
