// Package store persists normalized tickets in Postgres and answers the
// aggregate queries the reporting layer needs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tuannvm/adosync/internal/logging"
	"github.com/tuannvm/adosync/internal/models"
)

// Store wraps the tickets database. One import run is the only writer at a
// time; readers are safe concurrently.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with the given URL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the tickets table and its indexes if they do not exist. Runs
// must call this (or the init endpoint) once before the first import.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			priority TEXT,
			status TEXT,
			category TEXT,
			assignee TEXT,
			created_date TIMESTAMP,
			target_date TIMESTAMP,
			estimated_effort TEXT,
			tags TEXT[],
			project TEXT,
			work_item_type TEXT,
			state TEXT,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_priority ON tickets(priority)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_created_date ON tickets(created_date)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	logging.Infof("database initialized")
	return nil
}

const upsertSQL = `
	INSERT INTO tickets (
		id, title, description, priority, status, category, assignee,
		created_date, target_date, estimated_effort, tags,
		project, work_item_type, state
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		priority = EXCLUDED.priority,
		status = EXCLUDED.status,
		category = EXCLUDED.category,
		assignee = EXCLUDED.assignee,
		created_date = EXCLUDED.created_date,
		target_date = EXCLUDED.target_date,
		estimated_effort = EXCLUDED.estimated_effort,
		tags = EXCLUDED.tags,
		project = EXCLUDED.project,
		work_item_type = EXCLUDED.work_item_type,
		state = EXCLUDED.state,
		updated_at = NOW()`

// Upsert inserts or updates tickets by id. Repeated calls with the same input
// leave the stored state unchanged apart from updated_at.
func (s *Store) Upsert(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	for _, t := range tickets {
		if err := execUpsert(ctx, s.db, t); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAll swaps the stored set for the given one inside a single
// transaction, so readers never observe the intermediate empty table.
// Tickets absent from the new set are removed.
func (s *Store) ReplaceAll(ctx context.Context, tickets []models.Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets`); err != nil {
		return fmt.Errorf("failed to clear tickets: %w", err)
	}
	for _, t := range tickets {
		if err := execUpsert(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	logging.Infof("replaced stored tickets, new count: %d", len(tickets))
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execUpsert(ctx context.Context, db execer, t models.Ticket) error {
	_, err := db.ExecContext(ctx, upsertSQL,
		t.ID, t.Title, t.Description, string(t.Priority), t.Status.String(),
		string(t.Category), t.Assignee, nullIfEmpty(t.CreatedDate), nullIfEmpty(t.TargetDate),
		t.EstimatedEffort, pq.Array(t.Tags), t.Project, t.WorkItemType, t.State,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ticket %s: %w", t.ID, err)
	}
	return nil
}

// AllTickets returns the full stored set, newest created_date first. An
// uninitialized database reads as empty.
func (s *Store) AllTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, priority, status, category, assignee,
			created_date, target_date, estimated_effort, tags,
			project, work_item_type, state
		FROM tickets
		ORDER BY created_date DESC`)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var (
			t           models.Ticket
			description sql.NullString
			status      string
			createdDate sql.NullTime
			targetDate  sql.NullTime
			tags        pq.StringArray
		)
		err := rows.Scan(&t.ID, &t.Title, &description, &t.Priority, &status,
			&t.Category, &t.Assignee, &createdDate, &targetDate,
			&t.EstimatedEffort, &tags, &t.Project, &t.WorkItemType, &t.State)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		t.Description = description.String
		t.Status = models.StatusFromString(status)
		t.CreatedDate = formatTimestamp(createdDate)
		t.TargetDate = formatTimestamp(targetDate)
		t.Tags = tags
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tickets: %w", err)
	}
	return tickets, nil
}

// Stats computes aggregate counts server-side over the full stored set. An
// uninitialized database yields zero-valued stats.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{
		ByPriority: map[string]int{},
		ByStatus:   map[string]int{},
		ByAssignee: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&stats.Total)
	if err != nil {
		if isUndefinedTable(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	for column, dest := range map[string]map[string]int{
		"priority": stats.ByPriority,
		"status":   stats.ByStatus,
		"assignee": stats.ByAssignee,
	} {
		if err := s.groupCount(ctx, column, dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// groupCount fills dest with COUNT(*) grouped by the given column. The column
// name comes from a fixed internal set, never from caller input.
func (s *Store) groupCount(ctx context.Context, column string, dest map[string]int) error {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM tickets GROUP BY %s`, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			value sql.NullString
			count int
		)
		if err := rows.Scan(&value, &count); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		if value.Valid {
			dest[value.String] = count
		}
	}
	return rows.Err()
}

// isUndefinedTable reports whether err is Postgres "relation does not exist",
// which first-run reads treat as an empty result set.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}

// nullIfEmpty keeps empty timestamp strings out of TIMESTAMP columns.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func formatTimestamp(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339)
}
