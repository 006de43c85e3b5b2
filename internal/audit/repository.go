// Package audit records switch history in the switch_events table.
//
// Events are a log only. The power state is always read back from the
// servos, never restored from here.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event actions.
const (
	// ActionSet is a power change requested through the API.
	ActionSet = "set"

	// ActionReset is the forced power-off at startup.
	ActionReset = "reset"
)

// Page size limits for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeFormat is fixed-width so created_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// ErrInvalidEvent is returned by Create for events missing required fields.
var ErrInvalidEvent = errors.New("audit: invalid switch event")

// SwitchEvent is one power change.
type SwitchEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Value      int       `json:"value"`
	Previous   *int      `json:"previous,omitempty"`
	Source     string    `json:"source"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter controls which events List returns.
type Filter struct {
	Action string // optional
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is one page of events, newest first.
type ListResult struct {
	Events []SwitchEvent `json:"events"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Repository stores and lists switch events.
type Repository interface {
	Create(ctx context.Context, event *SwitchEvent) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository is a Repository backed by SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts event. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, event *SwitchEvent) error {
	if event.Action == "" || event.Source == "" {
		return fmt.Errorf("%w: action and source are required", ErrInvalidEvent)
	}

	if event.ID == "" {
		event.ID = "sw-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC()

	var previous any
	if event.Previous != nil {
		previous = *event.Previous
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO switch_events (id, action, value, previous, source, remote_addr, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Action, event.Value, previous, event.Source,
		nullableString(event.RemoteAddr), nullableString(event.RequestID),
		event.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting switch event: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns a page of events, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where := ""
	var args []any
	if filter.Action != "" {
		where = "WHERE action = ?"
		args = append(args, filter.Action)
	}

	var total int
	//nolint:gosec // where is a constant clause with ? placeholders
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM switch_events "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting switch events: %w", err)
	}

	//nolint:gosec // where is a constant clause with ? placeholders
	query := "SELECT id, action, value, previous, source, remote_addr, request_id, created_at FROM switch_events " +
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying switch events: %w", err)
	}
	defer rows.Close()

	events := []SwitchEvent{}
	for rows.Next() {
		var e SwitchEvent
		var previous sql.NullInt64
		var remoteAddr, requestID sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Action, &e.Value, &previous, &e.Source,
			&remoteAddr, &requestID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning switch event: %w", err)
		}

		if previous.Valid {
			p := int(previous.Int64)
			e.Previous = &p
		}
		e.RemoteAddr = remoteAddr.String
		e.RequestID = requestID.String

		e.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing switch event timestamp %q: %w", createdAt, err)
		}

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating switch events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
