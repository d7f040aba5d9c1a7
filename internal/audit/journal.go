package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcomes of a journaled intent.
const (
	OutcomeComplete  = "complete"
	OutcomeStopped   = "stopped"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Entry is one journaled intent.
type Entry struct {
	ID        string        `json:"id"`
	Intent    string        `json:"intent"`
	NetworkID int64         `json:"network_id,omitempty"`
	CameraID  int64         `json:"camera_id,omitempty"`
	CommandID int64         `json:"command_id,omitempty"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
	Source    string        `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Intent    string // optional: arm, disarm, motion_enable, ...
	NetworkID int64  // optional
	CameraID  int64  // optional
	Outcome   string // optional
	Limit     int    // default 50, max 200
	Offset    int
}

// ListResult is a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Journal is the command journal store.
type Journal interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteJournal stores the journal in SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal creates a journal over an already migrated database.
func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// Record inserts e. ID, CreatedAt and Source are filled in when empty.
func (j *SQLiteJournal) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Source == "" {
		e.Source = "internal"
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO command_journal (id, intent, network_id, camera_id, command_id, outcome, error, duration_ms, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Intent, e.NetworkID, e.CameraID, e.CommandID,
		e.Outcome, nullableString(e.Error), e.Duration.Milliseconds(), e.Source,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// MarshalJSON reports Duration in milliseconds.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain(e), e.Duration.Milliseconds()})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (j *SQLiteJournal) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Intent != "" {
		conditions = append(conditions, "intent = ?")
		args = append(args, filter.Intent)
	}
	if filter.NetworkID != 0 {
		conditions = append(conditions, "network_id = ?")
		args = append(args, filter.NetworkID)
	}
	if filter.CameraID != 0 {
		conditions = append(conditions, "camera_id = ?")
		args = append(args, filter.CameraID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_journal " + where //nolint:gosec // parameterised conditions only
	if err := j.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := "SELECT id, intent, network_id, camera_id, command_id, outcome, error, duration_ms, source, created_at " + //nolint:gosec // parameterised conditions only
		"FROM command_journal " + where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			errText    sql.NullString
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.Intent, &e.NetworkID, &e.CameraID, &e.CommandID,
			&e.Outcome, &errText, &durationMS, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Error = errText.String
		e.Duration = time.Duration(durationMS) * time.Millisecond

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Prune deletes entries older than maxAge and returns how many were removed.
func (j *SQLiteJournal) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	res, err := j.db.ExecContext(ctx, "DELETE FROM command_journal WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return n, nil
}
