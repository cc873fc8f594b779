package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rite/internal/etl"
)

// Run triggers.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerWatch    = "watch"
)

// RunLog is one persisted run of a process.
type RunLog struct {
	etl.RunResult
	Trigger string `json:"trigger"`
}

// ProcessStatus is the latest known state of a process.
type ProcessStatus struct {
	ProcessID  string     `json:"processId"`
	LastRunID  string     `json:"lastRunId"`
	LastRunAt  *time.Time `json:"lastRunAt,omitempty"`
	LastStatus string     `json:"lastStatus"`
	LastError  string     `json:"lastError,omitempty"`
	RunCount   int        `json:"runCount"`
}

// RunStore persists run logs and per-process status.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// ── Run Logs ───────────────────────────────────────────────

// CreateRunLog stores l and bumps the status row of its process in one
// transaction. An empty RunID gets a fresh one.
func (s *RunStore) CreateRunLog(l *RunLog) error {
	if l.RunID == "" {
		l.RunID = uuid.New().String()
	}
	if l.Trigger == "" {
		l.Trigger = TriggerManual
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO run_logs (id, process_id, trigger_type, status, records_read, records_dropped,
		 records_written, started_at, finished_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.RunID, l.ProcessID, l.Trigger, l.Status, l.RecordsRead, l.RecordsDropped,
		l.RecordsWritten, l.StartedAt, l.FinishedAt, l.Duration.Milliseconds(), l.Error,
	); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO process_status (process_id, last_run_id, last_run_at, last_status, last_error, run_count)
		 VALUES (?, ?, ?, ?, ?, 1)
		 ON CONFLICT(process_id) DO UPDATE SET
		 last_run_id=excluded.last_run_id, last_run_at=excluded.last_run_at,
		 last_status=excluded.last_status, last_error=excluded.last_error,
		 run_count=process_status.run_count + 1`,
		l.ProcessID, l.RunID, l.StartedAt, l.Status, l.Error,
	); err != nil {
		return fmt.Errorf("update process status: %w", err)
	}
	return tx.Commit()
}

// ListRunLogs returns the latest runs of processID, newest first. An
// empty processID lists runs of every process.
func (s *RunStore) ListRunLogs(processID string, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, process_id, trigger_type, status, records_read, records_dropped, records_written,
		 started_at, finished_at, duration_ms, error FROM run_logs`
	args := []any{}
	if processID != "" {
		query += ` WHERE process_id = ?`
		args = append(args, processID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		var ms int64
		if err := rows.Scan(&l.RunID, &l.ProcessID, &l.Trigger, &l.Status, &l.RecordsRead, &l.RecordsDropped,
			&l.RecordsWritten, &l.StartedAt, &l.FinishedAt, &ms, &l.Error); err != nil {
			return nil, err
		}
		l.Duration = time.Duration(ms) * time.Millisecond
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// PruneRunLogs keeps the newest keep runs of processID and deletes the
// rest, returning how many were removed.
func (s *RunStore) PruneRunLogs(processID string, keep int) (int64, error) {
	res, err := s.db.conn.Exec(
		`DELETE FROM run_logs WHERE process_id = ? AND id NOT IN (
		 SELECT id FROM run_logs WHERE process_id = ? ORDER BY started_at DESC LIMIT ?)`,
		processID, processID, keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ── Process Status ─────────────────────────────────────────

// GetStatus returns the status of processID, or nil when it never ran.
func (s *RunStore) GetStatus(processID string) (*ProcessStatus, error) {
	st := &ProcessStatus{}
	var lastRunAt sql.NullTime
	err := s.db.conn.QueryRow(
		`SELECT process_id, last_run_id, last_run_at, last_status, last_error, run_count
		 FROM process_status WHERE process_id = ?`, processID,
	).Scan(&st.ProcessID, &st.LastRunID, &lastRunAt, &st.LastStatus, &st.LastError, &st.RunCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastRunAt.Valid {
		st.LastRunAt = &lastRunAt.Time
	}
	return st, nil
}

// ListStatuses returns the status of every process that ran, by id.
func (s *RunStore) ListStatuses() ([]ProcessStatus, error) {
	rows, err := s.db.conn.Query(
		`SELECT process_id, last_run_id, last_run_at, last_status, last_error, run_count
		 FROM process_status ORDER BY process_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProcessStatus
	for rows.Next() {
		var st ProcessStatus
		var lastRunAt sql.NullTime
		if err := rows.Scan(&st.ProcessID, &st.LastRunID, &lastRunAt, &st.LastStatus, &st.LastError, &st.RunCount); err != nil {
			return nil, err
		}
		if lastRunAt.Valid {
			t := lastRunAt.Time
			st.LastRunAt = &t
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteProcess removes all history of processID.
func (s *RunStore) DeleteProcess(processID string) error {
	if _, err := s.db.conn.Exec(`DELETE FROM run_logs WHERE process_id = ?`, processID); err != nil {
		return err
	}
	_, err := s.db.conn.Exec(`DELETE FROM process_status WHERE process_id = ?`, processID)
	return err
}
