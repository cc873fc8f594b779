package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rite/internal/etl"
)

func openStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "state", "rite.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunStore(db)
}

func runLog(process, status string, started time.Time) *RunLog {
	return &RunLog{RunResult: etl.RunResult{
		ProcessID:      process,
		Status:         status,
		RecordsRead:    10,
		RecordsDropped: 2,
		RecordsWritten: 8,
		StartedAt:      started,
		FinishedAt:     started.Add(1500 * time.Millisecond),
		Duration:       1500 * time.Millisecond,
	}}
}

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rite.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())
}

func TestCreateAndListRunLogs(t *testing.T) {
	s := openStore(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := runLog("import", etl.StatusSuccess, base)
	require.NoError(t, s.CreateRunLog(first))
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, TriggerManual, first.Trigger)

	second := runLog("import", etl.StatusError, base.Add(time.Minute))
	second.Error = "boom"
	second.Trigger = TriggerSchedule
	require.NoError(t, s.CreateRunLog(second))
	require.NoError(t, s.CreateRunLog(runLog("other", etl.StatusSuccess, base)))

	logs, err := s.ListRunLogs("import", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, second.RunID, logs[0].RunID)
	assert.Equal(t, "boom", logs[0].Error)
	assert.Equal(t, TriggerSchedule, logs[0].Trigger)
	assert.Equal(t, 8, logs[1].RecordsWritten)
	assert.Equal(t, 2, logs[1].RecordsDropped)
	assert.Equal(t, 1500*time.Millisecond, logs[1].Duration)
	assert.True(t, logs[1].StartedAt.Equal(base))

	all, err := s.ListRunLogs("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProcessStatus(t *testing.T) {
	s := openStore(t)
	none, err := s.GetStatus("import")
	require.NoError(t, err)
	assert.Nil(t, none)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateRunLog(runLog("import", etl.StatusSuccess, base)))
	failed := runLog("import", etl.StatusError, base.Add(time.Hour))
	failed.Error = "source went away"
	require.NoError(t, s.CreateRunLog(failed))

	st, err := s.GetStatus("import")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 2, st.RunCount)
	assert.Equal(t, failed.RunID, st.LastRunID)
	assert.Equal(t, etl.StatusError, st.LastStatus)
	assert.Equal(t, "source went away", st.LastError)
	require.NotNil(t, st.LastRunAt)
	assert.True(t, st.LastRunAt.Equal(base.Add(time.Hour)))

	list, err := s.ListStatuses()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "import", list[0].ProcessID)
}

func TestPruneAndDelete(t *testing.T) {
	s := openStore(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateRunLog(runLog("import", etl.StatusSuccess, base.Add(time.Duration(i)*time.Minute))))
	}

	removed, err := s.PruneRunLogs("import", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	logs, err := s.ListRunLogs("import", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].StartedAt.Equal(base.Add(4*time.Minute)))

	require.NoError(t, s.DeleteProcess("import"))
	logs, err = s.ListRunLogs("import", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
	st, err := s.GetStatus("import")
	require.NoError(t, err)
	assert.Nil(t, st)
}
