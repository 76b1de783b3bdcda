package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const entryColumns = "id, job_id, command_json, exit_status, log_path, started_at, finished_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		id          int64
		jobID       string
		commandJSON string
		exitStatus  int
		logPath     sql.NullString
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(&id, &jobID, &commandJSON, &exitStatus, &logPath, &startedRaw, &finishedRaw); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:         id,
		JobID:      jobID,
		ExitStatus: exitStatus,
		LogPath:    logPath.String,
	}
	if err := json.Unmarshal([]byte(commandJSON), &entry.Command); err != nil {
		return Entry{}, fmt.Errorf("decode command of run %d: %w", id, err)
	}
	entry.StartedAt = parseTime(startedRaw)
	entry.FinishedAt = parseTime(finishedRaw)
	return entry, nil
}

// Timestamps are stored as fixed-width UTC strings so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
