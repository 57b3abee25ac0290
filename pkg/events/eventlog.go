package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LogWriter is a bus listener that appends events to the owning run's
// events.log file, one line per event:
//
//	<ISO8601> | <event_name> | <stage_or_none> | <compact-json-data>
type LogWriter struct {
	baseDir string
}

// NewLogWriter creates a log writer rooted at the state-store base
// directory (the directory containing runs/).
func NewLogWriter(baseDir string) *LogWriter {
	return &LogWriter{baseDir: baseDir}
}

// HandleEvent appends one line to {base}/runs/{run_id}/events.log.
// Events without a run id are skipped.
func (w *LogWriter) HandleEvent(_ context.Context, event PipelineEvent) error {
	if event.RunID == "" {
		return nil
	}

	dir := filepath.Join(w.baseDir, "runs", event.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	stage := "none"
	if event.Stage != "" {
		stage = string(event.Stage)
	}

	data := event.Data
	if data == nil {
		data = map[string]string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}

	line := fmt.Sprintf("%s | %s | %s | %s\n", event.Timestamp, event.Name, stage, payload)

	f, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening events.log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}
