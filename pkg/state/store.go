// Package state persists RunState values as human-readable run files.
// Each run lives at {base}/runs/{run_id}/run.md: a YAML front-matter block
// between two "---" delimiter lines, optionally followed by free-form
// markdown that the store ignores.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/clipforge/clipforge/pkg/models"
)

const (
	runFileName = "run.md"
	delimiter   = "---"
)

// Store reads and writes run files under a base directory.
type Store struct {
	baseDir string
	logger  *slog.Logger
}

// NewStore creates a store rooted at baseDir. The runs/ subdirectory is
// created on first save.
func NewStore(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		logger:  slog.Default().With("component", "state-store"),
	}
}

// RunsDir returns the directory holding all run subdirectories.
func (s *Store) RunsDir() string {
	return filepath.Join(s.baseDir, "runs")
}

// RunDir returns the directory for a single run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.RunsDir(), runID)
}

// Save writes the state atomically: serialize to a temp file in the run
// directory, then rename onto run.md. A concurrent reader never observes
// a partial file.
func (s *Store) Save(_ context.Context, run *models.RunState) error {
	dir := s.RunDir(run.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	body, err := serialize(run)
	if err != nil {
		return fmt.Errorf("serializing run %s: %w", run.RunID, err)
	}

	target := filepath.Join(dir, runFileName)
	if err := renameio.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("writing run file %s: %w", target, err)
	}
	return nil
}

// Load reads and parses the run file for runID. Returns ErrRunNotFound if
// the file does not exist, or a *FrontMatterError if it cannot be parsed.
func (s *Store) Load(_ context.Context, runID string) (*models.RunState, error) {
	path := filepath.Join(s.RunDir(runID), runFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("reading run file %s: %w", path, err)
	}
	run, err := deserialize(data)
	if err != nil {
		return nil, &FrontMatterError{Path: path, Err: err}
	}
	return run, nil
}

// ListIncomplete walks every run subdirectory and returns the states whose
// current stage is not terminal. Corrupted run files are skipped with a
// log entry so one bad file cannot block crash recovery.
func (s *Store) ListIncomplete(ctx context.Context) ([]*models.RunState, error) {
	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing runs directory: %w", err)
	}

	var incomplete []*models.RunState
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.Load(ctx, entry.Name())
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			s.logger.Warn("Skipping unreadable run file",
				"run_id", entry.Name(), "error", err)
			continue
		}
		if !run.CurrentStage.IsTerminal() {
			incomplete = append(incomplete, run)
		}
	}
	return incomplete, nil
}

// ListTerminal returns the states of runs that reached completed or
// failed. Used by the retention sweeper. Corrupted files are skipped the
// same way ListIncomplete skips them.
func (s *Store) ListTerminal(ctx context.Context) ([]*models.RunState, error) {
	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing runs directory: %w", err)
	}

	var terminal []*models.RunState
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.Load(ctx, entry.Name())
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			s.logger.Warn("Skipping unreadable run file",
				"run_id", entry.Name(), "error", err)
			continue
		}
		if run.CurrentStage.IsTerminal() {
			terminal = append(terminal, run)
		}
	}
	return terminal, nil
}

// serialize renders the front-matter document for a run. List fields are
// normalized to empty lists so a round-trip yields an equal value.
func serialize(run *models.RunState) ([]byte, error) {
	normalized := run.Clone()
	if normalized.StagesCompleted == nil {
		normalized.StagesCompleted = []string{}
	}
	if normalized.BestOfThreeOverrides == nil {
		normalized.BestOfThreeOverrides = []string{}
	}

	var sb strings.Builder
	sb.WriteString(delimiter + "\n")

	encoded, err := yaml.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	sb.Write(encoded)
	sb.WriteString(delimiter + "\n")
	sb.WriteString("\n# Run " + run.RunID + "\n")
	return []byte(sb.String()), nil
}

// deserialize parses a run file. The front-matter block must open with a
// "---" line and close with another; everything after the closing
// delimiter is ignored.
func deserialize(data []byte) (*models.RunState, error) {
	text := string(data)
	lines := strings.SplitAfter(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != delimiter {
		return nil, fmt.Errorf("missing opening front-matter delimiter")
	}

	var body strings.Builder
	closed := false
	for _, line := range lines[1:] {
		if strings.TrimRight(line, "\r\n") == delimiter {
			closed = true
			break
		}
		body.WriteString(line)
	}
	if !closed {
		return nil, fmt.Errorf("missing closing front-matter delimiter")
	}

	var run models.RunState
	if err := yaml.Unmarshal([]byte(body.String()), &run); err != nil {
		return nil, fmt.Errorf("parsing front-matter YAML: %w", err)
	}
	if run.RunID == "" {
		return nil, fmt.Errorf("front-matter missing run_id")
	}
	return &run, nil
}
