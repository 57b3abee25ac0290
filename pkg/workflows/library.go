// Package workflows resolves the on-disk workflow library: stage
// descriptions, persona files, and QA gate criteria. The library is plain
// markdown, edited by hand and read at stage-execution time so edits take
// effect without a restart.
package workflows

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipforge/clipforge/pkg/models"
)

// ErrGateNotFound indicates no criteria file exists for a gate.
var ErrGateNotFound = errors.New("gate criteria not found")

// Library reads workflow definitions from a directory tree:
//
//	{dir}/stages/<stage>.md
//	{dir}/personas/<stage>.md
//	{dir}/gates/<gate>.md
type Library struct {
	dir string
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// StageFile returns the path of the stage description file.
func (l *Library) StageFile(stage models.Stage) string {
	return filepath.Join(l.dir, "stages", string(stage)+".md")
}

// PersonaFile returns the path of the persona file for a stage.
func (l *Library) PersonaFile(stage models.Stage) string {
	return filepath.Join(l.dir, "personas", string(stage)+".md")
}

// Criteria reads the gate criteria text for the named gate.
func (l *Library) Criteria(gate string) (string, error) {
	path := filepath.Join(l.dir, "gates", gate+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrGateNotFound, gate)
		}
		return "", fmt.Errorf("reading gate criteria %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrGateNotFound, gate)
	}
	return text, nil
}
