// Package workspace creates per-run working directories. Directory names
// are timestamp-prefixed so lexicographic order matches creation order;
// a short random nonce keeps same-second acquisitions unique.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const nameTimestampLayout = "20060102-150405"

// Manager hands out fresh workspace directories under a base path.
type Manager struct {
	baseDir string
}

// NewManager creates a manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// BaseDir returns the directory all workspaces live under.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Acquire creates a new workspace directory named
// {YYYYMMDD-HHMMSS}-{6-hex-nonce} with an eager assets/ subdirectory.
// The directory persists after the caller returns; it must survive
// process crashes so an interrupted run can resume into it.
func (m *Manager) Acquire(_ context.Context) (string, error) {
	name := fmt.Sprintf("%s-%s",
		time.Now().UTC().Format(nameTimestampLayout),
		uuid.NewString()[:6])
	dir := filepath.Join(m.baseDir, name)

	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", dir, err)
	}
	return dir, nil
}
