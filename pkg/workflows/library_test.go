package workflows

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func TestLibrary_Paths(t *testing.T) {
	lib := NewLibrary("/workflows")
	assert.Equal(t, "/workflows/stages/router.md", lib.StageFile(models.StageRouter))
	assert.Equal(t, "/workflows/personas/content.md", lib.PersonaFile(models.StageContent))
}

func TestLibrary_Criteria(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gates", "content.md"),
		[]byte("# Content gate\n\nHook within first 3 seconds.\n"), 0o644))

	criteria, err := NewLibrary(dir).Criteria("content")
	require.NoError(t, err)
	assert.Contains(t, criteria, "Hook within first 3 seconds.")
}

func TestLibrary_MissingGate(t *testing.T) {
	_, err := NewLibrary(t.TempDir()).Criteria("nope")
	assert.ErrorIs(t, err, ErrGateNotFound)
}

func TestLibrary_EmptyGateFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gates", "blank.md"), []byte("\n\n"), 0o644))

	_, err := NewLibrary(dir).Criteria("blank")
	assert.ErrorIs(t, err, ErrGateNotFound)
}
