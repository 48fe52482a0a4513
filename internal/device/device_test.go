package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_GeneratesIdentity(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	require.NoError(t, err)

	id := m.DeviceID()
	_, parseErr := uuid.Parse(id)
	assert.NoError(t, parseErr)
	assert.Empty(t, m.DisplayName())

	// File exists on disk immediately.
	_, err = os.Stat(filepath.Join(dir, identityFile))
	assert.NoError(t, err)
}

func TestNewManager_IdentitySurvivesReload(t *testing.T) {
	dir := t.TempDir()

	first, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetDisplayName("Asha"))

	second, err := NewManager(dir)
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID(), second.DeviceID())
	assert.Equal(t, "Asha", second.DisplayName())
}

func TestNewManager_RepairsMissingDeviceID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, identityFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"display_name": "Asha"}`), 0o600))

	m, err := NewManager(dir)
	require.NoError(t, err)

	assert.NotEmpty(t, m.DeviceID())
	assert.Equal(t, "Asha", m.DisplayName())
}

func TestNewManager_CorruptFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, identityFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewManager(dir)
	assert.Error(t, err)
}
