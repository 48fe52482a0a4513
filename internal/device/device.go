// Package device manages the per-installation identity: a generated device
// identifier and the user's chosen display name, persisted as a small JSON
// file next to the local store.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const identityFile = "device.json"

// Identity is the persisted per-device state.
type Identity struct {
	DeviceID    string `json:"device_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Manager loads the identity on first use and persists changes back to
// disk. A missing file gets a fresh UUID.
type Manager struct {
	path string

	mu       sync.Mutex
	identity Identity
}

// NewManager loads or creates the identity file under dataDir.
func NewManager(dataDir string) (*Manager, error) {
	m := &Manager{path: filepath.Join(dataDir, identityFile)}

	data, err := os.ReadFile(m.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &m.identity); err != nil {
			return nil, fmt.Errorf("failed to parse device identity file: %w", err)
		}
	case os.IsNotExist(err):
		m.identity = Identity{DeviceID: uuid.NewString()}
		if err := m.persist(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to read device identity file: %w", err)
	}

	if m.identity.DeviceID == "" {
		m.identity.DeviceID = uuid.NewString()
		if err := m.persist(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// DeviceID returns the stable per-installation identifier.
func (m *Manager) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.DeviceID
}

// DisplayName returns the chosen display name, possibly empty.
func (m *Manager) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.DisplayName
}

// SetDisplayName stores a new display name.
func (m *Manager) SetDisplayName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity.DisplayName = name
	return m.persist()
}

// persist writes the identity file. Caller must hold m.mu (or be the
// constructor before the manager is shared).
func (m *Manager) persist() error {
	data, err := json.MarshalIndent(m.identity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode device identity: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write device identity file: %w", err)
	}
	return nil
}
