package store

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

// Memory keeps encoded panels in process memory.
type Memory struct {
	mu     sync.RWMutex
	panels map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{panels: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, p *core.Panel) error {
	data, err := encodePanel(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.panels[p.PanelID] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, panelID string) (*core.Panel, error) {
	if err := ValidateID(panelID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.panels[panelID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodePanel(panelID, data)
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.panels))
	for id := range m.panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Delete(_ context.Context, panelID string) error {
	if err := ValidateID(panelID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.panels[panelID]; !ok {
		return ErrNotFound
	}
	delete(m.panels, panelID)
	return nil
}
