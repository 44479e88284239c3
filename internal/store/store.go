// Package store persists built panels so that a panel can be reused across
// microhaplotype conversions without rebuilding it.
//
// Every backend stores one panel per panel_id, encoded as the panel_info
// fragment the panel transform produced, and returns ErrNotFound for an
// unknown id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

var (
	// ErrNotFound is returned when no panel is stored under an id.
	ErrNotFound = errors.New("panel not found")

	// ErrInvalidID is returned for ids that cannot be used as storage keys.
	ErrInvalidID = errors.New("invalid panel id")
)

// PanelStore saves and loads panels by panel_id.
type PanelStore interface {
	Save(ctx context.Context, p *core.Panel) error
	Load(ctx context.Context, panelID string) (*core.Panel, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, panelID string) error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID rejects ids that are empty, too long, or could escape a
// directory when used as a file name.
func ValidateID(panelID string) error {
	if !idPattern.MatchString(panelID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, panelID)
	}
	return nil
}

// encodePanel renders p as a single-panel fragment.
func encodePanel(p *core.Panel) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil panel", ErrInvalidID)
	}
	if err := ValidateID(p.PanelID); err != nil {
		return nil, err
	}
	return core.Encode(&core.PanelFragment{PanelInfo: map[string]core.Panel{p.PanelID: *p}})
}

// decodePanel reads a fragment written by encodePanel.
func decodePanel(panelID string, data []byte) (*core.Panel, error) {
	var frag core.PanelFragment
	if err := json.Unmarshal(data, &frag); err != nil {
		return nil, fmt.Errorf("decode panel %s: %w", panelID, err)
	}
	p, ok := frag.PanelInfo[panelID]
	if !ok {
		return nil, fmt.Errorf("decode panel %s: document holds %v", panelID, frag.PanelIDs())
	}
	return &p, nil
}
