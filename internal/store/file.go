package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

const fileExt = ".json"

// File stores each panel as <dir>/<panel_id>.json.
type File struct {
	dir string
}

// NewFile creates a file store rooted at dir, creating the directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create panel directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the directory panels are written to.
func (f *File) Dir() string { return f.dir }

func (f *File) path(panelID string) string {
	return filepath.Join(f.dir, panelID+fileExt)
}

// Save writes the panel to a temporary file and renames it into place so a
// concurrent Load never sees a partial document.
func (f *File) Save(ctx context.Context, p *core.Panel) error {
	data, err := encodePanel(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+p.PanelID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save panel %s: %w", p.PanelID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save panel %s: %w", p.PanelID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save panel %s: %w", p.PanelID, err)
	}
	if err := os.Rename(tmp.Name(), f.path(p.PanelID)); err != nil {
		return fmt.Errorf("save panel %s: %w", p.PanelID, err)
	}

	logging.FromContext(ctx).Debug("panel written", "panel_id", p.PanelID, "path", f.path(p.PanelID))
	return nil
}

func (f *File) Load(_ context.Context, panelID string) (*core.Panel, error) {
	if err := ValidateID(panelID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(panelID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load panel %s: %w", panelID, err)
	}
	return decodePanel(panelID, data)
}

func (f *File) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		if ValidateID(id) == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *File) Delete(_ context.Context, panelID string) error {
	if err := ValidateID(panelID); err != nil {
		return err
	}
	err := os.Remove(f.path(panelID))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete panel %s: %w", panelID, err)
	}
	return nil
}
