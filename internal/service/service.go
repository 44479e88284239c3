// Package service composes the field matcher, the table transforms and the
// panel store into the operations both hosts expose.
//
// Every conversion takes a limiter slot; saves and deletes of one panel_id
// are serialised so that at most one writer touches a stored panel at a time.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/pmobuilder/internal/config"
	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/match"
	"github.com/JonMunkholm/pmobuilder/internal/store"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// Config tunes a Service.
type Config struct {
	Matching      match.Options
	MaxConcurrent int
	MaxWait       time.Duration
	MaxTableBytes int64
}

// ConfigFrom derives a service Config from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Matching: match.Options{
			Method:           cfg.Matching.Method,
			Assignment:       cfg.Matching.Assignment,
			MinScore:         cfg.Matching.MinScore,
			OptionalMinScore: cfg.Matching.OptionalMinScore,
			APIKey:           cfg.Matching.APIKey,
			Model:            cfg.Matching.Model,
			Timeout:          cfg.Matching.Timeout,
		},
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		MaxTableBytes: cfg.Upload.MaxFileSize,
	}
}

// Service runs conversions for the web and CLI hosts.
type Service struct {
	panels  store.PanelStore
	cfg     Config
	limiter *Limiter
	panelMu *keyedMutex
}

// New creates a Service. panels may be nil when no panel is ever saved or
// loaded, as in one-shot CLI conversions.
func New(panels store.PanelStore, cfg Config) *Service {
	if cfg.MaxTableBytes <= 0 {
		cfg.MaxTableBytes = table.DefaultMaxBytes
	}
	return &Service{
		panels:  panels,
		cfg:     cfg,
		limiter: NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		panelMu: newKeyedMutex(),
	}
}

// ReadTable reads a tab-delimited upload within the configured size limit.
func (s *Service) ReadTable(r io.Reader) (*table.Table, error) {
	return table.Read(r, table.WithMaxBytes(s.cfg.MaxTableBytes))
}

// MatchRequest overrides the configured matching options for one call.
// Empty fields keep the configured values.
type MatchRequest struct {
	Method     string
	Assignment string
	APIKey     string
}

func (s *Service) matchOptions(req MatchRequest) match.Options {
	opts := s.cfg.Matching
	if req.Method != "" {
		opts.Method = req.Method
	}
	if req.Assignment != "" {
		opts.Assignment = req.Assignment
	}
	if strings.TrimSpace(req.APIKey) != "" {
		opts.APIKey = req.APIKey
	}
	return opts
}

// MatchColumns suggests a mapping from columns onto the fields of a section,
// required and optional.
func (s *Service) MatchColumns(ctx context.Context, kind core.SectionKind, columns []string, req MatchRequest) (*match.Result, error) {
	def, ok := core.Get(kind)
	if !ok {
		return nil, core.NewValidationError("section", string(kind), "unknown section")
	}

	m, err := match.New(ctx, s.matchOptions(req))
	if err != nil {
		return nil, err
	}
	return m.MatchSection(ctx, columns, def)
}

// CheckMapping reports source columns claimed by more than one field.
func (s *Service) CheckMapping(m core.Mapping) error {
	return match.CheckDuplicates(m)
}

// run executes fn inside a limiter slot.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		logging.FromContext(ctx).Warn("conversion rejected", "op", op, "error", err)
		return err
	}
	defer s.limiter.Release()

	start := time.Now()
	err := fn(ctx)
	log := logging.FromContext(ctx).With("op", op, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Warn("conversion failed", "error", err)
		return err
	}
	log.Info("conversion finished")
	return nil
}

// BuildPanel converts a panel table. With save set the panel is also stored
// under its panel_id, replacing any earlier version.
func (s *Service) BuildPanel(ctx context.Context, t *table.Table, in core.PanelInput, save bool) (*core.PanelFragment, error) {
	in.PanelID = strings.TrimSpace(in.PanelID)
	ctx = logging.ContextWithAttrs(ctx, "panel_id", in.PanelID)
	if err := match.CheckDuplicates(in.Mapping); err != nil {
		return nil, err
	}

	var frag *core.PanelFragment
	err := s.run(ctx, "panel", func(ctx context.Context) error {
		var err error
		frag, err = core.TransformPanel(ctx, t, in)
		if err != nil || !save {
			return err
		}
		p, ok := frag.PanelInfo[in.PanelID]
		if !ok {
			return fmt.Errorf("save panel %q: not in converted fragment", in.PanelID)
		}
		return s.SavePanel(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

// SavePanel stores p, serialised against other writers of the same panel_id.
func (s *Service) SavePanel(ctx context.Context, p *core.Panel) error {
	if s.panels == nil {
		return fmt.Errorf("save panel %s: no panel store configured", p.PanelID)
	}
	if err := store.ValidateID(p.PanelID); err != nil {
		return err
	}

	unlock := s.panelMu.Lock(p.PanelID)
	defer unlock()

	if err := s.panels.Save(ctx, p); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("panel saved", "panel_id", p.PanelID, "targets", len(p.Targets))
	return nil
}

// LoadPanel returns a stored panel as a fragment ready for assembly.
func (s *Service) LoadPanel(ctx context.Context, panelID string) (*core.PanelFragment, error) {
	if s.panels == nil {
		return nil, store.ErrNotFound
	}
	p, err := s.panels.Load(ctx, panelID)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("panel loaded", "panel_id", panelID)
	return &core.PanelFragment{PanelInfo: map[string]core.Panel{p.PanelID: *p}}, nil
}

// ListPanels returns the stored panel ids in ascending order.
func (s *Service) ListPanels(ctx context.Context) ([]string, error) {
	if s.panels == nil {
		return []string{}, nil
	}
	return s.panels.List(ctx)
}

// DeletePanel removes a stored panel.
func (s *Service) DeletePanel(ctx context.Context, panelID string) error {
	if s.panels == nil {
		return store.ErrNotFound
	}
	unlock := s.panelMu.Lock(panelID)
	defer unlock()

	if err := s.panels.Delete(ctx, panelID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("panel deleted", "panel_id", panelID)
	return nil
}

// BuildMicrohaplotypes converts a row-level call table.
func (s *Service) BuildMicrohaplotypes(ctx context.Context, t *table.Table, in core.MicrohaplotypeInput) (*core.MicrohaplotypeFragment, error) {
	ctx = logging.ContextWithAttrs(ctx, "bioinformatics_id", in.BioinformaticsID)
	if err := match.CheckDuplicates(in.Mapping); err != nil {
		return nil, err
	}

	var frag *core.MicrohaplotypeFragment
	err := s.run(ctx, "microhaplotypes", func(ctx context.Context) error {
		var err error
		frag, err = core.TransformMicrohaplotypes(ctx, t, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

// BuildSpecimens converts a specimen metadata table.
func (s *Service) BuildSpecimens(ctx context.Context, t *table.Table, in core.RecordInput) (*core.SpecimenFragment, error) {
	if err := match.CheckDuplicates(in.Mapping); err != nil {
		return nil, err
	}

	var frag *core.SpecimenFragment
	err := s.run(ctx, "specimens", func(ctx context.Context) error {
		var err error
		frag, err = core.TransformSpecimens(ctx, t, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

// BuildExperiments converts an experiment metadata table.
func (s *Service) BuildExperiments(ctx context.Context, t *table.Table, in core.RecordInput) (*core.ExperimentFragment, error) {
	if err := match.CheckDuplicates(in.Mapping); err != nil {
		return nil, err
	}

	var frag *core.ExperimentFragment
	err := s.run(ctx, "experiments", func(ctx context.Context) error {
		var err error
		frag, err = core.TransformExperiments(ctx, t, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

// Assemble merges the given sections into one document.
func (s *Service) Assemble(ctx context.Context, sections core.Sections) (*core.Document, error) {
	doc, err := core.Merge(sections)
	if err != nil {
		logging.FromContext(ctx).Warn("assembly failed", "present", sections.Present(), "error", err)
		return nil, err
	}
	logging.FromContext(ctx).Info("document assembled", "panels", len(doc.PanelInfo))
	return doc, nil
}

// LimiterStatus reports conversion slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForConversions blocks until running conversions finish or ctx is done.
func (s *Service) WaitForConversions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
