package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

func (a *app) mergeCommand() *cobra.Command {
	var (
		panelPath      string
		mhapPath       string
		specimenPath   string
		experimentPath string
		savedPanel     string
		crossCheck     bool
		output         string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Assemble section files into one PMO document",
		Example: `  pmo merge --panel panel.json --mhap mhap.json --specimen specimens.json \
      --experiment experiments.json -o pmo.json
  pmo merge --saved-panel heomev1 --mhap mhap.json --specimen s.json --experiment e.json --crosscheck`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if panelPath != "" && savedPanel != "" {
				return core.NewValidationError("panel", savedPanel, "use either --panel or --saved-panel")
			}
			if savedPanel != "" {
				if err := a.withStore(ctx); err != nil {
					return err
				}
			}

			var sections core.Sections
			g, gctx := errgroup.WithContext(ctx)
			if savedPanel != "" {
				g.Go(func() error {
					frag, err := a.svc.LoadPanel(gctx, savedPanel)
					sections.Panel = frag
					return err
				})
			} else if panelPath != "" {
				g.Go(func() error { return loadSection(gctx, panelPath, &sections.Panel) })
			}
			if mhapPath != "" {
				g.Go(func() error { return loadSection(gctx, mhapPath, &sections.Microhaplotypes) })
			}
			if specimenPath != "" {
				g.Go(func() error { return loadSection(gctx, specimenPath, &sections.Specimens) })
			}
			if experimentPath != "" {
				g.Go(func() error { return loadSection(gctx, experimentPath, &sections.Experiments) })
			}
			if err := g.Wait(); err != nil {
				return err
			}

			doc, err := a.svc.Assemble(ctx, sections)
			if err != nil {
				return err
			}
			if crossCheck {
				if err := core.CrossCheck(doc); err != nil {
					return err
				}
			}
			return a.writeOutput(ctx, output, doc)
		},
	}

	cmd.Flags().StringVar(&panelPath, "panel", "", "panel section file")
	cmd.Flags().StringVar(&savedPanel, "saved-panel", "", "id of a panel in the panel store, instead of --panel")
	cmd.Flags().StringVar(&mhapPath, "mhap", "", "microhaplotype section file")
	cmd.Flags().StringVar(&specimenPath, "specimen", "", "specimen section file")
	cmd.Flags().StringVar(&experimentPath, "experiment", "", "experiment section file")
	cmd.Flags().BoolVar(&crossCheck, "crosscheck", false, "also check that ids cross-reference between sections")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// loadSection decodes a section file written by one of the convert commands.
func loadSection[T any](ctx context.Context, path string, dst **T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	*dst = &v
	logging.FromContext(ctx).Debug("section loaded", "path", path, "bytes", len(data))
	return nil
}
