package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

func (a *app) panelCommand() *cobra.Command {
	var (
		flags   mappingFlags
		panelID string
		genome  core.GenomeInfo
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "panel <targets.tsv>",
		Short: "Convert a panel target table",
		Example: `  pmo panel targets.tsv --panel-id heomev1 --genome-name 3D7 --genome-taxon-id 5833 \
      --genome-url https://plasmodb.org/3D7.fasta --genome-version 2020-09-01 --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if save {
				if err := a.withStore(ctx); err != nil {
					return err
				}
			}
			t, err := a.readTable(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := a.resolve(ctx, core.SectionPanel, t, &flags)
			if err != nil {
				return err
			}
			extra, err := plainColumns(r)
			if err != nil {
				return err
			}

			frag, err := a.svc.BuildPanel(ctx, t.Table, core.PanelInput{
				PanelID:    panelID,
				Mapping:    r.mapping,
				Genome:     genome,
				Additional: extra,
			}, save)
			if err != nil {
				return err
			}
			return a.writeOutput(ctx, flags.output, frag)
		},
	}

	cmd.Flags().StringVar(&panelID, "panel-id", "", "panel identifier")
	cmd.Flags().StringVar(&genome.Name, "genome-name", "", "reference genome name")
	cmd.Flags().StringVar(&genome.TaxonID, "genome-taxon-id", "", "reference genome taxon id")
	cmd.Flags().StringVar(&genome.URL, "genome-url", "", "reference genome URL")
	cmd.Flags().StringVar(&genome.Version, "genome-version", "", "reference genome version")
	cmd.Flags().StringVar(&genome.GFFURL, "gff-url", "", "annotation (GFF) URL")
	cmd.Flags().BoolVar(&save, "save", false, "also save the panel to the panel store")
	flags.register(cmd)
	return cmd
}

func (a *app) mhapCommand() *cobra.Command {
	var (
		flags mappingFlags
		bioID string
	)

	cmd := &cobra.Command{
		Use:     "mhap <calls.tsv>",
		Aliases: []string{"microhaplotypes"},
		Short:   "Convert a microhaplotype call table",
		Example: `  pmo mhap calls.tsv --bioinformatics-id run1 -o mhap.json
  pmo mhap calls.tsv --bioinformatics-id run1 --map reads=read_ct --additional umi=umi_count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.readTable(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := a.resolve(ctx, core.SectionMicrohaplotype, t, &flags)
			if err != nil {
				return err
			}

			frag, err := a.svc.BuildMicrohaplotypes(ctx, t.Table, core.MicrohaplotypeInput{
				BioinformaticsID: bioID,
				Mapping:          r.mapping,
				Additional:       r.additional,
			})
			if err != nil {
				return err
			}
			return a.writeOutput(ctx, flags.output, frag)
		},
	}

	cmd.Flags().StringVar(&bioID, "bioinformatics-id", "", "identifier of the bioinformatics run")
	flags.register(cmd)
	return cmd
}

func (a *app) recordsCommand(kind core.SectionKind, use, short string) *cobra.Command {
	var flags mappingFlags

	cmd := &cobra.Command{
		Use:   use + " <table.tsv>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.readTable(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := a.resolve(ctx, kind, t, &flags)
			if err != nil {
				return err
			}
			extra, err := plainColumns(r)
			if err != nil {
				return err
			}

			in := core.RecordInput{Mapping: r.mapping, Additional: extra}
			if kind == core.SectionSpecimen {
				frag, err := a.svc.BuildSpecimens(ctx, t.Table, in)
				if err != nil {
					return err
				}
				return a.writeOutput(ctx, flags.output, frag)
			}
			frag, err := a.svc.BuildExperiments(ctx, t.Table, in)
			if err != nil {
				return err
			}
			return a.writeOutput(ctx, flags.output, frag)
		},
	}

	flags.register(cmd)
	return cmd
}

// plainColumns returns the additional columns of sections that keep column
// names as they are.
func plainColumns(r resolved) ([]string, error) {
	var errs core.ValidationErrors
	for _, col := range r.columns() {
		if name := r.additional[col]; name != "" && name != col {
			errs.Add(0, col, name, "additional columns can only be renamed in microhaplotype data")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return r.columns(), nil
}
