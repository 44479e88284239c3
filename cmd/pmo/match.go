package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/match"
)

func (a *app) matchCommand() *cobra.Command {
	var (
		section string
		flags   mappingFlags
		seed    string
	)

	cmd := &cobra.Command{
		Use:   "match --section <section> <table.tsv>",
		Short: "Suggest a mapping from table columns to section fields",
		Example: `  pmo match --section panel targets.tsv
  pmo match --section mhap calls.tsv --method semantic
  pmo match --section mhap calls.tsv --write-overrides overrides.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			def, err := core.Lookup(section)
			if err != nil {
				return err
			}
			t, err := a.readTable(ctx, args[0])
			if err != nil {
				return err
			}

			res, err := a.svc.MatchColumns(ctx, def.Kind, t.Columns, flags.request())
			if err != nil {
				return err
			}

			if seed != "" {
				file := &match.OverrideFile{
					Version: "1",
					Sections: map[string]*match.SectionOverride{
						string(def.Kind): {Fields: res.Mapping},
					},
				}
				if err := match.WriteOverrides(file, seed); err != nil {
					return err
				}
			}
			return a.writeOutput(ctx, flags.output, res)
		},
	}

	cmd.Flags().StringVarP(&section, "section", "s", "", "section kind or alias: panel, mhap, specimen, experiment")
	cmd.Flags().StringVar(&seed, "write-overrides", "", "also write the suggestion as an override file to edit")
	cmd.MarkFlagRequired("section")
	flags.register(cmd)
	return cmd
}
