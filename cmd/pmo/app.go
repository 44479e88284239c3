package main

import (
	"context"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pmobuilder/internal/config"
	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/service"
	"github.com/JonMunkholm/pmobuilder/internal/store"
)

// app carries the state shared by every subcommand.
type app struct {
	out    io.Writer
	errOut io.Writer

	logLevel     string
	storeBackend string
	storeDir     string

	cfg        *config.Config
	svc        *service.Service
	closeStore func()
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, closeStore: func() {}}
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pmo",
		Short: "Build Portable Microhaplotype Object documents",
		Long: `pmo converts tab-delimited panel, microhaplotype, specimen and experiment
tables into PMO sections and merges them into one JSON document.

Column names are matched to the target schema automatically. Correct the
suggestion with --map target=column or a YAML file passed to --overrides.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.storeBackend, "store", "", "panel store backend: memory, file, postgres, redis (default from STORE_BACKEND)")
	root.PersistentFlags().StringVar(&a.storeDir, "store-dir", "", "directory of the file panel store (default from STORE_DIR)")

	root.AddCommand(
		a.matchCommand(),
		a.panelCommand(),
		a.mhapCommand(),
		a.recordsCommand(core.SectionSpecimen, "specimen", "Convert a specimen table"),
		a.recordsCommand(core.SectionExperiment, "experiment", "Convert an experiment table"),
		a.mergeCommand(),
		a.panelsCommand(),
	)
	return root
}

// setup loads configuration and points logging at stderr so stdout only
// ever carries documents.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	// A missing .env file is normal for the CLI.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.storeBackend != "" {
		cfg.Store.Backend = a.storeBackend
	}
	if a.storeDir != "" {
		cfg.Store.Dir = a.storeDir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetupWriter(a.errOut, cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	a.svc = service.New(nil, service.ConfigFrom(cfg))
	return nil
}

// withStore reopens the service on top of the configured panel store.
// Commands that never touch saved panels skip it.
func (a *app) withStore(ctx context.Context) error {
	panels, closeStore, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	a.closeStore = closeStore
	a.svc = service.New(panels, service.ConfigFrom(a.cfg))
	return nil
}

func (a *app) close() {
	a.closeStore()
}

// writeOutput encodes v to path, or to stdout when path is empty or "-".
func (a *app) writeOutput(ctx context.Context, path string, v any) error {
	data, err := core.Encode(v)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("document written", "path", path, "bytes", len(data))
	return nil
}

func (a *app) readTable(ctx context.Context, path string) (*tableFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	t, err := a.svc.ReadTable(fh)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("table read", "path", path, "columns", len(t.Columns), "rows", t.Len())
	return &tableFile{path: path, Table: t}, nil
}
