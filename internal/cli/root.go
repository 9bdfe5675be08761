// Package cli implements the linkbox command tree on top of core.Service.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"linkbox/internal/config"
	"linkbox/internal/core"
	"linkbox/internal/logging"
	"linkbox/internal/persistence"
	"linkbox/pkg/domain"
)

// App carries the state shared by every command of one invocation.
type App struct {
	configPath  string
	showMetrics bool
	trace       bool

	backend    domain.StateBackend
	ownBackend bool
	engineOpts []core.EngineOption

	cfg      *config.Config
	svc      *core.Service
	registry *prometheus.Registry
}

// Option configures an App.
type Option func(*App)

// WithBackend injects a state backend instead of opening the configured one.
// The caller keeps ownership and closes it.
func WithBackend(b domain.StateBackend) Option {
	return func(a *App) { a.backend = b }
}

// WithEngineOptions appends engine options after the configured ones.
func WithEngineOptions(opts ...core.EngineOption) Option {
	return func(a *App) { a.engineOpts = append(a.engineOpts, opts...) }
}

// Execute runs the command line in args. Metrics are printed after the
// command even when it fails, and an owned backend is always closed.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) error {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}
	root := app.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if merr := app.writeMetrics(stdout); merr != nil && err == nil {
		err = merr
	}
	if cerr := app.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "linkbox",
		Short: "linkbox - fund linking process store",
		Long: `linkbox manages fund linking processes: conversations with fund
administrators, the investments they reference, and the workflow states
derived from both.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a TOML config file")
	root.PersistentFlags().BoolVar(&a.showMetrics, "metrics", false, "Print Prometheus metrics after the command")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Write operation spans as JSON lines to stderr")

	root.AddCommand(a.resetCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.processesCmd())
	root.AddCommand(a.processCmd())
	root.AddCommand(a.convoCmd())
	root.AddCommand(a.investmentCmd())
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" {
		return nil
	}
	ctx := cmd.Context()
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	if a.backend == nil {
		backend, err := core.OpenBackend(ctx, cfg.StorageConfig())
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		a.backend = backend
		a.ownBackend = true
	}

	engineOpts := append([]core.EngineOption{core.StrictClientAffinity(cfg.Policy.StrictAffinity)}, a.engineOpts...)
	engine := core.NewEngine(engineOpts...)

	svcOpts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithAuditRecorder(core.NewLogAuditRecorder(logger)),
	}
	if a.showMetrics || cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return err
		}
		a.registry = reg
		svcOpts = append(svcOpts, core.WithMetricsRecorder(rec))
	}
	if a.trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}

	a.svc = core.NewService(engine, persistence.NewAdapter(a.backend, cfg.Storage.Key, engine.Seed), svcOpts...)
	return a.svc.Open(ctx)
}

func (a *App) writeMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func (a *App) close() error {
	if a.ownBackend && a.backend != nil {
		return a.backend.Close()
	}
	return nil
}
