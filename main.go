package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/crmsync/pkg/adapter"
	"github.com/harrisonrobin/crmsync/pkg/config"
	"github.com/harrisonrobin/crmsync/pkg/logging"
	"github.com/harrisonrobin/crmsync/pkg/metrics"
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
	"github.com/harrisonrobin/crmsync/pkg/store"
	"github.com/harrisonrobin/crmsync/pkg/store/remote"
	"github.com/harrisonrobin/crmsync/pkg/store/sqlstore"
)

// app carries what the commands share. It is filled in by the root
// command's pre-run hook.
type app struct {
	configPath  string
	verbose     bool
	showMetrics bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	services *adapter.Services
	closers  []io.Closer

	out io.Writer
	in  io.Reader
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes one command line. The store is closed and metrics are logged
// whether or not the command succeeds.
func run(args []string, out io.Writer, in io.Reader) error {
	a := &app{out: out, in: in, logger: zap.NewNop()}
	defer a.teardown()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "crmsync",
		Short:         "Manage CRM contacts, opportunities, projects and tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)
	root.SetIn(a.in)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $HOME/.config/crmsync/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&a.showMetrics, "metrics", false, "log adapter metrics on exit")

	root.AddCommand(
		entityCmd(a, "contacts", "contact", func(s *adapter.Services) *adapter.Adapter[model.Contact] { return s.Contacts }, normalize.ContactFromDraft),
		entityCmd(a, "opportunities", "opportunity", func(s *adapter.Services) *adapter.Adapter[model.Opportunity] { return s.Opportunities }, normalize.OpportunityFromDraft),
		entityCmd(a, "projects", "project", func(s *adapter.Services) *adapter.Adapter[model.Project] { return s.Projects }, normalize.ProjectFromDraft),
		entityCmd(a, "tasks", "task", func(s *adapter.Services) *adapter.Adapter[model.Task] { return s.Tasks }, normalize.TaskFromDraft),
		pipelineCmd(a),
		importOrgCmd(a),
		agendaCmd(a),
	)
	return root
}

// resolvedConfigPath is the --config value or the default location.
func (a *app) resolvedConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.GetConfigPath()
}

// stateDir holds the agenda state files and OAuth credentials, next to the
// config file.
func (a *app) stateDir() (string, error) {
	path, err := a.resolvedConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

func (a *app) setup() error {
	path, err := a.resolvedConfigPath()
	if err != nil {
		return fmt.Errorf("could not find path to configuration file: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON, a.verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	return nil
}

// Services opens the configured store on first use.
func (a *app) Services(ctx context.Context) (*adapter.Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	st, closer, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	rec, err := metrics.NewRecorder(a.registry)
	if err != nil {
		return nil, err
	}
	a.services = adapter.NewServices(st, a.cfg.Tables, adapter.WithLogger(a.logger), adapter.WithMetrics(rec))
	a.logger.Debug("store opened", zap.String("backend", a.cfg.Store.Backend))
	return a.services, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.RecordStore, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		c, err := remote.NewClient(ctx, remote.Config{
			ProjectID: cfg.ProjectID,
			PublicKey: cfg.PublicKey,
			BaseURL:   cfg.BaseURL,
		})
		return c, nil, err
	case config.BackendSQLite, config.BackendPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Backend, DSN: cfg.DSN, Actor: cfg.Actor})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func (a *app) teardown() {
	if a.showMetrics && a.registry != nil {
		a.logMetrics()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func (a *app) logMetrics() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("could not gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName()), zap.String("labels", labelString(m.GetLabel()))}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fields = append(fields, zap.Uint64("count", h.GetSampleCount()), zap.Float64("sum_seconds", h.GetSampleSum()))
			default:
				continue
			}
			a.logger.Info("metric", fields...)
		}
	}
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
