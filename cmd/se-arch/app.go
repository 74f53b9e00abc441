package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hochfrequenz/se-arch/internal/config"
	"github.com/hochfrequenz/se-arch/internal/domain"
	"github.com/hochfrequenz/se-arch/internal/notify"
	"github.com/hochfrequenz/se-arch/internal/observer"
	"github.com/hochfrequenz/se-arch/internal/processor"
	"github.com/hochfrequenz/se-arch/internal/runlog"
	"github.com/hochfrequenz/se-arch/internal/runstore"
	"github.com/hochfrequenz/se-arch/web/api"
)

// appOptions selects the optional parts of the wiring
type appOptions struct {
	serve  bool
	logOut io.Writer
}

// app bundles everything a batch run writes to
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	store    *runstore.Store
	history  *runlog.History
	proc     *processor.Processor
	notifier notify.Notifier
	observer *observer.Observer
	server   *api.Server
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// loadRunConfig loads the config, applies command line overrides and
// validates the result
func loadRunConfig(mode, action string) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(mode, action); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	store, err := runstore.New(cfg.Settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   log.New(opts.logOut, "", log.LstdFlags),
		store:    store,
		history:  runlog.NewHistory(runlog.DefaultHistoryLimit),
		notifier: newNotifier(cfg),
		// A run that outlasts the interval delays every following one
		observer: observer.New(cfg.Interval()),
	}

	sinks := []runlog.Sink{
		runlog.NewDailyCSV(cfg.Settings.LogDir, cfg.Settings.LogPrefix),
		a.history,
		store,
	}

	if opts.serve {
		addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
		a.server = api.NewServer(store, a.history, addr)
		a.server.SetObserver(a.observer)
		a.server.SetInfo(api.Info{
			Mode:     cfg.Settings.Mode,
			Action:   cfg.Settings.Action,
			Schedule: cfg.Schedule().String(),
			Sources:  cfg.Sources(),
			Target:   cfg.Settings.TargetDir,
		})
		sinks = append(sinks, a.server)
	}

	a.proc = processor.New(processor.Options{
		SourceRoots: cfg.Sources(),
		TargetRoot:  cfg.Settings.TargetDir,
		Patterns:    cfg.Patterns(),
		Mode:        cfg.Settings.Mode,
		Action:      cfg.Settings.Action,
		DeleteAge:   cfg.DeleteAge(),
		Sink:        runlog.NewMultiSink(sinks...),
		Runs:        store,
		Logger:      a.logger,
	})

	return a, nil
}

func newNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	every := time.Duration(cfg.Notifications.MinIntervalMinutes * float64(time.Minute))
	return notify.NewThrottled(notify.NewMultiNotifier(notifiers...), every)
}

// runJob performs one batch run and fans the result out to metrics,
// notifications and event stream clients
func (a *app) runJob(ctx context.Context) {
	run, err := a.proc.RunOnce(ctx)
	if err != nil {
		a.logger.Printf("Run %s interrupted: %v", run.ID, err)
	}
	a.finish(run)
}

func (a *app) finish(run domain.Run) {
	a.observer.RecordRun(run)
	if a.observer.IsSlow(run) {
		a.logger.Printf("WARNING: run took %s, longer than the %s interval", run.Duration().Round(time.Second), a.cfg.Interval())
	}
	if a.server != nil {
		a.server.RunFinished(run)
	}
	if run.Processed > 0 || run.Failed > 0 {
		if err := a.notifier.Send(notify.RunSummary(run)); err != nil {
			a.logger.Printf("WARNING: notification failed: %v", err)
		}
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
