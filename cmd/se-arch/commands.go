package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/hochfrequenz/se-arch/internal/batch"
	"github.com/hochfrequenz/se-arch/internal/config"
	"github.com/hochfrequenz/se-arch/internal/domain"
	"github.com/hochfrequenz/se-arch/internal/observer"
	"github.com/hochfrequenz/se-arch/internal/processor"
	"github.com/hochfrequenz/se-arch/internal/runstore"
	"github.com/hochfrequenz/se-arch/tui"
)

var (
	flagMode    string
	flagAction  string
	startServe  bool
	startWatch  bool
	historyLim  int
	showOutcome string
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process all sources once and exit",
		RunE:  runRun,
	}
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)

	// start command
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Run on the configured schedule until interrupted",
		Long: `Runs immediately and then on the configured schedule. The next run is
scheduled from the moment the previous one finished, so runs never overlap.

Press Ctrl+C once to stop after the current run, twice to abort it.`,
		RunE: runStart,
	}
	addRunFlags(startCmd)
	startCmd.Flags().BoolVar(&startServe, "serve", false, "also serve the status API")
	startCmd.Flags().BoolVar(&startWatch, "watch", false, "trigger a run when new files appear (overrides settings.watch)")
	rootCmd.AddCommand(startCmd)

	// tui command
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Run on schedule with a terminal dashboard",
		RunE:  runTUI,
	}
	addRunFlags(tuiCmd)
	rootCmd.AddCommand(tuiCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API over recorded runs without processing",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLim, "limit", 20, "number of runs to show (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the log entries of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
	showCmd.Flags().StringVar(&showOutcome, "outcome", "", "only show entries with this outcome (success, skipped, error, critical)")
	historyCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagMode, "mode", "", "override settings.mode (copy|archive)")
	cmd.Flags().StringVar(&flagAction, "action", "", "override settings.action (copy|move)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(flagMode, flagAction)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, appOptions{logOut: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := a.proc.RunOnce(ctx)
	a.finish(run)
	if err != nil {
		return err
	}
	if run.Failed > 0 {
		return fmt.Errorf("run finished with %d failure(s), see %s", run.Failed, cfg.Settings.LogDir)
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(flagMode, flagAction)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("watch") {
		cfg.Settings.Watch = startWatch
	}

	a, err := newApp(cfg, appOptions{serve: startServe, logOut: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := batch.NewScheduler(cfg.Schedule())
	if err != nil {
		return err
	}
	if a.server != nil {
		a.server.SetSchedule(sched)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal: finish the current run, then exit. Second: abort it.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nStopping after the current run (press Ctrl+C again to abort)...")
		sched.Stop()
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Settings.Watch {
		watcher, err := newSourceWatcher(cfg, a, sched)
		if err != nil {
			return err
		}
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	fmt.Printf("SEArch started: mode=%s action=%s schedule=%s\n",
		cfg.Settings.Mode, cfg.Settings.Action, cfg.Schedule())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := sched.Run(gctx, a.runJob)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.server != nil {
		fmt.Printf("Status API at http://%s:%d/api/status\n", cfg.Web.Host, cfg.Web.Port)
		g.Go(func() error {
			return a.server.Start(gctx)
		})
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		g.Go(func() error {
			showCountdown(gctx, os.Stdout, sched)
			return nil
		})
	}

	return g.Wait()
}

// newSourceWatcher triggers an early run whenever a matching file appears
func newSourceWatcher(cfg *config.Config, a *app, sched *batch.Scheduler) (*observer.SourceWatcher, error) {
	matcher := processor.NewMatcher(cfg.Patterns())
	watcher, err := observer.NewSourceWatcher(matcher.Match, func(files []string) {
		a.logger.Printf("Detected %d new file(s), triggering run", len(files))
		sched.Trigger()
	})
	if err != nil {
		return nil, fmt.Errorf("creating source watcher: %w", err)
	}
	for _, root := range cfg.Sources() {
		if err := watcher.AddRoot(root); err != nil {
			a.logger.Printf("WARNING: cannot watch %s: %v", root, err)
		}
	}
	return watcher, nil
}

// showCountdown rewrites a single status line once per second while the
// scheduler is idle
func showCountdown(ctx context.Context, w io.Writer, sched *batch.Scheduler) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	shown := false
	for {
		select {
		case <-ctx.Done():
			if shown {
				fmt.Fprint(w, "\r\033[K")
			}
			return
		case <-ticker.C:
		}

		next := sched.NextRun()
		if sched.Running() || next.IsZero() {
			if shown {
				fmt.Fprint(w, "\r\033[K")
				shown = false
			}
			continue
		}
		secs := int(time.Until(next).Round(time.Second).Seconds())
		if secs < 0 {
			secs = 0
		}
		fmt.Fprintf(w, "\r\033[KNext action in: %d seconds", secs)
		shown = true
	}
}

// tuiBackend adapts the running app and scheduler to the dashboard
type tuiBackend struct {
	a     *app
	sched *batch.Scheduler
}

func (b *tuiBackend) Entries() []domain.LogEntry            { return b.a.history.Entries() }
func (b *tuiBackend) Runs(limit int) ([]*domain.Run, error) { return b.a.store.ListRuns(limit) }
func (b *tuiBackend) NextRun() time.Time                    { return b.sched.NextRun() }
func (b *tuiBackend) Running() bool                         { return b.sched.Running() }
func (b *tuiBackend) Trigger()                              { b.sched.Trigger() }

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(flagMode, flagAction)
	if err != nil {
		return err
	}

	// Console output would corrupt the dashboard; send it to a file next to the CSV logs
	if err := os.MkdirAll(cfg.Settings.LogDir, 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.Settings.LogDir, "se-arch-console.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()

	a, err := newApp(cfg, appOptions{logOut: logFile})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := batch.NewScheduler(cfg.Schedule())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx, a.runJob)
	}()

	model := tui.NewModel(tui.ModelConfig{
		Backend:  &tuiBackend{a: a, sched: sched},
		Mode:     cfg.Settings.Mode,
		Action:   cfg.Settings.Action,
		Schedule: cfg.Schedule().String(),
		Sources:  cfg.Sources(),
		Target:   cfg.Settings.TargetDir,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	sched.Stop()
	cancel()
	<-done
	return runErr
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, appOptions{serve: true, logOut: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving status API at http://%s:%d/api/status\n", cfg.Web.Host, cfg.Web.Port)
	return a.server.Start(ctx)
}

func openStore() (*runstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return runstore.New(cfg.Settings.DatabasePath)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(historyLim)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tMODE\tACTION\tPROCESSED\tSKIPPED\tFAILED\tDELETED\tSIZE")
	for _, r := range runs {
		duration := "running"
		if r.FinishedAt != nil {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(domain.TimeLayout), duration, r.Mode, r.Action,
			r.Processed, r.Skipped, r.Failed, r.Deleted, humanize.Bytes(uint64(r.Bytes)))
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}

	entries, err := store.ListEntries(runstore.EntryFilter{
		RunID:   run.ID,
		Outcome: domain.Outcome(showOutcome),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s/%s) started %s: %d processed, %d skipped, %d failed, %d deleted\n\n",
		run.ID, run.Mode, run.Action, run.StartedAt.Format(domain.TimeLayout),
		run.Processed, run.Skipped, run.Failed, run.Deleted)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(domain.LogHeader, "\t")))
	for _, e := range entries {
		fmt.Fprintln(w, strings.Join(e.Row(), "\t"))
	}
	return w.Flush()
}
