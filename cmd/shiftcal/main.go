package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"shiftcal/internal/config"
	"shiftcal/internal/ics"
	"shiftcal/internal/lineworks"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/reconcile"
	"shiftcal/internal/roster"
	"shiftcal/internal/shift"
	"shiftcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	rosterPath string
	listen     string
	once       bool
	dryRun     bool
	dumpICS    string
	debug      bool
}

func main() {
	appLog.Info("shiftcal starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.rosterPath != "" {
		conf.RosterPath = flags.rosterPath
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone in config", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	catalog, err := buildCatalog(conf)
	if err != nil {
		appLog.Error("invalid shift catalog override", err)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"owner_tag", conf.OwnerTag,
		"pacing", conf.Pacing().String(),
		"roster", conf.RosterPath,
		"shift_codes", len(catalog.Codes()),
	)

	expander := &shift.Expander{
		Catalog:  catalog,
		Location: loc,
		OwnerTag: conf.OwnerTag,
	}

	// Offline modes: expand the roster without touching the network.
	if flags.dryRun || flags.dumpICS != "" {
		if err := runOffline(conf, expander, flags); err != nil {
			appLog.Error("offline run failed", err)
			os.Exit(1)
		}
		return
	}

	engine := &reconcile.Engine{
		Tokens:       lineworks.NewTokenSource(conf.LineWorks),
		Gateway:      lineworks.NewClient(conf.LineWorks, loc),
		Expander:     expander,
		Pacing:       conf.Pacing(),
		Unauthorized: lineworks.IsUnauthorized,
		NotFound: func(err error) bool {
			return errors.Is(err, lineworks.ErrNotFound)
		},
	}

	runOnce := func(ctx context.Context) (*reconcile.Ledger, error) {
		r, err := roster.Load(conf.RosterPath)
		if err != nil {
			return nil, err
		}
		return engine.Reconcile(ctx, r)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		ledger, err := runOnce(ctx)
		if err != nil {
			appLog.Error("reconciliation failed", err)
			os.Exit(1)
		}
		reportLedger(ledger)
		if len(ledger.Failures()) > 0 {
			os.Exit(1)
		}
		return
	}

	runDaemon(ctx, conf, reconcile.NewRunner(runOnce))
}

// runDaemon serves the status API and re-runs reconciliation on the
// configured cron schedule until the context is cancelled. The cron
// schedule and the manual /api/run trigger share one runner, so at most
// one reconciliation is in flight no matter which source fired.
func runDaemon(ctx context.Context, conf *config.Config, runner *reconcile.Runner) {
	server := web.NewServer(conf, runner.Run)

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
		}
	}()

	c := cron.New()
	_, err := c.AddFunc(conf.RefreshCron, func() {
		appLog.Info("scheduled reconciliation starting", "schedule", conf.RefreshCron)
		ledger, err := runner.Run(ctx)
		if err != nil {
			if errors.Is(err, reconcile.ErrRunInProgress) {
				appLog.Info("scheduled reconciliation skipped, a run is already in flight")
				return
			}
			appLog.Error("scheduled reconciliation failed", err)
			return
		}
		server.SetLedger(ledger)
		reportLedger(ledger)
	})
	if err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()

	<-ctx.Done()

	c.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
	appLog.Info("shiftcal exiting")
}

// runOffline expands the roster into the desired event set and either
// logs it (-dry-run) or writes it as an ICS file (-dump-ics), without
// any network calls.
func runOffline(conf *config.Config, expander *shift.Expander, flags flagConfig) error {
	r, err := roster.Load(conf.RosterPath)
	if err != nil {
		return err
	}

	desired := make([]model.DesiredEvent, 0, len(r.Entries))
	for _, entry := range r.Entries {
		ev, err := expander.Expand(r.Year, r.Month, entry.Day, entry.Code)
		if err != nil {
			appLog.Error("skipping day", err, "day", entry.Day, "code", entry.Code)
			continue
		}
		desired = append(desired, ev)
		if flags.dryRun {
			appLog.Info("desired event",
				"day", entry.Day,
				"code", entry.Code,
				"all_day", ev.AllDay,
				"start", ev.Start.Format(time.RFC3339),
				"end", ev.End.Format(time.RFC3339),
			)
		}
	}

	if flags.dumpICS != "" {
		if err := ics.WriteFile(flags.dumpICS, desired); err != nil {
			return err
		}
		appLog.Info("wrote ICS dump", "path", flags.dumpICS, "events", len(desired))
	}
	return nil
}

func reportLedger(l *reconcile.Ledger) {
	appLog.Info("reconciliation report",
		"month", l.Month,
		"attempted", l.Attempted,
		"created", l.Created,
		"deleted", l.Deleted,
		"failures", len(l.Failures()),
	)
	for _, f := range l.Failures() {
		appLog.Info("reconciliation failure",
			"day", f.Day,
			"code", f.Code,
			"kind", string(f.Kind),
			"detail", f.Detail,
		)
	}
}

// buildCatalog merges config shift overrides into the built-in table.
func buildCatalog(conf *config.Config) (*shift.Catalog, error) {
	catalog := shift.DefaultCatalog()
	for _, sc := range conf.Shifts {
		var (
			rule shift.Rule
			err  error
		)
		if sc.AllDay {
			rule, err = shift.NewAllDayRule(sc.Code)
		} else {
			rule, err = shift.NewRule(sc.Code, sc.Start, sc.End)
		}
		if err != nil {
			return nil, fmt.Errorf("shift override %q: %w", sc.Code, err)
		}
		catalog.Put(rule)
	}
	return catalog, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/shiftcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.rosterPath, "roster", "", "Roster YAML path (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one reconciliation and exit")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Expand the roster and print the desired events without network calls")
	flag.StringVar(&cfg.dumpICS, "dump-ics", "", "Write the desired month as an ICS file to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
