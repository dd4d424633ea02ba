package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/autopatch/autopatch/pkg/config"
	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/hostexec"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/platform/apt"
	"github.com/autopatch/autopatch/pkg/platform/noop"
	"github.com/autopatch/autopatch/pkg/platform/systemd"
	"github.com/autopatch/autopatch/pkg/sigcontext"
	"github.com/autopatch/autopatch/pkg/sink"
	"github.com/autopatch/autopatch/pkg/workflow"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	os.Exit(_main(os.Args))
}

func _main(args []string) int {
	exitCode := workflow.ExitSuccess
	app := &cli.App{
		Name:    "autopatch",
		Usage:   "upgrade packages, clean up, and reboot or restart services when needed",
		Version: config.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the TOML or YAML configuration file",
				Value:   config.DefaultPath,
				EnvVars: []string{"AUTOPATCH_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "auto-reboot",
				Usage:   "reboot automatically when a reboot is required (overrides the configuration file)",
				EnvVars: []string{"AUTOPATCH_AUTO_REBOOT"},
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Usage:   "log what would be done without changing the host",
				EnvVars: []string{"AUTOPATCH_DRY_RUN"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "append operational logs to this file instead of stderr",
				EnvVars: []string{"AUTOPATCH_LOG_FILE"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				EnvVars: []string{"AUTOPATCH_DEBUG"},
			},
		},
		Action: func(c *cli.Context) error {
			exitCode = run(c)
			return nil
		},
	}

	if err := app.Run(args); err != nil {
		logging.New("main").WithError(err).Error("invalid invocation")
		return workflow.ExitFailure
	}
	return exitCode
}

func run(c *cli.Context) int {
	if c.Bool("debug") {
		logging.Set(logging.Level("debug"))
	}
	log := logging.New("main")
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			log.WithError(err).Error("unable to open log file")
			return workflow.ExitFailure
		}
		defer f.Close()
		logging.Set(logging.Output(f))
		defer logging.Set(logging.Output(os.Stderr))
	}

	if logging.Debuggable {
		log.Warn("logging.Debuggable build: full command output is logged")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		log.WithError(err).Error("unable to load configuration")
		return workflow.ExitFailure
	}
	if c.IsSet("auto-reboot") {
		cfg.AutoReboot = c.Bool("auto-reboot")
	}
	if c.Bool("dry-run") {
		cfg.DryRun = true
	}

	ctx, cancel := sigcontext.WithSignalCancel(context.Background(), log, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events := event.New(event.Settings{
		EventType:     cfg.EventType,
		ScriptVersion: cfg.ScriptVersion,
		Server:        cfg.Server,
	}, sinks(log, cfg)...)
	defer events.Close()

	deps, release, err := platformDeps(cfg, events)
	if err != nil {
		log.WithError(err).Error("unable to set up platform")
		return workflow.ExitFailure
	}
	defer release()

	wf, err := workflow.New(logging.New("workflow"), cfg, deps)
	if err != nil {
		log.WithError(err).Error("unable to set up workflow")
		return workflow.ExitFailure
	}

	start := time.Now()
	code := wf.Run(ctx)
	log.WithField("exit_code", code).
		WithField("elapsed", time.Since(start).Round(time.Second)).
		WithField("dry_run", cfg.DryRun).
		Info("run finished")
	return code
}

// openJournal connects to the local journal.
var openJournal = func(log logging.Logger, identifier string) (event.Sink, error) {
	j, err := sink.NewJournal(identifier)
	if err != nil {
		return nil, err
	}
	log.WithField("run_id", j.RunID()).Debug("writing events to journal")
	return j, nil
}

// sinks opens every configured event destination. A destination that cannot
// be opened is logged and left out; events still reach the others.
func sinks(log logging.Logger, cfg config.Config) []event.Sink {
	var out []event.Sink
	stdout := cfg.Events.Stdout

	if j, err := openJournal(log, cfg.Identifier); err != nil {
		log.WithError(err).Warn("journal unavailable, writing events to stdout")
		stdout = true
	} else {
		out = append(out, j)
	}
	if stdout {
		out = append(out, sink.NewWriter(os.Stdout))
	}
	if cfg.Events.File != "" {
		if f, err := sink.OpenFile(cfg.Events.File); err != nil {
			log.WithError(err).WithField("file", cfg.Events.File).Warn("not writing events to file")
		} else {
			out = append(out, f)
		}
	}
	if cfg.NATS.URL != "" {
		if n, err := sink.DialNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, cfg.Identifier); err != nil {
			log.WithError(err).Warn("not mirroring events to nats")
		} else {
			out = append(out, n)
		}
	}
	if cfg.Metrics.Textfile != "" {
		out = append(out, sink.NewMetrics(cfg.Metrics.Textfile))
	}
	return out
}

func platformDeps(cfg config.Config, events event.Emitter) (workflow.Deps, func(), error) {
	if cfg.DryRun {
		p := noop.New()
		return workflow.Deps{Events: events, Packages: p, Services: p, Rebooter: p}, func() {}, nil
	}

	runner := hostexec.New()
	packages, err := apt.New(apt.Config{
		Bin:            cfg.Apt.Bin,
		UpgradeCommand: cfg.Apt.UpgradeCommand,
	}, runner)
	if err != nil {
		return workflow.Deps{}, nil, errors.WithMessage(err, "apt")
	}
	services := systemd.New(cfg.Systemd.Socket)
	return workflow.Deps{
		Events:   events,
		Packages: packages,
		Services: services,
		Rebooter: systemd.NewShutdown(cfg.ShutdownBin, runner),
	}, services.Close, nil
}
