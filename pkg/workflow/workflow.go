package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/autopatch/autopatch/pkg/config"
	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/autopatch/autopatch/pkg/platform"
	"github.com/autopatch/autopatch/pkg/reboot"
	"github.com/autopatch/autopatch/pkg/restart"
	"github.com/pkg/errors"
)

// Exit codes returned by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Deps are the collaborators a Workflow drives.
type Deps struct {
	Events   event.Emitter
	Packages platform.PackageManager
	Services platform.ServiceManager
	Rebooter platform.Rebooter
}

type Workflow struct {
	log      logging.Logger
	cfg      config.Config
	events   event.Emitter
	packages platform.PackageManager
	policy   *reboot.Policy

	state state
}

func New(log logging.Logger, cfg config.Config, deps Deps) (*Workflow, error) {
	switch {
	case deps.Events == nil:
		return nil, errors.New("event emitter is nil")
	case deps.Packages == nil:
		return nil, errors.New("package manager is nil")
	case deps.Services == nil:
		return nil, errors.New("service manager is nil")
	case deps.Rebooter == nil:
		return nil, errors.New("rebooter is nil")
	}

	sweep := restart.New(log.WithField("worker", "restart"), deps.Events, deps.Services)
	policy := reboot.NewPolicy(log.WithField("worker", "reboot"), deps.Events, deps.Rebooter, sweep, reboot.Options{
		AutoReboot: cfg.AutoReboot,
		Delay:      cfg.RebootDelay(),
		Message:    cfg.RebootWarning(),
		Services:   cfg.Services,
	})
	return &Workflow{
		log:      log,
		cfg:      cfg,
		events:   deps.Events,
		packages: deps.Packages,
		policy:   policy,
		state:    state{autoReboot: cfg.AutoReboot},
	}, nil
}

// Run performs the maintenance pass and returns the process exit code.
func (w *Workflow) Run(ctx context.Context) int {
	w.advance(stepStart)
	w.events.Emit(marker.ActionStart, marker.ResultOK, "Starting system update")

	w.advance(stepRefresh)
	if !w.fatalStep(ctx, marker.ActionAptUpdate, w.packages.Refresh,
		"Package index refreshed", "Unable to refresh package index") {
		return ExitFailure
	}

	w.advance(stepUpgrade)
	if !w.fatalStep(ctx, marker.ActionAptUpgrade, w.packages.Upgrade,
		"Packages upgraded", "Unable to upgrade packages") {
		return ExitFailure
	}

	w.advance(stepCleanup)
	if !w.fatalStep(ctx, marker.ActionCleanup, w.cleanup,
		"Removed unused packages and cleaned package cache", "Unable to clean up packages") {
		return ExitFailure
	}

	w.advance(stepRebootCheck)
	w.checkReboot()

	w.advance(stepRebootPolicy)
	w.policy.Apply(ctx, w.state.rebootRequired)

	w.advance(stepEnd)
	w.events.Emit(marker.ActionEnd, marker.ResultSuccess, "System update completed")
	w.advance(stepDone)
	return ExitSuccess
}

// fatalStep runs op and reports it. A false return means the run must stop.
func (w *Workflow) fatalStep(ctx context.Context, action marker.Action, op func(context.Context) platform.Result, okMessage, failMessage string) bool {
	res := op(ctx)
	if !res.OK() {
		w.log.WithError(res.Err).WithField("step", w.state.cursor).Error("step failed, aborting")
		w.events.Emit(action, marker.ResultFailure, fmt.Sprintf("%s: %s", failMessage, res.Detail()))
		return false
	}
	w.events.Emit(action, marker.ResultSuccess, okMessage)
	return true
}

// cleanup removes unused packages and then cleans the cache; both must
// succeed.
func (w *Workflow) cleanup(ctx context.Context) platform.Result {
	if res := w.packages.Autoremove(ctx); !res.OK() {
		return res
	}
	return w.packages.Autoclean(ctx)
}

func (w *Workflow) checkReboot() {
	required, pkgs := reboot.Required(w.cfg.SentinelPath)
	w.state.rebootRequired = required
	if !required {
		w.events.Emit(marker.ActionRebootCheck, marker.ResultNotRequired, "No reboot required")
		return
	}
	message := "Reboot required"
	if len(pkgs) > 0 {
		message = fmt.Sprintf("Reboot required by %s", strings.Join(pkgs, ", "))
	}
	w.events.Emit(marker.ActionRebootCheck, marker.ResultRequired, message)
}

func (w *Workflow) advance(to step) {
	w.state.cursor = to
	w.log.WithField("step", to).
		WithField("reboot_required", w.state.rebootRequired).
		WithField("auto_reboot", w.state.autoReboot).
		Debug("advancing")
}
