package reboot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/autopatch/autopatch/pkg/platform"
)

// Decision is what the policy does about a pending reboot. Every Decision is
// terminal.
type Decision int

const (
	NotRequired Decision = iota
	AutoReboot
	ManualRestart
)

func (d Decision) String() string {
	switch d {
	case NotRequired:
		return "not-required"
	case AutoReboot:
		return "auto-reboot"
	case ManualRestart:
		return "manual-restart"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Decide maps the reboot state and configuration onto a Decision.
func Decide(required, autoReboot bool) Decision {
	switch {
	case !required:
		return NotRequired
	case autoReboot:
		return AutoReboot
	default:
		return ManualRestart
	}
}

// Sweeper restarts services in place of a reboot.
type Sweeper interface {
	Run(ctx context.Context, services []string)
}

// Options configure a Policy.
type Options struct {
	AutoReboot bool
	Delay      time.Duration
	Message    string
	Services   []string
}

// Policy carries out a Decision.
type Policy struct {
	log      logging.Logger
	events   event.Emitter
	rebooter platform.Rebooter
	sweep    Sweeper
	opts     Options
}

func NewPolicy(log logging.Logger, events event.Emitter, rebooter platform.Rebooter, sweep Sweeper, opts Options) *Policy {
	return &Policy{
		log:      log,
		events:   events,
		rebooter: rebooter,
		sweep:    sweep,
		opts:     opts,
	}
}

// Apply decides and acts on a pending reboot. It never blocks on the reboot
// itself and never fails the run.
func (p *Policy) Apply(ctx context.Context, required bool) Decision {
	decision := Decide(required, p.opts.AutoReboot)
	log := p.log.WithField("decision", decision)
	log.Debug("applying reboot policy")

	switch decision {
	case AutoReboot:
		p.events.Emit(marker.ActionReboot, marker.ResultScheduled,
			fmt.Sprintf("Reboot required, rebooting in %s", minutes(p.opts.Delay)))
		res := p.rebooter.ScheduleReboot(ctx, p.opts.Delay, p.opts.Message)
		if !res.OK() {
			log.WithError(res.Err).Error("reboot was not scheduled")
			p.events.Emit(marker.ActionReboot, marker.ResultFailure,
				fmt.Sprintf("Unable to schedule reboot: %s", res.Detail()))
		}
	case ManualRestart:
		p.events.Emit(marker.ActionReboot, marker.ResultSkipped,
			"Reboot required but automatic reboot is disabled, restarting services")
		p.sweep.Run(ctx, p.opts.Services)
	}
	return decision
}

func minutes(d time.Duration) string {
	n := int(math.Ceil(d.Minutes()))
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
