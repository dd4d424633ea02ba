package restart

import (
	"context"
	"fmt"

	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/autopatch/autopatch/pkg/platform"
)

// Sweep restarts the services in a list that are installed and running so
// they pick up upgraded libraries without a reboot.
type Sweep struct {
	log      logging.Logger
	events   event.Emitter
	services platform.ServiceManager
}

func New(log logging.Logger, events event.Emitter, services platform.ServiceManager) *Sweep {
	return &Sweep{log: log, events: events, services: services}
}

// Run visits every name in order and emits exactly one service-restart event
// for each. No outcome stops the sweep.
func (s *Sweep) Run(ctx context.Context, names []string) {
	for _, name := range names {
		result, message := s.restart(ctx, name)
		s.log.WithField("service", name).WithField("result", result).Debug(message)
		s.events.Emit(marker.ActionServiceRestart, result, message, event.WithService(name))
	}
}

func (s *Sweep) restart(ctx context.Context, name string) (marker.Result, string) {
	state, err := s.services.Unit(ctx, name)
	switch {
	case err != nil:
		return marker.ResultFailure, fmt.Sprintf("Unable to query %s: %v", name, err)
	case !state.Registered:
		return marker.ResultMissing, fmt.Sprintf("%s is not installed", name)
	case !state.Active:
		return marker.ResultSkipped, fmt.Sprintf("%s is not active", name)
	}

	if res := s.services.Restart(ctx, name); !res.OK() {
		return marker.ResultFailure, fmt.Sprintf("Failed to restart %s: %s", name, res.Detail())
	}
	return marker.ResultSuccess, fmt.Sprintf("Restarted %s", name)
}
