// Package noop is a dry-run platform: every operation is logged and reported
// as successful without touching the host.
package noop

import (
	"context"
	"time"

	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/platform"
)

var (
	_ platform.PackageManager = (*Platform)(nil)
	_ platform.ServiceManager = (*Platform)(nil)
	_ platform.Rebooter       = (*Platform)(nil)
)

type Platform struct {
	log logging.Logger
}

func New() *Platform {
	return &Platform{log: logging.New("dry-run")}
}

func (p *Platform) Refresh(context.Context) platform.Result {
	return p.would("refresh package index")
}

func (p *Platform) Upgrade(context.Context) platform.Result {
	return p.would("upgrade packages")
}

func (p *Platform) Autoremove(context.Context) platform.Result {
	return p.would("remove unused packages")
}

func (p *Platform) Autoclean(context.Context) platform.Result {
	return p.would("clean package cache")
}

// Unit reports every service as installed and running so the whole restart
// path is exercised.
func (p *Platform) Unit(_ context.Context, name string) (platform.UnitState, error) {
	return platform.UnitState{Registered: true, Active: true}, nil
}

func (p *Platform) Restart(_ context.Context, name string) platform.Result {
	return p.would("restart " + name)
}

func (p *Platform) ScheduleReboot(_ context.Context, delay time.Duration, message string) platform.Result {
	p.log.WithField("delay", delay).WithField("message", message).Info("would schedule reboot")
	return platform.Success("")
}

func (p *Platform) would(action string) platform.Result {
	p.log.Infof("would %s", action)
	return platform.Success("")
}
