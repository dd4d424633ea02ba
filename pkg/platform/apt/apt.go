package apt

import (
	"context"

	"github.com/autopatch/autopatch/pkg/hostexec"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/platform"
	"github.com/pkg/errors"
)

// Assert apt as a package manager implementor.
var _ platform.PackageManager = (*Apt)(nil)

// Apt drives apt-get on Debian-family hosts.
type Apt struct {
	log     logging.Logger
	bin     string
	upgrade aptCommand
	cli     hostexec.Runner
}

// Config selects the apt binary and upgrade flavor.
type Config struct {
	Bin string
	// UpgradeCommand is either "upgrade" or "dist-upgrade".
	UpgradeCommand string
}

// New returns an Apt running commands through runner.
func New(cfg Config, runner hostexec.Runner) (*Apt, error) {
	a := &Apt{
		log:     logging.New("apt"),
		bin:     cfg.Bin,
		upgrade: cfg.UpgradeCommand,
		cli:     runner,
	}
	if a.bin == "" {
		a.bin = DefaultBin
	}
	switch a.upgrade {
	case "":
		a.upgrade = CommandUpgrade
	case CommandUpgrade, CommandDistUpgrade:
	default:
		return nil, errors.Errorf("unsupported upgrade command %q", cfg.UpgradeCommand)
	}
	return a, nil
}

// Refresh runs apt-get update.
func (a *Apt) Refresh(ctx context.Context) platform.Result {
	a.log.Debug("refreshing package index")
	return a.run(ctx, CommandUpdate)
}

// Upgrade runs a non-interactive upgrade that keeps local configuration.
func (a *Apt) Upgrade(ctx context.Context) platform.Result {
	a.log.WithField("command", a.upgrade).Debug("upgrading packages")
	args := append([]string{"-y"}, keepLocalConfig...)
	return a.run(ctx, a.upgrade, args...)
}

// Autoremove removes packages that were only installed as dependencies.
func (a *Apt) Autoremove(ctx context.Context) platform.Result {
	a.log.Debug("removing unused packages")
	return a.run(ctx, CommandAutoremove, "-y")
}

// Autoclean drops package files that can no longer be downloaded.
func (a *Apt) Autoclean(ctx context.Context) platform.Result {
	a.log.Debug("cleaning package cache")
	return a.run(ctx, CommandAutoclean, "-y")
}

func (a *Apt) run(ctx context.Context, command aptCommand, flags ...string) platform.Result {
	args := append(flags, command)
	out, err := a.cli.Run(ctx, a.bin, args, []string{noninteractive})
	if err != nil {
		return platform.Failure(errors.Wrapf(err, "%s %s failed", a.bin, command), out)
	}
	return platform.Success(out)
}
