package systemd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/autopatch/autopatch/pkg/hostexec"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/platform"
	"github.com/pkg/errors"
)

// DefaultShutdownBin schedules reboots when no other binary is configured.
const DefaultShutdownBin = "shutdown"

var _ platform.Rebooter = (*Shutdown)(nil)

// Shutdown schedules deferred reboots with shutdown(8). systemd-logind owns
// the pending reboot once scheduled; there is no way to confirm that it
// happens.
type Shutdown struct {
	log logging.Logger
	bin string
	cli hostexec.Runner
}

func NewShutdown(bin string, runner hostexec.Runner) *Shutdown {
	if bin == "" {
		bin = DefaultShutdownBin
	}
	return &Shutdown{log: logging.New("shutdown"), bin: bin, cli: runner}
}

// ScheduleReboot runs `shutdown -r +<minutes> <message>`. Delays are rounded
// up to whole minutes.
func (s *Shutdown) ScheduleReboot(ctx context.Context, delay time.Duration, message string) platform.Result {
	minutes := int(math.Ceil(delay.Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	args := []string{"-r", fmt.Sprintf("+%d", minutes)}
	if message != "" {
		args = append(args, message)
	}
	s.log.WithField("minutes", minutes).Info("scheduling reboot")
	out, err := s.cli.Run(ctx, s.bin, args, nil)
	if err != nil {
		return platform.Failure(errors.Wrap(err, "unable to schedule reboot"), out)
	}
	return platform.Success(out)
}
