package hostexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/autopatch/autopatch/pkg/internal/logfields"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/pkg/errors"
)

// Runner executes a host command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string) (string, error)
}

// Executable runs commands as child processes without a timeout; a hung
// package manager hangs the run.
type Executable struct {
	log logging.Logger
}

var _ Runner = (*Executable)(nil)

func New() *Executable {
	return &Executable{log: logging.New("exec")}
}

// Run starts name with args, adding env to the inherited environment, and
// waits for it to exit. Combined stdout and stderr is returned in either
// case.
func (e *Executable) Run(ctx context.Context, name string, args []string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	log := e.log.WithFields(logfields.Command(name, args))
	log.Debug("executing")

	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("failed to start command")
		return "", errors.Wrapf(err, "unable to start %s", name)
	}
	err := cmd.Wait()
	if logging.Debuggable {
		log = log.WithField("output", buf.String())
	}
	if err != nil {
		log.WithError(err).Warn("command failed")
		return buf.String(), err
	}
	log.Debug("command completed successfully")
	return buf.String(), nil
}
