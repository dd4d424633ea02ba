package hostexec

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/autopatch/autopatch/internal/testoutput"
	"github.com/autopatch/autopatch/pkg/logging"
	"gotest.tools/assert"
)

func requireShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	requireShell(t)
	e := &Executable{log: testoutput.Logger(t, logging.New("exec"))}
	out, err := e.Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; echo $AUTOPATCH_TEST"}, []string{"AUTOPATCH_TEST=set"})
	assert.NilError(t, err)
	assert.Check(t, strings.Contains(out, "out\n"))
	assert.Check(t, strings.Contains(out, "err\n"))
	assert.Check(t, strings.Contains(out, "set\n"))
}

func TestRunExitStatus(t *testing.T) {
	requireShell(t)
	e := &Executable{log: testoutput.Logger(t, logging.New("exec"))}
	out, err := e.Run(context.Background(), "sh", []string{"-c", "echo broken; exit 100"}, nil)
	assert.ErrorContains(t, err, "exit status 100")
	assert.Equal(t, out, "broken\n")
}

func TestRunMissingBinary(t *testing.T) {
	e := &Executable{log: testoutput.Logger(t, logging.New("exec"))}
	_, err := e.Run(context.Background(), "/nonexistent/apt-get", nil, nil)
	assert.ErrorContains(t, err, "unable to start")
}
