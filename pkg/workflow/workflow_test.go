package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/autopatch/autopatch/internal/testoutput"
	"github.com/autopatch/autopatch/pkg/config"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/autopatch/autopatch/pkg/platform"
	"github.com/pkg/errors"
	"gotest.tools/assert"
)

type testPlatform struct {
	calls []string

	RefreshFn    func() platform.Result
	UpgradeFn    func() platform.Result
	AutoremoveFn func() platform.Result
	AutocleanFn  func() platform.Result
	UnitFn       func(name string) (platform.UnitState, error)
	RestartFn    func(name string) platform.Result
	RebootFn     func(delay time.Duration, message string) platform.Result
}

func (p *testPlatform) call(name string, fn func() platform.Result) platform.Result {
	p.calls = append(p.calls, name)
	if fn != nil {
		return fn()
	}
	return platform.Success("")
}

func (p *testPlatform) Refresh(context.Context) platform.Result {
	return p.call("refresh", p.RefreshFn)
}

func (p *testPlatform) Upgrade(context.Context) platform.Result {
	return p.call("upgrade", p.UpgradeFn)
}

func (p *testPlatform) Autoremove(context.Context) platform.Result {
	return p.call("autoremove", p.AutoremoveFn)
}

func (p *testPlatform) Autoclean(context.Context) platform.Result {
	return p.call("autoclean", p.AutocleanFn)
}

func (p *testPlatform) Unit(_ context.Context, name string) (platform.UnitState, error) {
	p.calls = append(p.calls, "unit:"+name)
	if p.UnitFn != nil {
		return p.UnitFn(name)
	}
	return platform.UnitState{Registered: true, Active: true}, nil
}

func (p *testPlatform) Restart(_ context.Context, name string) platform.Result {
	return p.call("restart:"+name, func() platform.Result {
		if p.RestartFn != nil {
			return p.RestartFn(name)
		}
		return platform.Success("")
	})
}

func (p *testPlatform) ScheduleReboot(_ context.Context, delay time.Duration, message string) platform.Result {
	return p.call("reboot", func() platform.Result {
		if p.RebootFn != nil {
			return p.RebootFn(delay, message)
		}
		return platform.Success("")
	})
}

type testRun struct {
	workflow *Workflow
	platform *testPlatform
	events   *testoutput.Recorder
	sentinel string
}

func testWorkflow(t *testing.T, autoReboot, rebootRequired bool) *testRun {
	sentinel := filepath.Join(t.TempDir(), "reboot-required")
	if rebootRequired {
		assert.NilError(t, os.WriteFile(sentinel, nil, 0644))
	}
	cfg := config.Default()
	cfg.AutoReboot = autoReboot
	cfg.SentinelPath = sentinel

	plat := &testPlatform{}
	rec := &testoutput.Recorder{}
	w, err := New(testoutput.Logger(t, logging.New("workflow")), cfg, Deps{
		Events:   rec.Emitter(),
		Packages: plat,
		Services: plat,
		Rebooter: plat,
	})
	assert.NilError(t, err)
	return &testRun{workflow: w, platform: plat, events: rec, sentinel: sentinel}
}

func failed(detail string) func() platform.Result {
	return func() platform.Result {
		return platform.Failure(errors.New(detail), "")
	}
}

func TestRunNothingPending(t *testing.T) {
	run := testWorkflow(t, true, false)
	assert.Equal(t, run.workflow.Run(context.Background()), ExitSuccess)
	assert.DeepEqual(t, run.events.Steps(), []string{
		"start/ok",
		"apt-update/success",
		"apt-upgrade/success",
		"cleanup/success",
		"reboot-check/not-required",
		"end/success",
	})
	assert.DeepEqual(t, run.platform.calls, []string{"refresh", "upgrade", "autoremove", "autoclean"})
	assert.Equal(t, run.workflow.state.cursor, stepDone)
}

func TestRunNothingPendingManual(t *testing.T) {
	run := testWorkflow(t, false, false)
	assert.Equal(t, run.workflow.Run(context.Background()), ExitSuccess)
	for _, e := range run.events.Events() {
		assert.Check(t, e.Action != marker.ActionReboot)
		assert.Check(t, e.Action != marker.ActionServiceRestart)
	}
}

func TestRunAutoReboot(t *testing.T) {
	run := testWorkflow(t, true, true)
	var gotDelay time.Duration
	var gotMessage string
	run.platform.RebootFn = func(delay time.Duration, message string) platform.Result {
		gotDelay = delay
		gotMessage = message
		return platform.Success("")
	}
	assert.Equal(t, run.workflow.Run(context.Background()), ExitSuccess)
	assert.DeepEqual(t, run.events.Steps(), []string{
		"start/ok",
		"apt-update/success",
		"apt-upgrade/success",
		"cleanup/success",
		"reboot-check/required",
		"reboot/scheduled",
		"end/success",
	})
	assert.Equal(t, gotDelay, time.Minute)
	assert.Equal(t, gotMessage, "System will reboot in 1 minute to complete updates")
	for _, call := range run.platform.calls {
		assert.Check(t, call != "unit:nginx", "sweep must not run when rebooting")
	}
}

func TestRunAutoRebootScheduleFails(t *testing.T) {
	run := testWorkflow(t, true, true)
	run.platform.RebootFn = func(time.Duration, string) platform.Result {
		return platform.Failure(errors.New("exit status 1"), "")
	}
	assert.Equal(t, run.workflow.Run(context.Background()), ExitSuccess)
	steps := run.events.Steps()
	assert.DeepEqual(t, steps[len(steps)-3:], []string{"reboot/scheduled", "reboot/failure", "end/success"})
}

func TestRunManualRestart(t *testing.T) {
	run := testWorkflow(t, false, true)
	run.platform.UnitFn = func(name string) (platform.UnitState, error) {
		switch name {
		case "apache2":
			return platform.UnitState{}, nil
		case "haproxy":
			return platform.UnitState{Registered: true}, nil
		}
		return platform.UnitState{Registered: true, Active: true}, nil
	}
	assert.Equal(t, run.workflow.Run(context.Background()), ExitSuccess)

	events := run.events.Events()
	assert.DeepEqual(t, run.events.Steps(), []string{
		"start/ok",
		"apt-update/success",
		"apt-upgrade/success",
		"cleanup/success",
		"reboot-check/required",
		"reboot/skipped",
		"service-restart/success",
		"service-restart/missing",
		"service-restart/success",
		"service-restart/skipped",
		"service-restart/success",
		"end/success",
	})
	var services []string
	for _, e := range events[6:11] {
		services = append(services, e.Service)
	}
	assert.DeepEqual(t, services, marker.DefaultServices())
	assert.Equal(t, events[9].Message, "haproxy is not active")
	assert.Equal(t, events[6].Message, "Restarted nginx")
}

func TestRunRebootCheckMessage(t *testing.T) {
	run := testWorkflow(t, true, true)
	assert.NilError(t, os.WriteFile(run.sentinel+".pkgs", []byte("linux-image-amd64\nlibssl3\n"), 0644))
	run.workflow.Run(context.Background())
	assert.Equal(t, run.events.Events()[4].Message, "Reboot required by linux-image-amd64, libssl3")
}

func TestRunFatalSteps(t *testing.T) {
	for _, tc := range []struct {
		name   string
		setup  func(p *testPlatform)
		action string
		calls  []string
	}{
		{
			name:   "refresh",
			setup:  func(p *testPlatform) { p.RefreshFn = failed("exit status 100") },
			action: marker.ActionAptUpdate,
			calls:  []string{"refresh"},
		},
		{
			name:   "upgrade",
			setup:  func(p *testPlatform) { p.UpgradeFn = failed("exit status 100") },
			action: marker.ActionAptUpgrade,
			calls:  []string{"refresh", "upgrade"},
		},
		{
			name:   "autoremove",
			setup:  func(p *testPlatform) { p.AutoremoveFn = failed("exit status 1") },
			action: marker.ActionCleanup,
			calls:  []string{"refresh", "upgrade", "autoremove"},
		},
		{
			name:   "autoclean",
			setup:  func(p *testPlatform) { p.AutocleanFn = failed("exit status 1") },
			action: marker.ActionCleanup,
			calls:  []string{"refresh", "upgrade", "autoremove", "autoclean"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// A pending reboot must not be acted on after a fatal step.
			run := testWorkflow(t, true, true)
			tc.setup(run.platform)

			assert.Equal(t, run.workflow.Run(context.Background()), ExitFailure)
			assert.DeepEqual(t, run.platform.calls, tc.calls)

			events := run.events.Events()
			last := events[len(events)-1]
			assert.Equal(t, last.Action, tc.action)
			assert.Equal(t, last.Result, marker.ResultFailure)

			failures := 0
			for _, e := range events {
				if e.Result == marker.ResultFailure {
					failures++
				}
				assert.Check(t, e.Action != marker.ActionRebootCheck)
				assert.Check(t, e.Action != marker.ActionEnd)
			}
			assert.Equal(t, failures, 1)
		})
	}
}

func TestRunEventsAreComplete(t *testing.T) {
	run := testWorkflow(t, false, true)
	run.workflow.Run(context.Background())
	for i, e := range run.events.Events() {
		line, err := e.Line()
		assert.NilError(t, err)
		var decoded map[string]interface{}
		assert.NilError(t, json.Unmarshal(line, &decoded))
		assert.Equal(t, len(decoded), 8, fmt.Sprintf("event %d", i))
		for key, value := range decoded {
			s, ok := value.(string)
			assert.Check(t, ok && s != "", "event %d key %s", i, key)
		}
	}
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(logging.New("workflow"), config.Default(), Deps{})
	assert.ErrorContains(t, err, "is nil")
}
