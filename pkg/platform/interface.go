package platform

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// PackageManager maintains the host's installed packages.
type PackageManager interface {
	// Refresh updates the package index.
	Refresh(ctx context.Context) Result
	// Upgrade installs newer versions of installed packages without
	// prompting, keeping locally modified configuration files.
	Upgrade(ctx context.Context) Result
	// Autoremove removes packages that are no longer needed.
	Autoremove(ctx context.Context) Result
	// Autoclean drops obsolete downloaded package files.
	Autoclean(ctx context.Context) Result
}

// ServiceManager queries and restarts services on the host.
type ServiceManager interface {
	// Unit reports whether the named service is known to the service
	// manager and whether it is running.
	Unit(ctx context.Context, name string) (UnitState, error)
	// Restart restarts the named service and waits for the restart job to
	// finish.
	Restart(ctx context.Context, name string) Result
}

// Rebooter schedules a host reboot.
type Rebooter interface {
	// ScheduleReboot arranges for the host to reboot after delay, warning
	// logged in users with message. It returns once the reboot is scheduled.
	ScheduleReboot(ctx context.Context, delay time.Duration, message string) Result
}

// UnitState is the service manager's view of a service.
type UnitState struct {
	Registered bool
	Active     bool
}

// Result is the outcome of a single operation against the host.
type Result struct {
	// Output is whatever the operation printed, if anything.
	Output string
	// Err is non-nil when the operation failed.
	Err error
}

// Success is a Result for an operation that completed.
func Success(output string) Result {
	return Result{Output: output}
}

// Failure is a Result for an operation that did not complete. A nil err is
// replaced so the Result still reports failure.
func Failure(err error, output string) Result {
	if err == nil {
		err = errors.New("operation failed")
	}
	return Result{Output: output, Err: err}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Detail is a short human readable description of a failure, empty on
// success.
func (r Result) Detail() string {
	if r.Err == nil {
		return ""
	}
	detail := r.Err.Error()
	if last := lastLine(r.Output); last != "" {
		detail += ": " + last
	}
	return detail
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
