package systemd

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/platform"
	systemd "github.com/coreos/go-systemd/v22/dbus"
	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	unitSuffix = ".service"

	loadStateNotFound = "not-found"
	activeStateActive = "active"

	restartMode = "replace"
	jobDone     = "done"
)

// Assert Manager as a service manager implementor.
var _ platform.ServiceManager = (*Manager)(nil)

type unitConn interface {
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]systemd.UnitStatus, error)
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

// Manager talks to systemd over D-Bus. The connection is opened on first use
// so a run that never restarts services never needs the bus.
type Manager struct {
	log  logging.Logger
	dial func(ctx context.Context) (unitConn, error)

	mu   sync.Mutex
	conn unitConn
}

// New returns a Manager. With an empty socket the system bus (or systemd's
// private socket when running as root) is used; otherwise the given systemd
// private socket is dialed directly.
func New(socket string) *Manager {
	m := &Manager{log: logging.New("systemd")}
	m.dial = func(ctx context.Context) (unitConn, error) {
		if socket == "" {
			return systemd.NewWithContext(ctx)
		}
		return connectSocket(socket)
	}
	return m
}

// Unit reports whether name.service is loaded and running.
func (m *Manager) Unit(ctx context.Context, name string) (platform.UnitState, error) {
	conn, err := m.connection(ctx)
	if err != nil {
		return platform.UnitState{}, err
	}
	unit := unitName(name)
	statuses, err := conn.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return platform.UnitState{}, errors.Wrapf(err, "unable to query %s", unit)
	}
	// systemd answers with the unit's primary name, so an alias such as
	// bind9.service comes back as named.service.
	if len(statuses) == 0 {
		return platform.UnitState{}, nil
	}
	status := statuses[0]
	m.log.WithField("unit", unit).
		WithField("id", status.Name).
		WithField("load", status.LoadState).
		WithField("active", status.ActiveState).
		Debug("queried unit")
	return platform.UnitState{
		Registered: status.LoadState != loadStateNotFound,
		Active:     status.ActiveState == activeStateActive,
	}, nil
}

// Restart restarts name.service and waits for systemd to report the job's
// result.
func (m *Manager) Restart(ctx context.Context, name string) platform.Result {
	conn, err := m.connection(ctx)
	if err != nil {
		return platform.Failure(err, "")
	}
	unit := unitName(name)
	done := make(chan string, 1)
	if _, err := conn.RestartUnitContext(ctx, unit, restartMode, done); err != nil {
		return platform.Failure(errors.Wrapf(err, "unable to restart %s", unit), "")
	}
	select {
	case result := <-done:
		if result != jobDone {
			return platform.Failure(errors.Errorf("restart of %s finished with result %q", unit, result), "")
		}
		return platform.Success("")
	case <-ctx.Done():
		return platform.Failure(errors.Wrapf(ctx.Err(), "waiting on restart of %s", unit), "")
	}
}

// Close releases the D-Bus connection if one was opened.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) connection(ctx context.Context) (unitConn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return m.conn, nil
	}
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to systemd")
	}
	m.conn = conn
	return conn, nil
}

func connectSocket(socket string) (*systemd.Conn, error) {
	dialer := func() (*dbus.Conn, error) {
		conn, err := dbus.Dial("unix:path=" + socket)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to connect to systemd socket %s", socket)
		}
		// Authenticate with the user's authority.
		methods := []dbus.Auth{dbus.AuthExternal(strconv.Itoa(os.Getuid()))}
		if err := conn.Auth(methods); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "unable to authenticate with systemd")
		}
		return conn, nil
	}
	return systemd.NewConnection(dialer)
}

func unitName(name string) string {
	if strings.HasSuffix(name, unitSuffix) {
		return name
	}
	return name + unitSuffix
}
