package testoutput

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/sirupsen/logrus"
)

// New returns a writer that writes strings (assuming lines) to the testing
// logger.
func New(t testing.TB) io.Writer {
	return &testoutput{t}
}

// Logger wraps a logger at the call point to collect its downstream calls.
func Logger(t testing.TB, logger logging.Logger) logging.Logger {
	l := logger.WithFields(logrus.Fields{})
	l.Logger.SetOutput(New(t))
	l.Logger.SetLevel(logrus.DebugLevel)
	return l
}

// Setter routes the root logger into the test's output. Tests using it must
// not run in parallel.
func Setter(t testing.TB) logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(New(t))
		l.SetLevel(logrus.DebugLevel)
		return nil
	}
}

// Revert restores the logger output to write to stderr.
func Revert() logging.Setter {
	return logging.Output(os.Stderr)
}

type testoutput struct {
	t testing.TB
}

func (l *testoutput) Write(p []byte) (n int, err error) {
	l.t.Logf("%s", p)
	return len(p), nil
}

// Recorder is an event sink that keeps every event it is given.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

var _ event.Sink = (*Recorder)(nil)

func (r *Recorder) Write(e event.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// Steps flattens the recorded events into "action/result" pairs.
func (r *Recorder) Steps() []string {
	var steps []string
	for _, e := range r.Events() {
		steps = append(steps, e.Action+"/"+e.Result)
	}
	return steps
}

// Emitter returns an event logger for server "test-host" that writes into
// the Recorder.
func (r *Recorder) Emitter() *event.Logger {
	return event.New(event.Settings{
		EventType:     "system-update",
		ScriptVersion: "0.0.0-test",
		Server:        "test-host",
	}, r)
}
