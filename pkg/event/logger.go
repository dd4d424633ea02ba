package event

import (
	"io"
	"os"
	"time"

	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/marker"
)

// Sink receives every emitted event. Errors are reported to the operational
// log and otherwise ignored.
type Sink interface {
	Write(Event) error
}

// Emitter is the one-way interface the workflow reports through.
type Emitter interface {
	Emit(action marker.Action, result marker.Result, message string, opts ...Option)
}

// Settings are the per-run constants stamped onto every event.
type Settings struct {
	EventType     string
	ScriptVersion string
	// Server defaults to the local hostname.
	Server string
}

// Option adjusts a single emitted event.
type Option func(*Event)

// WithService names the service the event is about.
func WithService(name string) Option {
	return func(e *Event) {
		e.Service = name
	}
}

// WithServer overrides the reporting host.
func WithServer(host string) Option {
	return func(e *Event) {
		e.Server = host
	}
}

var _ Emitter = (*Logger)(nil)

// Logger builds events and fans them out to its sinks.
type Logger struct {
	log      logging.Logger
	settings Settings
	sinks    []Sink
	now      func() time.Time
}

// New creates a Logger writing to sinks.
func New(settings Settings, sinks ...Sink) *Logger {
	if settings.Server == "" {
		settings.Server = hostname()
	}
	if settings.EventType == "" {
		settings.EventType = marker.DefaultEventType
	}
	return &Logger{
		log:      logging.New("events"),
		settings: settings,
		sinks:    sinks,
		now:      time.Now,
	}
}

// Emit constructs an event and writes it to every sink. It never fails the
// caller.
func (l *Logger) Emit(action marker.Action, result marker.Result, message string, opts ...Option) {
	ev := Event{
		Timestamp:     l.now().Format(TimestampFormat),
		EventType:     l.settings.EventType,
		Service:       marker.DefaultService,
		Server:        l.settings.Server,
		Action:        action,
		Result:        result,
		Message:       message,
		ScriptVersion: l.settings.ScriptVersion,
	}
	for _, opt := range opts {
		opt(&ev)
	}

	for _, sink := range l.sinks {
		if err := sink.Write(ev); err != nil {
			l.log.WithError(err).WithField("action", action).Warn("unable to write event")
		}
	}
}

// Close releases any sink that holds resources.
func (l *Logger) Close() {
	for _, sink := range l.sinks {
		c, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			l.log.WithError(err).Warn("unable to close event sink")
		}
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}
