package sink

import (
	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/coreos/go-systemd/v22/journal"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNoJournal is returned when the systemd journal socket is not available.
var ErrNoJournal = errors.New("systemd journal is not available")

// sendFunc matches journal.Send.
type sendFunc func(message string, priority journal.Priority, vars map[string]string) error

// Journal writes each event's JSON line as the journal MESSAGE, tagged with
// a fixed syslog identifier so the forwarder can pick it out.
type Journal struct {
	identifier string
	runID      string
	send       sendFunc
}

var _ event.Sink = (*Journal)(nil)

// NewJournal connects to the local journal. Every event written through the
// returned sink carries the same run id.
func NewJournal(identifier string) (*Journal, error) {
	if !journal.Enabled() {
		return nil, ErrNoJournal
	}
	return newJournal(identifier, journal.Send), nil
}

func newJournal(identifier string, send sendFunc) *Journal {
	if identifier == "" {
		identifier = marker.DefaultIdentifier
	}
	return &Journal{
		identifier: identifier,
		runID:      uuid.New().String(),
		send:       send,
	}
}

// RunID is the identifier shared by this run's events.
func (j *Journal) RunID() string {
	return j.runID
}

func (j *Journal) Write(e event.Event) error {
	line, err := e.Line()
	if err != nil {
		return errors.Wrap(err, "unable to encode event")
	}
	priority := journal.PriInfo
	if e.Result == marker.ResultFailure {
		priority = journal.PriErr
	}
	vars := map[string]string{
		marker.IdentifierKey: j.identifier,
		marker.ActionKey:     e.Action,
		marker.ResultKey:     e.Result,
		marker.ServiceKey:    e.Service,
		marker.RunIDKey:      j.runID,
	}
	return errors.Wrap(j.send(string(line), priority, vars), "unable to write to journal")
}
