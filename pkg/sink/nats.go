package sink

import (
	"strings"

	"github.com/autopatch/autopatch/pkg/event"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// DefaultSubjectPrefix is used when no subject prefix is configured.
const DefaultSubjectPrefix = "autopatch.events"

type publisher interface {
	Publish(subj string, data []byte) error
	Flush() error
	Drain() error
}

// NATS mirrors events onto a NATS subject, one message per event, under
// <prefix>.<server>.
type NATS struct {
	conn   publisher
	prefix string
}

var _ event.Sink = (*NATS)(nil)

// DialNATS connects to the NATS server at url.
func DialNATS(url, prefix, name string) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to nats at %s", url)
	}
	return newNATS(nc, prefix), nil
}

func newNATS(conn publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject events from server are published on.
func (n *NATS) Subject(server string) string {
	// Hostnames may be dotted, and dots separate subject tokens.
	token := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(server)
	if token == "" {
		token = "unknown"
	}
	return n.prefix + "." + token
}

func (n *NATS) Write(e event.Event) error {
	line, err := e.Line()
	if err != nil {
		return errors.Wrap(err, "unable to encode event")
	}
	return errors.Wrap(n.conn.Publish(n.Subject(e.Server), line), "unable to publish event")
}

// Close flushes buffered events and drains the connection.
func (n *NATS) Close() error {
	if err := n.conn.Flush(); err != nil {
		_ = n.conn.Drain()
		return errors.Wrap(err, "unable to flush events")
	}
	return n.conn.Drain()
}
