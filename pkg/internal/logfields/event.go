package logfields

import (
	"github.com/autopatch/autopatch/pkg/event"
	"github.com/sirupsen/logrus"
)

// Event describes e for the operational log.
func Event(e event.Event) logrus.Fields {
	return logrus.Fields{
		"action":  e.Action,
		"result":  e.Result,
		"service": e.Service,
	}
}

// Command describes an external command for the operational log.
func Command(name string, args []string) logrus.Fields {
	return logrus.Fields{
		"cmd":  name,
		"args": args,
	}
}
