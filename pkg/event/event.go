package event

import (
	"encoding/json"
	"time"
)

// TimestampFormat is ISO-8601 with an explicit numeric offset, so UTC renders
// as +00:00 rather than Z.
const TimestampFormat = "2006-01-02T15:04:05-07:00"

// Event is a single record in the structured event stream. Field order is the
// wire key order.
type Event struct {
	Timestamp     string `json:"timestamp"`
	EventType     string `json:"event_type"`
	Service       string `json:"service"`
	Server        string `json:"server"`
	Action        string `json:"action"`
	Result        string `json:"result"`
	Message       string `json:"message"`
	ScriptVersion string `json:"script_version"`
}

// Line renders the event as a single line of JSON without a trailing newline.
func (e Event) Line() ([]byte, error) {
	return json.Marshal(e)
}

// Time parses the event's timestamp.
func (e Event) Time() (time.Time, error) {
	return time.Parse(TimestampFormat, e.Timestamp)
}
