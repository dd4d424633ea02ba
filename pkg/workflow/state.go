package workflow

// step is the workflow's cursor.
type step int

const (
	stepStart step = iota
	stepRefresh
	stepUpgrade
	stepCleanup
	stepRebootCheck
	stepRebootPolicy
	stepEnd
	stepDone
)

var stepNames = map[step]string{
	stepStart:        "start",
	stepRefresh:      "refresh",
	stepUpgrade:      "upgrade",
	stepCleanup:      "cleanup",
	stepRebootCheck:  "reboot-check",
	stepRebootPolicy: "reboot-policy",
	stepEnd:          "end",
	stepDone:         "done",
}

func (s step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// state lives for a single run.
type state struct {
	cursor         step
	rebootRequired bool
	autoReboot     bool
}
