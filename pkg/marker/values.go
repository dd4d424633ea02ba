package marker

// Action identifies the workflow step an event reports on.
type Action = string

const (
	ActionStart          Action = "start"
	ActionAptUpdate      Action = "apt-update"
	ActionAptUpgrade     Action = "apt-upgrade"
	ActionCleanup        Action = "cleanup"
	ActionRebootCheck    Action = "reboot-check"
	ActionReboot         Action = "reboot"
	ActionServiceRestart Action = "service-restart"
	ActionEnd            Action = "end"
)

// Result is the outcome tag of an event.
type Result = string

const (
	ResultOK          Result = "ok"
	ResultSuccess     Result = "success"
	ResultFailure     Result = "failure"
	ResultRequired    Result = "required"
	ResultNotRequired Result = "not-required"
	ResultScheduled   Result = "scheduled"
	ResultSkipped     Result = "skipped"
	ResultMissing     Result = "missing"
)

const (
	// DefaultService marks events that are not about a particular service.
	DefaultService = "update-script"
	// DefaultEventType is the constant identifier of this tool in the event
	// stream.
	DefaultEventType = "system-update"
	// DefaultIdentifier is the tag events are written to the journal under.
	DefaultIdentifier = "autopatch"
)

const (
	// SentinelPath is created by the package manager's hooks when an installed
	// update needs a reboot to take effect.
	SentinelPath = "/var/run/reboot-required"
	// SentinelPackagesPath lists the packages that asked for the reboot.
	SentinelPackagesPath = SentinelPath + ".pkgs"
)

// DefaultServices is the ordered list of services restarted when a reboot is
// pending but automatic reboots are disabled.
func DefaultServices() []string {
	return []string{"nginx", "apache2", "ssh", "haproxy", "named"}
}
