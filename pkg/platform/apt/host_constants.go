package apt

type aptCommand = string

const (
	CommandUpdate      aptCommand = "update"
	CommandUpgrade     aptCommand = "upgrade"
	CommandDistUpgrade aptCommand = "dist-upgrade"
	CommandAutoremove  aptCommand = "autoremove"
	CommandAutoclean   aptCommand = "autoclean"
)

const (
	// DefaultBin is the apt front end used when none is configured.
	DefaultBin = "apt-get"

	// noninteractive keeps debconf from prompting during upgrades.
	noninteractive = "DEBIAN_FRONTEND=noninteractive"
)

// keepLocalConfig makes dpkg keep an administrator's modified configuration
// file whenever a package ships a new default, and take the default for
// files that were never modified.
var keepLocalConfig = []string{
	"-o", "Dpkg::Options::=--force-confdef",
	"-o", "Dpkg::Options::=--force-confold",
}
