package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no configuration file is named.
const DefaultPath = "/etc/autopatch/autopatch.toml"

// Version is the build's version, stamped onto every event. Release builds
// set it with -ldflags "-X github.com/autopatch/autopatch/pkg/config.Version=...".
var Version = "1.4.0"

// Config is everything a run needs to know. It is built once at start up
// and handed to the workflow.
type Config struct {
	AutoReboot    bool     `toml:"auto_reboot" yaml:"auto_reboot"`
	ScriptVersion string   `toml:"script_version" yaml:"script_version"`
	Services      []string `toml:"services" yaml:"services"`

	SentinelPath       string `toml:"sentinel_path" yaml:"sentinel_path"`
	RebootDelayMinutes int    `toml:"reboot_delay_minutes" yaml:"reboot_delay_minutes"`
	RebootMessage      string `toml:"reboot_message" yaml:"reboot_message"`
	ShutdownBin        string `toml:"shutdown_bin" yaml:"shutdown_bin"`

	EventType  string `toml:"event_type" yaml:"event_type"`
	Identifier string `toml:"identifier" yaml:"identifier"`
	// Server overrides the hostname reported in events.
	Server string `toml:"server" yaml:"server"`
	DryRun bool   `toml:"dry_run" yaml:"dry_run"`

	Apt     Apt     `toml:"apt" yaml:"apt"`
	Systemd Systemd `toml:"systemd" yaml:"systemd"`
	Events  Events  `toml:"events" yaml:"events"`
	NATS    NATS    `toml:"nats" yaml:"nats"`
	Metrics Metrics `toml:"metrics" yaml:"metrics"`
}

type Apt struct {
	Bin            string `toml:"bin" yaml:"bin"`
	UpgradeCommand string `toml:"upgrade_command" yaml:"upgrade_command"`
}

type Systemd struct {
	// Socket, when set, is a systemd private socket to dial instead of the
	// system bus.
	Socket string `toml:"socket" yaml:"socket"`
}

// Events controls where events go besides the journal.
type Events struct {
	// File receives a copy of every event, one JSON object per line.
	File string `toml:"file" yaml:"file"`
	// Stdout copies every event to standard output.
	Stdout bool `toml:"stdout" yaml:"stdout"`
}

type NATS struct {
	URL           string `toml:"url" yaml:"url"`
	SubjectPrefix string `toml:"subject_prefix" yaml:"subject_prefix"`
}

type Metrics struct {
	// Textfile is the node_exporter textfile collector file to write.
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		AutoReboot:         true,
		ScriptVersion:      Version,
		Services:           marker.DefaultServices(),
		SentinelPath:       marker.SentinelPath,
		RebootDelayMinutes: 1,
		ShutdownBin:        "shutdown",
		EventType:          marker.DefaultEventType,
		Identifier:         marker.DefaultIdentifier,
		Apt: Apt{
			Bin:            "apt-get",
			UpgradeCommand: "upgrade",
		},
	}
}

// Load reads the configuration file at path over the defaults. A missing file
// yields the defaults. Files ending in .yaml or .yml are YAML, anything else
// is TOML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = toml.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields a run cannot do without.
func (c *Config) Validate() error {
	if _, err := semver.NewVersion(c.ScriptVersion); err != nil {
		return errors.Wrapf(err, "script_version %q", c.ScriptVersion)
	}
	if c.SentinelPath == "" {
		return errors.New("sentinel_path must be set")
	}
	// shutdown -r +0 reboots immediately, before the run can finish.
	if c.RebootDelayMinutes < 1 {
		return errors.Errorf("reboot_delay_minutes must be at least 1, got %d", c.RebootDelayMinutes)
	}
	seen := map[string]bool{}
	for _, svc := range c.Services {
		if strings.TrimSpace(svc) == "" {
			return errors.New("services must not contain empty names")
		}
		if seen[svc] {
			return errors.Errorf("service %q listed twice", svc)
		}
		seen[svc] = true
	}
	return nil
}

// RebootDelay is the deferred reboot's delay.
func (c *Config) RebootDelay() time.Duration {
	return time.Duration(c.RebootDelayMinutes) * time.Minute
}

// RebootWarning is the message broadcast to logged in users when a reboot is
// scheduled. Unless reboot_message is set it names the configured delay.
func (c *Config) RebootWarning() string {
	if c.RebootMessage != "" {
		return c.RebootMessage
	}
	unit := "minutes"
	if c.RebootDelayMinutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("System will reboot in %d %s to complete updates", c.RebootDelayMinutes, unit)
}
