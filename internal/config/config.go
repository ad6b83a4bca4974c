// Package config loads the daemon's single TOML configuration file,
// applying the same field-default pattern the teacher's JSON config
// manager used (defaults filled in where a loaded string is empty;
// access-probability is preset before decode so an explicit 0 survives),
// adapted to a single file rather than a layered user/project pair.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the daemon's full configuration, decoded from TOML.
type Config struct {
	// ListenAddress is the address the SSH listener binds, e.g. "0.0.0.0:22".
	ListenAddress string `toml:"listen-address"`
	// AccessProbability is the chance [0,1] that a never-seen-before
	// password is accepted; once accepted it is remembered for the rest
	// of the process lifetime.
	AccessProbability float64 `toml:"access-probability"`
	// AuditOutputFile is the path audit log events are appended to.
	AuditOutputFile string `toml:"audit-output-file"`
	// ServerID is the SSH protocol version banner sent to clients.
	ServerID string `toml:"server-id"`
}

const (
	defaultListenAddress     = "0.0.0.0:22"
	defaultAccessProbability = 0.2
	defaultAuditOutputFile   = "/var/log/pisshoff/audit.log"
	defaultServerID          = "SSH-2.0-OpenSSH_9.3"
)

// Load reads and decodes the TOML file at path, filling in any string
// field left empty with the honeypot's documented defaults.
// access-probability takes its default only when the key is absent, so an
// explicit 0 is kept.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Config{AccessProbability: defaultAccessProbability}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = defaultListenAddress
	}
	if c.AuditOutputFile == "" {
		c.AuditOutputFile = defaultAuditOutputFile
	}
	if c.ServerID == "" {
		c.ServerID = defaultServerID
	}
}
