// Package config loads the gateway's YAML configuration. Values of the form
// ${VAR} are expanded from the environment before parsing.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidahmann/complybus/internal/logging"
)

type Config struct {
	ListenAddr  string            `yaml:"listen_addr"`
	Log         logging.Config    `yaml:"log"`
	Bus         BusConfig         `yaml:"bus"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Risk        RiskConfig        `yaml:"risk"`
	Audit       AuditConfig       `yaml:"audit"`
	Remediation RemediationConfig `yaml:"remediation"`
	Scenarios   ScenariosConfig   `yaml:"scenarios"`
	Auth        AuthConfig        `yaml:"auth"`
}

type BusConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type MonitoringConfig struct {
	WindowSeconds int      `yaml:"window_seconds"`
	Threshold     int      `yaml:"threshold"`
	WatchedTypes  []string `yaml:"watched_types"`
}

func (m MonitoringConfig) Window() time.Duration {
	return time.Duration(m.WindowSeconds) * time.Second
}

type RiskConfig struct {
	// MaxHistory caps trend observations per entity; 0 keeps all.
	MaxHistory int `yaml:"max_history"`
}

type AuditConfig struct {
	InputSummaryMaxLen int `yaml:"input_summary_max_len"`
}

type RemediationConfig struct {
	// PlaybookPath is optional; the built-in severity ladder is used when empty.
	PlaybookPath string `yaml:"playbook_path"`
}

type ScenariosConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	Token string `yaml:"token"`
}

// Default returns the configuration used for any key a file leaves out.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Log:        logging.DefaultConfig(),
		Bus:        BusConfig{MaxDepth: 8},
		Monitoring: MonitoringConfig{
			WindowSeconds: 3600,
			Threshold:     5,
			WatchedTypes: []string{
				"compliance.violation",
				"compliance.report_request",
				"compliance.check_completed",
				"compliance.remediation_applied",
				"compliance.alert",
			},
		},
		Audit: AuditConfig{InputSummaryMaxLen: 256},
	}
}

func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse expands environment references in raw and decodes it over Default.
func Parse(raw []byte) (Config, error) {
	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Bus.MaxDepth < 1 {
		return fmt.Errorf("bus.max_depth must be at least 1")
	}
	if c.Monitoring.WindowSeconds < 1 {
		return fmt.Errorf("monitoring.window_seconds must be at least 1")
	}
	if c.Monitoring.Threshold < 1 {
		return fmt.Errorf("monitoring.threshold must be at least 1")
	}
	if len(c.Monitoring.WatchedTypes) == 0 {
		return fmt.Errorf("monitoring.watched_types must not be empty")
	}
	if slices.Contains(c.Monitoring.WatchedTypes, "") {
		return fmt.Errorf("monitoring.watched_types must not contain empty entries")
	}
	if c.Risk.MaxHistory < 0 {
		return fmt.Errorf("risk.max_history must not be negative")
	}
	if c.Audit.InputSummaryMaxLen < 4 {
		return fmt.Errorf("audit.input_summary_max_len must be at least 4")
	}
	return nil
}
