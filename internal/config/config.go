package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chordring/internal/logger"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// RingConfig holds the Chord ring parameters: identifier bit-width,
// successor-list size, and the cadences of the three maintenance loops.
type RingConfig struct {
	IDBits                int           `yaml:"idBits"`
	SuccessorListSize     int           `yaml:"successorListSize"`
	StabilizeInterval     time.Duration `yaml:"stabilizeInterval"`
	FixFingersInterval    time.Duration `yaml:"fixFingersInterval"`
	SuccessorListInterval time.Duration `yaml:"successorListInterval"`
	FailureTimeout        time.Duration `yaml:"failureTimeout"`
}

// BootstrapConfig selects how a node joins the ring. Mode "init" creates a
// brand new ring; mode "join" contacts a helper peer resolved from the
// static ID->port mapping file.
type BootstrapConfig struct {
	Mode        string `yaml:"mode"`
	PortMapPath string `yaml:"portMapPath"`
	HelperID    string `yaml:"helperId"`
}

type NodeConfig struct {
	ID   string `yaml:"id"`
	Mode string `yaml:"mode"`
	Bind string `yaml:"bind"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Ring      RingConfig      `yaml:"ring"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Node      NodeConfig      `yaml:"node"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig loads the configuration from a YAML file at the given path.
//
// This function performs only syntactic parsing of the YAML file. To
// validate the configuration structure, call cfg.ValidateConfig() after
// loading.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Supported overrides:
//
//	NODE_ID                 -> cfg.Node.ID
//	NODE_MODE               -> cfg.Node.Mode
//	NODE_BIND               -> cfg.Node.Bind
//	NODE_HOST               -> cfg.Node.Host
//	NODE_PORT               -> cfg.Node.Port
//	BOOTSTRAP_MODE          -> cfg.Bootstrap.Mode
//	BOOTSTRAP_PORTMAP_PATH  -> cfg.Bootstrap.PortMapPath
//	BOOTSTRAP_HELPER_ID     -> cfg.Bootstrap.HelperID
//	TRACE_ENABLED           -> cfg.Telemetry.Tracing.Enabled
//	TRACE_EXPORTER          -> cfg.Telemetry.Tracing.Exporter
//	TRACE_ENDPOINT          -> cfg.Telemetry.Tracing.Endpoint
//	LOGGER_ENABLED          -> cfg.Logger.Active
//	LOGGER_LEVEL            -> cfg.Logger.Level
//	LOGGER_ENCODING         -> cfg.Logger.Encoding
//	LOGGER_MODE             -> cfg.Logger.Mode
//	LOGGER_FILE_PATH        -> cfg.Logger.File.Path
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.Node.ID = v
	}
	if v := os.Getenv("NODE_MODE"); v != "" {
		cfg.Node.Mode = v
	}
	if v := os.Getenv("NODE_BIND"); v != "" {
		cfg.Node.Bind = v
	} else if cfg.Node.Bind == "" {
		cfg.Node.Bind = "0.0.0.0"
	}
	if v := os.Getenv("NODE_HOST"); v != "" {
		cfg.Node.Host = v
	}
	if v := os.Getenv("NODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}

	if v := os.Getenv("BOOTSTRAP_MODE"); v != "" {
		cfg.Bootstrap.Mode = v
	}
	if v := os.Getenv("BOOTSTRAP_PORTMAP_PATH"); v != "" {
		cfg.Bootstrap.PortMapPath = v
	}
	if v := os.Getenv("BOOTSTRAP_HELPER_ID"); v != "" {
		cfg.Bootstrap.HelperID = v
	}

	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		cfg.Telemetry.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}

	if v := os.Getenv("LOGGER_ENABLED"); v != "" {
		cfg.Logger.Active = parseBool(v)
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// ValidateConfig performs structural validation of the loaded
// configuration. All detected issues are accumulated and returned as a
// single error; nil means the configuration is structurally sound.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.Ring.IDBits <= 0 || cfg.Ring.IDBits > 62 {
		errs = append(errs, "ring.idBits must be in (0,62]")
	}
	if cfg.Ring.SuccessorListSize <= 0 {
		errs = append(errs, "ring.successorListSize must be > 0")
	}
	if cfg.Ring.StabilizeInterval <= 0 {
		errs = append(errs, "ring.stabilizeInterval must be > 0")
	}
	if cfg.Ring.FixFingersInterval <= 0 {
		errs = append(errs, "ring.fixFingersInterval must be > 0")
	}
	if cfg.Ring.SuccessorListInterval <= 0 {
		errs = append(errs, "ring.successorListInterval must be > 0")
	}
	if cfg.Ring.FailureTimeout <= 0 {
		errs = append(errs, "ring.failureTimeout must be > 0")
	}

	switch cfg.Bootstrap.Mode {
	case "init":
	case "join":
		if cfg.Bootstrap.PortMapPath == "" {
			errs = append(errs, "bootstrap.portMapPath is required when mode=join")
		}
		if cfg.Bootstrap.HelperID == "" {
			errs = append(errs, "bootstrap.helperId is required when mode=join")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid bootstrap.mode: %s (must be init or join)", cfg.Bootstrap.Mode))
	}

	switch cfg.Node.Mode {
	case "public", "private":
	default:
		errs = append(errs, fmt.Sprintf("invalid node.mode: %s", cfg.Node.Mode))
	}
	if cfg.Node.Host != "" {
		if ip := net.ParseIP(cfg.Node.Host); ip == nil {
			if _, _, err := net.SplitHostPort(cfg.Node.Host + ":0"); err != nil {
				errs = append(errs, fmt.Sprintf("invalid node.host: %s", cfg.Node.Host))
			}
		}
	}
	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful for
// verifying that the configuration file was parsed as expected.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.file.path", cfg.Logger.File.Path),

		logger.F("ring.idBits", cfg.Ring.IDBits),
		logger.F("ring.successorListSize", cfg.Ring.SuccessorListSize),
		logger.F("ring.stabilizeInterval", cfg.Ring.StabilizeInterval.String()),
		logger.F("ring.fixFingersInterval", cfg.Ring.FixFingersInterval.String()),
		logger.F("ring.successorListInterval", cfg.Ring.SuccessorListInterval.String()),
		logger.F("ring.failureTimeout", cfg.Ring.FailureTimeout.String()),

		logger.F("bootstrap.mode", cfg.Bootstrap.Mode),
		logger.F("bootstrap.portMapPath", cfg.Bootstrap.PortMapPath),
		logger.F("bootstrap.helperId", cfg.Bootstrap.HelperID),

		logger.F("node.id", cfg.Node.ID),
		logger.F("node.mode", cfg.Node.Mode),
		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.host", cfg.Node.Host),
		logger.F("node.port", cfg.Node.Port),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
