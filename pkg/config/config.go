package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/session"
	"github.com/crosstalk-dev/crosstalk/pkg/telemetry"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultPort = 8083

// Config is the top-level server configuration.
type Config struct {
	// TCP port the HTTP/websocket server listens on.
	Port int `yaml:"port"`
	// Starting from which level to log stuff.
	LogLevel string `yaml:"log"`
	// Call lifecycle timeouts, in seconds.
	Calls Calls `yaml:"calls"`
	// Tracing configuration.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Calls holds the wire-visible call timeouts, in seconds. Zero values fall
// back to the defaults.
type Calls struct {
	NoAnswerTimeout   int `yaml:"noAnswerTimeout"`
	OfferStallTimeout int `yaml:"offerStallTimeout"`
	CandidateTTL      int `yaml:"candidateTtl"`
	SweepInterval     int `yaml:"sweepInterval"`
}

// SessionConfig converts the configured timeouts into the session manager's
// configuration, applying defaults for unset values.
func (c Calls) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.NoAnswerTimeout > 0 {
		cfg.NoAnswerTimeout = time.Duration(c.NoAnswerTimeout) * time.Second
	}
	if c.OfferStallTimeout > 0 {
		cfg.OfferStallTimeout = time.Duration(c.OfferStallTimeout) * time.Second
	}
	if c.CandidateTTL > 0 {
		cfg.CandidateTTL = time.Duration(c.CandidateTTL) * time.Second
	}
	if c.SweepInterval > 0 {
		cfg.SweepInterval = time.Duration(c.SweepInterval) * time.Second
	}
	return cfg
}

// ErrNoConfigEnvVar is returned when the CONFIG environment variable is not set.
var ErrNoConfigEnvVar = errors.New("environment variable not set or invalid")

// LoadConfig tries the `CONFIG` environment variable first (inline YAML),
// then the provided file path. A missing file yields the defaults, so the
// server starts without any configuration at all. The `PORT` environment
// variable overrides the configured port in every case.
func LoadConfig(path string) (*Config, error) {
	config, err := LoadConfigFromEnv()
	if err != nil {
		if !errors.Is(err, ErrNoConfigEnvVar) {
			return nil, err
		}

		config, err = loadConfigFromPath(path)
		if err != nil {
			return nil, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil || parsed <= 0 || parsed > 65535 {
			return nil, fmt.Errorf("invalid PORT value %q", port)
		}
		config.Port = parsed
	}

	if config.Port == 0 {
		config.Port = defaultPort
	}

	return config, nil
}

// LoadConfigFromEnv tries to load the config from the `CONFIG` variable.
func LoadConfigFromEnv() (*Config, error) {
	configEnv := os.Getenv("CONFIG")
	if configEnv == "" {
		return nil, ErrNoConfigEnvVar
	}

	return LoadConfigFromString(configEnv)
}

func loadConfigFromPath(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", path).Info("no config file, using defaults")
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	logrus.WithField("path", path).Info("loading config")
	return LoadConfigFromString(string(file))
}

// LoadConfigFromString parses a config from the provided YAML string.
func LoadConfigFromString(configString string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(configString), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if config.Port < 0 || config.Port > 65535 {
		return nil, errors.New("invalid port value")
	}

	return &config, nil
}
