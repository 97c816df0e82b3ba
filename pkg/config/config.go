package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/amnes-io/amnes/pkg/log"
)

// LogConfig configures structured logging for a daemon.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Logger builds the process root logger from this section.
func (c LogConfig) Logger() zerolog.Logger {
	level := log.Level(c.Level)
	if c.Level == "" {
		level = log.InfoLevel
	}
	return log.New(log.Config{Level: level, JSONOutput: c.JSON})
}

// StorageConfig selects the controller's persistence backend and the
// directory its database lives in.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// ControllerConfig is the controller daemon configuration. The advertise
// addresses are what remote workers dial back; they must be routable from
// the worker nodes, unlike the bind addresses, which may be wildcards.
type ControllerConfig struct {
	ListenAddr            string        `yaml:"listen_addr"`
	AdvertiseAddr         string        `yaml:"advertise_addr"`
	TransferAddr          string        `yaml:"transfer_addr"`
	TransferAdvertiseAddr string        `yaml:"transfer_advertise_addr"`
	MetricsAddr           string        `yaml:"metrics_addr"`
	Storage               StorageConfig `yaml:"storage"`
	Log                   LogConfig     `yaml:"log"`
}

// ControlAddr returns the address workers use to reach the control API,
// preferring the advertise address over the bind address.
func (c ControllerConfig) ControlAddr() string {
	if c.AdvertiseAddr != "" {
		return c.AdvertiseAddr
	}
	return c.ListenAddr
}

// DefaultControllerConfig returns the controller defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		ListenAddr:            "0.0.0.0:7700",
		AdvertiseAddr:         "127.0.0.1:7700",
		TransferAddr:          "0.0.0.0:7701",
		TransferAdvertiseAddr: "127.0.0.1:7701",
		MetricsAddr:           "0.0.0.0:7702",
		Storage: StorageConfig{
			Backend: "bolt",
			DataDir: "/var/lib/amnes",
		},
		Log: LogConfig{Level: "info"},
	}
}

// WorkerConfig is the worker daemon configuration.
type WorkerConfig struct {
	ListenAddr string    `yaml:"listen_addr"`
	Log        LogConfig `yaml:"log"`
}

// DefaultWorkerConfig returns the worker defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ListenAddr: "0.0.0.0:7710",
		Log:        LogConfig{Level: "info"},
	}
}

// LoadControllerConfig reads a controller configuration file, filling in
// defaults for absent fields. A missing path returns the defaults.
func LoadControllerConfig(path string) (ControllerConfig, error) {
	cfg := DefaultControllerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWorkerConfig reads a worker configuration file, filling in defaults
// for absent fields.
func LoadWorkerConfig(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
