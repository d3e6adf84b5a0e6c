// Package config loads daemon settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/mqtt"
)

// Config holds every setting the daemon reads at startup.
type Config struct {
	Backend     string        `yaml:"backend"`
	Chip        string        `yaml:"chip"`
	Pin         int           `yaml:"pin"`
	Poll        time.Duration `yaml:"poll"`
	Debounce    time.Duration `yaml:"debounce"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	HTTP        string        `yaml:"http"`
	LogLevel    string        `yaml:"log_level"`
	BufferSize  int           `yaml:"buffer_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend:     gpio.BackendCdev,
		Chip:        gpio.DefaultChip,
		Pin:         gpio.DefaultPin,
		Poll:        2 * time.Millisecond,
		Debounce:    10 * time.Millisecond,
		Broker:      "tcp://192.168.1.200:1883",
		ClientID:    "button-sensor",
		TopicPrefix: mqtt.DefaultTopicPrefix,
		Heartbeat:   15 * time.Minute,
		HTTP:        ":80",
		LogLevel:    "info",
		BufferSize:  mqtt.DefaultBufferSize,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case gpio.BackendCdev, gpio.BackendRPIO:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown %q (want %s or %s)", c.Backend, gpio.BackendCdev, gpio.BackendRPIO))
	}
	if c.Pin < 0 {
		errs = append(errs, fmt.Errorf("pin: must not be negative, got %d", c.Pin))
	}
	if c.Poll <= 0 {
		errs = append(errs, fmt.Errorf("poll: must be positive, got %v", c.Poll))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce: must not be negative, got %v", c.Debounce))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat: must not be negative, got %v", c.Heartbeat))
	}
	if c.Broker == "" {
		errs = append(errs, errors.New("broker: must be set"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// DebounceMs returns the debounce interval in whole milliseconds.
func (c Config) DebounceMs() uint64 {
	if c.Debounce <= 0 {
		return 0
	}
	return uint64(c.Debounce.Milliseconds())
}
