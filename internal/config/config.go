// Package config loads the daemon's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/signal-stabilizer/stabilizer"
)

// Default values applied by Parse to fields left empty.
const (
	DefaultPoll        = "100ms"
	DefaultHeartbeat   = "15m"
	DefaultBroker      = "tcp://localhost:1883"
	DefaultTopicPrefix = "signals"
	DefaultClientID    = "signal-stabilizer"
	DefaultHTTP        = ":8080"
	DefaultChip        = "gpiochip0"
)

// Config is the top-level daemon configuration.
type Config struct {
	// Sampling interval, Go duration format.
	Poll         string        `yaml:"poll"`
	PollDuration time.Duration `yaml:"-"`

	// Heartbeat interval, "0" disables heartbeats.
	Heartbeat         string        `yaml:"heartbeat"`
	HeartbeatDuration time.Duration `yaml:"-"`

	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`

	// HTTP status address, empty disables the server.
	HTTP *string `yaml:"http"`

	Chip string    `yaml:"chip"`
	Log  LogConfig `yaml:"log"`

	// Defaults applied to every signal that does not override them.
	Defaults Thresholds     `yaml:"defaults"`
	Signals  []SignalConfig `yaml:"signals"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Thresholds are the stabilization settings shared by defaults and signals.
// Nil or empty fields are unset and fall back to the next layer.
type Thresholds struct {
	CountThreshold    *int                   `yaml:"count_threshold"`
	DurationThreshold string                 `yaml:"duration_threshold"`
	BufferMode        *stabilizer.BufferMode `yaml:"buffer_mode"`

	CountThresholdTrueToFalse    *int   `yaml:"count_threshold_true_to_false"`
	CountThresholdFalseToTrue    *int   `yaml:"count_threshold_false_to_true"`
	DurationThresholdTrueToFalse string `yaml:"duration_threshold_true_to_false"`
	DurationThresholdFalseToTrue string `yaml:"duration_threshold_false_to_true"`
}

// SignalConfig describes one GPIO-backed signal.
type SignalConfig struct {
	Name string `yaml:"name"`
	// BCM line offset on the configured chip.
	Pin int `yaml:"pin"`
	// Invert treats a raw active line as false.
	Invert bool `yaml:"invert"`

	Thresholds `yaml:",inline"`
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Poll == "" {
		c.Poll = DefaultPoll
	}
	if c.Heartbeat == "" {
		c.Heartbeat = DefaultHeartbeat
	}
	if c.Broker == "" {
		c.Broker = DefaultBroker
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.HTTP == nil {
		addr := DefaultHTTP
		c.HTTP = &addr
	}
	if c.Chip == "" {
		c.Chip = DefaultChip
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// HTTPAddr returns the status server address, empty when disabled.
func (c *Config) HTTPAddr() string {
	if c.HTTP == nil {
		return ""
	}
	return *c.HTTP
}

// Validate parses durations and checks every signal can be built.
func (c *Config) Validate() error {
	var err error
	if c.PollDuration, err = time.ParseDuration(c.Poll); err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if c.PollDuration <= 0 {
		return fmt.Errorf("poll must be positive, got %v", c.PollDuration)
	}
	if c.HeartbeatDuration, err = time.ParseDuration(c.Heartbeat); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	if c.HeartbeatDuration < 0 {
		return fmt.Errorf("heartbeat cannot be negative, got %v", c.HeartbeatDuration)
	}

	if len(c.Signals) == 0 {
		return errors.New("at least one signal is required")
	}
	pins := make(map[int]string, len(c.Signals))
	for i, s := range c.Signals {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("signals[%d]: name is required", i)
		}
		if s.Pin < 0 {
			return fmt.Errorf("signal %q: pin cannot be negative, got %d", s.Name, s.Pin)
		}
		if other, ok := pins[s.Pin]; ok {
			return fmt.Errorf("signal %q: pin %d already used by %q", s.Name, s.Pin, other)
		}
		pins[s.Pin] = s.Name
	}

	if _, err := c.BuildRegistry(stabilizer.SystemClock{}); err != nil {
		return err
	}
	return nil
}

// BuildRegistry creates a registry from the defaults section and adds every
// configured signal to it, in file order.
func (c *Config) BuildRegistry(clock stabilizer.Clock) (*stabilizer.Registry, error) {
	defaults, err := c.Defaults.Options()
	if err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	reg, err := stabilizer.NewRegistry(append(defaults, stabilizer.WithClock(clock))...)
	if err != nil {
		return nil, err
	}
	for _, s := range c.Signals {
		opts, err := s.Options()
		if err != nil {
			return nil, fmt.Errorf("signal %q: %w", s.Name, err)
		}
		if _, err := reg.Add(s.Name, opts...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Options converts the set fields into stabilizer options.
func (t Thresholds) Options() ([]stabilizer.Option, error) {
	var opts []stabilizer.Option
	if t.CountThreshold != nil {
		opts = append(opts, stabilizer.WithCountThreshold(*t.CountThreshold))
	}
	if t.BufferMode != nil {
		opts = append(opts, stabilizer.WithBufferMode(*t.BufferMode))
	}
	if t.CountThresholdTrueToFalse != nil {
		opts = append(opts, stabilizer.WithDirectionalCountThreshold(stabilizer.TrueToFalse, *t.CountThresholdTrueToFalse))
	}
	if t.CountThresholdFalseToTrue != nil {
		opts = append(opts, stabilizer.WithDirectionalCountThreshold(stabilizer.FalseToTrue, *t.CountThresholdFalseToTrue))
	}

	durations := []struct {
		key   string
		value string
		apply func(time.Duration) stabilizer.Option
	}{
		{"duration_threshold", t.DurationThreshold, stabilizer.WithDurationThreshold},
		{"duration_threshold_true_to_false", t.DurationThresholdTrueToFalse, func(d time.Duration) stabilizer.Option {
			return stabilizer.WithDirectionalDurationThreshold(stabilizer.TrueToFalse, d)
		}},
		{"duration_threshold_false_to_true", t.DurationThresholdFalseToTrue, func(d time.Duration) stabilizer.Option {
			return stabilizer.WithDirectionalDurationThreshold(stabilizer.FalseToTrue, d)
		}},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		opts = append(opts, d.apply(parsed))
	}
	return opts, nil
}
