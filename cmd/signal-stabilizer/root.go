package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/signal-stabilizer/internal/config"
	"github.com/sweeney/signal-stabilizer/internal/gpio"
	"github.com/sweeney/signal-stabilizer/internal/logging"
)

const defaultConfigPath = "/etc/signal-stabilizer.yaml"

// cliOptions holds flag values shared by every command.
type cliOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	poll      time.Duration
	heartbeat time.Duration
	broker    string
	http      string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&cliOptions{})
}

func buildRootCmd(o *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal-stabilizer",
		Short: "Debounce GPIO inputs and publish stable changes to MQTT",
		Long: `signal-stabilizer polls the configured GPIO lines, runs every line through a
count and duration threshold stabilizer, and publishes each stabilized
transition to MQTT. A status page is served over HTTP.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := o.load(cmd)
			if err != nil {
				return err
			}
			return run(cfg, log)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&o.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	f := cmd.Flags()
	f.DurationVar(&o.poll, "poll", 0, "GPIO polling interval (overrides config)")
	f.DurationVar(&o.heartbeat, "heartbeat", 0, "Heartbeat interval, 0 disables (overrides config)")
	f.StringVar(&o.broker, "broker", "", "MQTT broker address (overrides config)")
	f.StringVar(&o.http, "http", "", "HTTP status address, empty disables (overrides config)")

	cmd.AddCommand(newPrintStateCmd(o), newCheckConfigCmd(o))
	return cmd
}

// load reads the config file, applies flags that were set explicitly and
// builds the logger.
func (o *cliOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := o.applyOverrides(cmd, cfg); err != nil {
		return nil, nil, err
	}
	log, err := o.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func (o *cliOptions) applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := false
	if flags.Changed("poll") {
		cfg.Poll = o.poll.String()
		changed = true
	}
	if flags.Changed("heartbeat") {
		cfg.Heartbeat = o.heartbeat.String()
		changed = true
	}
	if flags.Changed("broker") {
		cfg.Broker = o.broker
	}
	if flags.Changed("http") {
		addr := o.http
		cfg.HTTP = &addr
	}
	if !changed {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}

func (o *cliOptions) logger(cfg *config.Config) (*slog.Logger, error) {
	levelName := cfg.Log.Level
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	format := cfg.Log.Format
	if o.logFormat != "" {
		format = o.logFormat
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format)
}

// gpioLines maps configured signals to GPIO lines.
func gpioLines(cfg *config.Config) []gpio.Line {
	lines := make([]gpio.Line, 0, len(cfg.Signals))
	for _, s := range cfg.Signals {
		lines = append(lines, gpio.Line{Name: s.Name, Pin: s.Pin, Invert: s.Invert})
	}
	return lines
}
