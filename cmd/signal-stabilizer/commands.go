package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sweeney/signal-stabilizer/internal/config"
	"github.com/sweeney/signal-stabilizer/internal/gpio"
	"github.com/sweeney/signal-stabilizer/stabilizer"
)

func newPrintStateCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print-state",
		Short: "Read every configured line once and print its logical state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			reader, err := gpio.NewRealReader(cfg.Chip, gpioLines(cfg))
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer reader.Close()

			values, err := reader.Read()
			if err != nil {
				return fmt.Errorf("read gpio: %w", err)
			}
			printState(cmd, cfg, values)
			return nil
		},
	}
}

func printState(cmd *cobra.Command, cfg *config.Config, values map[string]bool) {
	out := cmd.OutOrStdout()
	for _, s := range cfg.Signals {
		fmt.Fprintf(out, "%s: %s\n", s.Name, stateString(values[s.Name]))
	}
}

func newCheckConfigCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print resolved thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			registry, err := cfg.BuildRegistry(stabilizer.SystemClock{})
			if err != nil {
				return err
			}
			return printThresholds(cmd, cfg, registry)
		},
	}
}

func printThresholds(cmd *cobra.Command, cfg *config.Config, registry *stabilizer.Registry) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config OK: %d signals, poll %s, heartbeat %s, broker %s\n\n",
		registry.Len(), cfg.PollDuration, cfg.HeartbeatDuration, cfg.Broker)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPIN\tINVERT\tMODE\tCOUNT F>T\tCOUNT T>F\tDURATION F>T\tDURATION T>F")
	for _, sc := range cfg.Signals {
		s, ok := registry.Get(sc.Name)
		if !ok {
			return fmt.Errorf("signal %q missing from registry", sc.Name)
		}
		fmt.Fprintf(tw, "%s\t%d\t%t\t%s\t%d\t%d\t%s\t%s\n",
			s.Name(), sc.Pin, sc.Invert, s.BufferMode(),
			s.CountThresholdFor(stabilizer.FalseToTrue),
			s.CountThresholdFor(stabilizer.TrueToFalse),
			s.DurationThresholdFor(stabilizer.FalseToTrue),
			s.DurationThresholdFor(stabilizer.TrueToFalse))
	}
	return tw.Flush()
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
