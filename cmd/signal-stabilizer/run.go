package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/signal-stabilizer/internal/config"
	"github.com/sweeney/signal-stabilizer/internal/gpio"
	"github.com/sweeney/signal-stabilizer/internal/logic"
	"github.com/sweeney/signal-stabilizer/internal/mqtt"
	"github.com/sweeney/signal-stabilizer/internal/status"
	"github.com/sweeney/signal-stabilizer/internal/web"
	"github.com/sweeney/signal-stabilizer/stabilizer"
)

func run(cfg *config.Config, log *slog.Logger) error {
	start := time.Now()

	// Sample times drive the stabilizers, not the wall clock.
	clock := stabilizer.NewManualClock(start)
	registry, err := cfg.BuildRegistry(clock)
	if err != nil {
		return err
	}

	gpioReader, err := gpio.NewRealReader(cfg.Chip, gpioLines(cfg))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Topics:   mqtt.NewTopics(cfg.TopicPrefix),
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(start, status.Config{
		PollMs:      cfg.PollDuration.Milliseconds(),
		HeartbeatMs: cfg.HeartbeatDuration.Milliseconds(),
		Broker:      cfg.Broker,
		TopicPrefix: cfg.TopicPrefix,
		HTTPAddr:    cfg.HTTPAddr(),
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", "error", err)
	} else {
		log.Info("published startup event")
	}

	if addr := cfg.HTTPAddr(); addr != "" {
		srv := web.New(addr, tracker, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", addr)
	}

	log.Info("started",
		"signals", registry.Names(),
		"poll", cfg.PollDuration,
		"heartbeat", cfg.HeartbeatDuration,
		"broker", cfg.Broker,
		"topic_prefix", cfg.TopicPrefix)

	ticker := time.NewTicker(cfg.PollDuration)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	detector := logic.NewDetector(registry, clock, start)
	return runLoop(gpioReader, publisher, publisher, tracker, detector, cfg.HeartbeatDuration, time.Now, ticker.C, sigCh, log)
}

// runLoop samples on every tick until a signal arrives. Read and publish
// failures are logged and never end the loop. tracker and mqttStatus may be nil.
func runLoop(gpioReader gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, detector *logic.Detector, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *slog.Logger) error {
	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			log.Info("shutting down", "signal", signalName)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", "error", err)
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			values, err := gpioReader.Read()
			if err != nil {
				log.Warn("gpio read error", "error", err)
				continue
			}

			wasBaselined := detector.IsBaselined()
			events := detector.Process(logic.Input{Values: values, Time: t})
			if !wasBaselined && detector.IsBaselined() {
				log.Info("baseline established", "states", detector.CurrentState())
			}

			for _, event := range events {
				log.Info("event", "event", event.Name(), "states", event.States)
				if err := publisher.Publish(event); err != nil {
					log.Warn("publish error", "event", event.Name(), "error", err)
				}
			}

			if !detector.IsBaselined() {
				continue
			}

			if hbData := detector.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Info("heartbeat", "uptime", hbData.Uptime, "counts", hbData.Counts)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(detector.Signals(), true, hbData.Counts)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn("heartbeat publish error", "error", err)
				}
			}

			if tracker != nil {
				tracker.Update(detector.Signals(), detector.IsBaselined(), detector.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}
