// Command button-sensor debounces a single GPIO input and publishes its edges to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/debounce"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/metrics"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

func main() {
	cfg, printState, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the config from defaults, then the --config file, then
// any flags given explicitly on the command line.
func parseFlags(args []string) (config.Config, bool, error) {
	def := config.Default()
	fs := flag.NewFlagSet("button-sensor", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file")
	backend := fs.String("backend", def.Backend, `GPIO backend ("cdev" or "rpio")`)
	chip := fs.String("chip", def.Chip, "GPIO character device (cdev backend)")
	pin := fs.Int("pin", def.Pin, "BCM pin number of the input")
	poll := fs.Duration("poll", def.Poll, "GPIO polling interval")
	debounceFlag := fs.Duration("debounce", def.Debounce, "Debounce interval")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	clientID := fs.String("client-id", def.ClientID, "MQTT client ID prefix")
	topicPrefix := fs.String("topic-prefix", def.TopicPrefix, "MQTT topic prefix")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", def.LogLevel, "Log level")
	printState := fs.Bool("print-state", false, "Print current state and exit")

	if err := fs.Parse(args); err != nil {
		return def, false, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return cfg, false, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "chip":
			cfg.Chip = *chip
		case "pin":
			cfg.Pin = *pin
		case "poll":
			cfg.Poll = *poll
		case "debounce":
			cfg.Debounce = *debounceFlag
		case "broker":
			cfg.Broker = *broker
		case "client-id":
			cfg.ClientID = *clientID
		case "topic-prefix":
			cfg.TopicPrefix = *topicPrefix
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP = *httpAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	return cfg, *printState, cfg.Validate()
}

func run(cfg config.Config, printState bool) error {
	chip, err := gpio.Open(cfg.Backend, cfg.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	opts := []debounce.Option{debounce.WithIntervalMs(cfg.DebounceMs())}

	// Print state mode
	if printState {
		return debounce.With(chip, cfg.Pin, func(d *debounce.Debouncer) error {
			v, err := d.Value()
			if err != nil {
				return err
			}
			fmt.Printf("pin %d: %s\n", cfg.Pin, logic.StateOf(v))
			return nil
		}, opts...)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:     cfg.Backend,
		Chip:        cfg.Chip,
		Pin:         cfg.Pin,
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		TopicPrefix: cfg.TopicPrefix,
		HTTPPort:    cfg.HTTP,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	bootID := tracker.Snapshot().BootID

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID + "-" + bootID[:8],
		TopicPrefix: cfg.TopicPrefix,
		BufferSize:  cfg.BufferSize,
	})
	defer publisher.Close()

	m := metrics.New()

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTP)
	}

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return debounce.With(chip, cfg.Pin, func(d *debounce.Debouncer) error {
		log.Infof("started: pin=%d backend=%s poll=%v debounce=%dms broker=%s heartbeat=%v boot=%s",
			cfg.Pin, cfg.Backend, cfg.Poll, d.IntervalMs(), cfg.Broker, cfg.Heartbeat, bootID)
		return runLoop(d, cfg.Pin, publisher, publisher, tracker, m, cfg.Heartbeat, time.Now, ticker.C, sigCh)
	}, opts...)
}

// debouncer is the polled input runLoop drives.
type debouncer interface {
	Update() error
	Value() (bool, error)
	Rose() (bool, error)
	Fell() (bool, error)
}

func runLoop(deb debouncer, pin int, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, m *metrics.Metrics, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	initial, err := deb.Value()
	if err != nil {
		return fmt.Errorf("read initial value: %w", err)
	}
	detector := logic.NewDetector(pin, initial, now())
	refreshTracker(tracker, detector, mqttStatus)

	// Publish startup event with full status snapshot
	startup := mqtt.SystemEvent{Timestamp: now(), Event: "STARTUP", Retained: true}
	if tracker != nil {
		startup.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", "")
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Errorf("failed to publish startup event: %v", err)
	} else {
		log.Infof("published startup event (pin %d %s)", pin, detector.CurrentState())
	}

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(tracker, detector, mqttStatus)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Errorf("failed to publish shutdown event: %v", err)
			} else {
				log.Infof("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			input, err := sample(deb, t)
			if err != nil {
				if errors.Is(err, debounce.ErrDeinitialized) {
					return fmt.Errorf("debouncer: %w", err)
				}
				log.Warnf("gpio read error: %v", err)
				m.ObserveReadError()
				continue
			}
			m.ObserveUpdate(input.Value)

			for _, event := range detector.Process(input) {
				log.Infof("event: %s (pin %d %s)", event.Type, event.Pin, event.State)
				m.ObserveEvent(event)
				if err := publisher.Publish(event); err != nil {
					log.Errorf("publish error: %v", err)
					m.ObservePublishError()
					// Don't crash on publish failure
				}
			}

			// Check for heartbeat
			if hb := detector.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Infof("heartbeat: uptime=%v rose=%d fell=%d", hb.Uptime, hb.Counts.Rose, hb.Counts.Fell)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refreshTracker(tracker, detector, mqttStatus)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Errorf("heartbeat publish error: %v", err)
					m.ObservePublishError()
				}
			}

			refreshTracker(tracker, detector, mqttStatus)
		}
	}
}

// sample runs one debouncer update and collects its outputs.
func sample(deb debouncer, t time.Time) (logic.Input, error) {
	if err := deb.Update(); err != nil {
		return logic.Input{}, err
	}
	value, err := deb.Value()
	if err != nil {
		return logic.Input{}, err
	}
	rose, err := deb.Rose()
	if err != nil {
		return logic.Input{}, err
	}
	fell, err := deb.Fell()
	if err != nil {
		return logic.Input{}, err
	}
	return logic.Input{Value: value, Rose: rose, Fell: fell, Time: t}, nil
}

func refreshTracker(tracker *status.Tracker, detector *logic.Detector, mqttStatus mqtt.ConnectionStatus) {
	if tracker == nil {
		return
	}
	tracker.Update(detector.CurrentState(), true, detector.EventCountsSnapshot())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
