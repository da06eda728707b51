// Command pir-stairs polls two PIR sensors on a staircase and applies a WLED
// preset over MQTT when someone starts walking up or down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/pir-stairs/internal/config"
	"github.com/sweeney/pir-stairs/internal/gpio"
	"github.com/sweeney/pir-stairs/internal/history"
	"github.com/sweeney/pir-stairs/internal/metrics"
	"github.com/sweeney/pir-stairs/internal/mqtt"
	"github.com/sweeney/pir-stairs/internal/stairs"
	"github.com/sweeney/pir-stairs/internal/status"
	"github.com/sweeney/pir-stairs/internal/usermod"
	"github.com/sweeney/pir-stairs/internal/web"
)

// eventQueueSize bounds triggers waiting for the dispatcher.
const eventQueueSize = 64

// pruneInterval is how often old history rows are removed.
const pruneInterval = time.Hour

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, printState, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if err := run(cfg, printState); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// loadConfig parses args, loads the YAML file named by --config and applies
// the flags given explicitly on top of it. The result is validated once.
func loadConfig(fs *flag.FlagSet, args []string) (config.Config, bool, error) {
	configPath := fs.String("config", "", "YAML config file (optional)")
	poll := fs.Duration("poll", 0, "GPIO polling interval")
	broker := fs.String("broker", "", "MQTT broker address")
	wledTopic := fs.String("wled-topic", "", "WLED device MQTT topic")
	httpAddr := fs.String("http", "", `HTTP status address ("off" to disable)`)
	umConfig := fs.String("usermod-config", "", "Path of the module config file (cfg.json)")
	historyDB := fs.String("history-db", "", "SQLite history database (empty for in-memory)")
	backend := fs.String("gpio-backend", "", "GPIO backend: cdev or periph")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	printState := fs.Bool("print-state", false, "Print current sensor levels and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = *poll
		case "broker":
			cfg.Broker = *broker
		case "wled-topic":
			cfg.WLEDTopic = *wledTopic
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "usermod-config":
			cfg.UsermodConfig = *umConfig
		case "history-db":
			cfg.HistoryDB = *historyDB
		case "gpio-backend":
			cfg.GPIO.Backend = *backend
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Resolve(); err != nil {
		return cfg, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printState, nil
}

func run(cfg config.Config, printState bool) error {
	pins, err := gpio.Open(cfg.GPIO.Backend, cfg.GPIO.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	store := usermod.NewStore(cfg.UsermodConfig)

	// Print state mode
	if printState {
		return printPinState(os.Stdout, pins, store)
	}

	var repo history.Repository
	if cfg.HistoryDB != "" {
		sqlRepo, err := history.NewSQLiteRepository(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		repo = sqlRepo
	} else {
		repo = history.NewMemoryRepository()
	}
	defer repo.Close()

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:    cfg.Broker,
		ClientID:  cfg.ClientID,
		WLEDTopic: cfg.WLEDTopic,
	}, log.Logger)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		Broker:      cfg.Broker,
		WLEDTopic:   cfg.WLEDTopic,
		HTTPAddr:    cfg.HTTPAddr,
		GPIOBackend: cfg.GPIO.Backend,
	})
	m := metrics.New()

	disp := newDispatcher(eventQueueSize, repo, publisher, m, cfg.HistoryRetention, log.Logger)
	d := newDaemon(pins, publisher, publisher, publisher, store, tracker, m, disp, log.Logger)

	if err := d.start(time.Now()); err != nil {
		return err
	}

	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()
	go disp.run(pruneTicker.C)
	defer disp.stop()

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, repo, m.Handler(), log.Logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().
		Dur("poll", cfg.Poll).
		Str("broker", cfg.Broker).
		Str("wled_topic", cfg.WLEDTopic).
		Str("gpio", cfg.GPIO.Backend).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	return d.runLoop(time.Now, ticker.C, sigCh)
}

// daemon wires the module registry to the host services. All methods run on
// the run-loop goroutine.
type daemon struct {
	registry   *usermod.Registry
	stairs     *stairs.Usermod
	store      *usermod.Store
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func newDaemon(pins stairs.Pins, runner stairs.PresetRunner, busy stairs.Busy, publisher mqtt.Publisher,
	store *usermod.Store, tracker *status.Tracker, m *metrics.Metrics, disp *dispatcher, logger zerolog.Logger) *daemon {
	d := &daemon{
		registry:  usermod.NewRegistry(),
		store:     store,
		publisher: publisher,
		tracker:   tracker,
		metrics:   m,
		log:       logger,
	}
	if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
		d.mqttStatus = cs
	}

	d.stairs = stairs.NewUsermod(pins, runner, busy, stairs.Hooks{
		OnTrigger: func(ev stairs.TriggerEvent) {
			tracker.RecordTrigger(ev)
			m.Trigger(ev)
			disp.enqueue(ev)
		},
		OnReadError: func(error) {
			tracker.RecordReadError()
			m.ReadError()
		},
		OnPresetError: func(stairs.TriggerEvent, error) {
			tracker.RecordPresetError()
			m.PresetError()
		},
	}, logger)
	return d
}

// start registers the modules, loads their config, initializes them and
// publishes the STARTUP event.
func (d *daemon) start(now time.Time) error {
	if err := d.registry.Register(d.stairs); err != nil {
		return fmt.Errorf("register %s: %w", d.stairs.Name(), err)
	}
	if err := d.loadModuleConfig(); err != nil {
		return err
	}
	d.registry.Initialize()
	d.observe(now)

	d.publishSystem(now, "STARTUP", "", true)
	return nil
}

// loadModuleConfig reads the module config file into every module. If a
// module has no stored object the exported defaults are written back.
func (d *daemon) loadModuleConfig() error {
	tree, err := d.store.Load()
	if err != nil {
		return fmt.Errorf("load module config: %w", err)
	}

	if missing := d.registry.LoadConfig(tree); len(missing) > 0 {
		d.log.Info().Strs("modules", missing).Str("path", d.store.Path()).Msg("saving default module config")
		exported, err := d.registry.ExportConfig()
		if err != nil {
			return err
		}
		if err := d.store.Save(exported); err != nil {
			d.log.Error().Err(err).Msg("save module config")
		}
	}

	return d.refreshModuleConfig()
}

func (d *daemon) refreshModuleConfig() error {
	exported, err := d.registry.ExportConfig()
	if err != nil {
		return err
	}
	data, err := json.Marshal(exported)
	if err != nil {
		return fmt.Errorf("encode module config: %w", err)
	}
	d.tracker.SetModuleConfig(data)
	return nil
}

// observe copies the controller state into the tracker and metrics.
func (d *daemon) observe(now time.Time) {
	ctrl := d.stairs.Controller()
	cfg := ctrl.Config()
	state := ctrl.State(now)

	d.tracker.Update(cfg, state, ctrl.LockoutRemaining(now))
	d.metrics.Observe(cfg, state)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) publishSystem(now time.Time, event, reason string, retained bool) {
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.log.Error().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	d.log.Info().Str("event", event).Msg("published system event")
}

func (d *daemon) reload(now time.Time) {
	d.log.Info().Str("path", d.store.Path()).Msg("reloading module config")
	if err := d.loadModuleConfig(); err != nil {
		d.log.Error().Err(err).Msg("reload failed")
		return
	}
	d.observe(now)
	d.publishSystem(now, "RELOAD", "SIGHUP", false)
}

func (d *daemon) runLoop(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				d.reload(now())
				continue
			}

			d.log.Info().Stringer("signal", s).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			t := now()
			d.observe(t)
			d.publishSystem(t, "SHUTDOWN", signalName, true)
			return nil

		case <-tick:
			t := now()
			d.registry.Poll(t)
			d.observe(t)
		}
	}
}

// printPinState loads the module config and prints the level of each
// configured sensor pin.
func printPinState(w io.Writer, pins stairs.Pins, store *usermod.Store) error {
	tree, err := store.Load()
	if err != nil {
		return fmt.Errorf("load module config: %w", err)
	}
	u := stairs.NewUsermod(pins, nil, nil, stairs.Hooks{}, zerolog.Nop())
	u.LoadConfig(tree)
	cfg := u.Controller().Config()

	for _, s := range []struct {
		name string
		pin  int8
	}{
		{"UP", cfg.PinUp},
		{"DOWN", cfg.PinDown},
	} {
		if s.pin < 0 {
			fmt.Fprintf(w, "%s: disabled\n", s.name)
			continue
		}
		if err := pins.Input(int(s.pin)); err != nil {
			return fmt.Errorf("configure %s pin %d: %w", s.name, s.pin, err)
		}
		high, err := pins.Read(int(s.pin))
		if err != nil {
			return fmt.Errorf("read %s pin %d: %w", s.name, s.pin, err)
		}
		fmt.Fprintf(w, "%s (GPIO%d): %s\n", s.name, s.pin, levelString(high))
	}
	return nil
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
