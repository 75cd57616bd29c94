// switchnode is a networked smart switch node.
//
// It exposes a fixed set of devices (four switches and a dispenser) to a
// cloud control plane over MQTT, persists parameter values in SQLite and
// serves a local control API on the LAN.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	_ "github.com/nerrad567/switchnode/migrations"

	"github.com/nerrad567/switchnode/internal/api"
	"github.com/nerrad567/switchnode/internal/cloud"
	"github.com/nerrad567/switchnode/internal/device"
	"github.com/nerrad567/switchnode/internal/event"
	"github.com/nerrad567/switchnode/internal/hardware"
	"github.com/nerrad567/switchnode/internal/infrastructure/config"
	"github.com/nerrad567/switchnode/internal/infrastructure/database"
	"github.com/nerrad567/switchnode/internal/infrastructure/influxdb"
	"github.com/nerrad567/switchnode/internal/infrastructure/logging"
	"github.com/nerrad567/switchnode/internal/infrastructure/mqtt"
	"github.com/nerrad567/switchnode/internal/telemetry"
	"github.com/nerrad567/switchnode/internal/topology"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// historyPruneInterval is how often old history rows are deleted.
const historyPruneInterval = time.Hour

// options are the command line flags.
type options struct {
	Config        string `short:"c" long:"config" env:"SWITCHNODE_CONFIG" default:"configs/config.yaml" description:"Configuration file."`
	MigrateStatus bool   `long:"migrate-status" description:"Print applied and pending migrations, then exit."`
	MigrateDown   bool   `long:"migrate-down" description:"Roll back the latest migration, then exit."`
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return options{}, err
	}
	if len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", rest)
	}
	if opts.MigrateStatus && opts.MigrateDown {
		return options{}, errors.New("--migrate-status and --migrate-down are mutually exclusive")
	}
	return opts, nil
}

// run wires the node together and blocks until ctx is cancelled.
//
// Startup order: hardware, storage, network, event handlers, device
// registry (restoring persisted values), features (history, telemetry,
// local control), then the cloud transport. Deferred cleanups run in
// reverse.
func run(ctx context.Context, opts options) error { //nolint:gocognit,gocyclo // Linear startup sequence
	log := logging.Default()
	log.Info("starting switchnode",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", opts.Config,
		"node_id", cfg.Node.ID,
		"devices", len(cfg.Devices),
	)

	// Schema maintenance never touches the hardware or the network.
	if opts.MigrateStatus || opts.MigrateDown {
		return migrateCommand(ctx, cfg.Database, opts, os.Stdout)
	}

	// Hardware: the actuator is driven to its default state before anything
	// else can write to it.
	driver, err := hardware.Open(cfg.Hardware, log.Component("hardware"))
	if err != nil {
		return fmt.Errorf("opening hardware driver: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(); closeErr != nil {
			log.Error("error closing hardware driver", "error", closeErr)
		}
	}()
	log.Info("hardware ready", "driver", cfg.Hardware.Driver, "on", driver.State())

	// Storage.
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	// Network.
	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.Component("mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"topic_root", mqttClient.Topics().Root(),
	)

	// Event handlers are subscribed once, then the bus is sealed.
	bus := event.NewBus()
	bus.SetLogger(log.Component("event"))
	hub := api.NewHub(cfg.WebSocket, log.Component("api"))
	if err := subscribeEvents(bus, log.Component("event"), hub, cfg.API.Enabled); err != nil {
		return fmt.Errorf("subscribing event handlers: %w", err)
	}
	bus.Seal()

	// Device registry.
	node, err := topology.Build(cfg.Node, cfg.Devices, topology.Options{
		Driver: driver,
		Logger: log.Component("device"),
	})
	if err != nil {
		return fmt.Errorf("building device topology: %w", err)
	}

	var reporters device.Reporters
	dispatcher := device.NewDispatcher(node, device.ReporterFunc(func(ctx context.Context, r device.Report) error {
		return reporters.Report(ctx, r)
	}))
	dispatcher.SetLogger(log.Component("dispatcher"))
	store := device.NewSQLiteParamStore(db.DB)
	dispatcher.SetStore(store)

	restored, err := dispatcher.Restore(ctx, store)
	if err != nil {
		return fmt.Errorf("restoring parameters: %w", err)
	}
	log.Info("device registry ready", "devices", len(node.Devices()), "restored", restored)

	// Features.
	history := device.NewSQLiteHistoryRepository(db.DB)
	reporters = append(reporters, device.NewHistoryReporter(history))
	if retention := cfg.HistoryRetention(); retention > 0 {
		go pruneHistoryLoop(ctx, history, retention, log)
	}

	influxClient, err := connectInfluxDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		reporters = append(reporters, telemetry.NewReporter(influxClient))
	}

	if cfg.API.Enabled {
		reporters = append(reporters, hub)
	}

	agent, err := cloud.NewAgent(cloud.Options{
		Client:     mqttClient,
		Dispatcher: dispatcher,
		Events:     bus,
		Logger:     log.Component("cloud"),
	})
	if err != nil {
		return fmt.Errorf("creating cloud agent: %w", err)
	}
	reporters = append(reporters, agent)

	// The reporter list is complete; nothing appends to it past this point.
	if cfg.API.Enabled {
		go hub.Run(ctx)

		apiServer, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log.Component("api"),
			Dispatcher: dispatcher,
			History:    history,
			Events:     bus,
			Hub:        hub,
			DB:         db,
			MQTT:       mqttClient,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("local control API disabled")
	}

	// Transport.
	if startErr := agent.Start(ctx); startErr != nil {
		return fmt.Errorf("starting cloud agent: %w", startErr)
	}
	defer agent.Stop()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	bus.Raise(event.CategoryAgent, event.InitDone, nil)
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	return database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
}

// migrateCommand rolls back the latest migration when asked to, then
// writes the schema status to w.
func migrateCommand(ctx context.Context, cfg config.DatabaseConfig, opts options, w io.Writer) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Nothing left to report on exit

	if opts.MigrateDown {
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "database: %s\n", db.Path())
	for _, r := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// subscribeEvents registers the lifecycle log on every category and, when
// local control is enabled, the WebSocket push.
func subscribeEvents(bus *event.Bus, log *logging.Logger, hub *api.Hub, pushToHub bool) error {
	logHandler := event.LogHandler(log)
	for _, cat := range event.Categories() {
		if err := bus.Subscribe(cat, logHandler); err != nil {
			return err
		}
		if pushToHub {
			if err := bus.Subscribe(cat, hub.HandleEvent); err != nil {
				return err
			}
		}
	}
	return nil
}

// connectInfluxDB returns nil when telemetry is disabled.
func connectInfluxDB(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// historyPruner is the part of the history repository used for retention.
type historyPruner interface {
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}

// pruneHistoryLoop deletes history older than retention once at startup
// and then every historyPruneInterval until ctx is cancelled.
func pruneHistoryLoop(ctx context.Context, repo historyPruner, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		pruneHistory(ctx, repo, retention, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneHistory(ctx context.Context, repo historyPruner, retention time.Duration, log *logging.Logger) {
	deleted, err := repo.PruneHistory(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("pruning parameter history failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		log.Info("parameter history pruned", "deleted", deleted, "retention", retention)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
