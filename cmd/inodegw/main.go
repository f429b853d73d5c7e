// inodegw bridges iNode BLE telemetry into a MODBUS/TCP register space.
//
// The gateway listens to one or more HCI byte streams (TCP sniffers or
// local serial dongles), decodes iNode advertising frames and serves the
// resulting device state to MODBUS masters. Optionally it fans the same
// telemetry out to MQTT and InfluxDB and exposes a read-only HTTP status
// API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/inode-tools/inode-modbus-gateway/internal/api"
	"github.com/inode-tools/inode-modbus-gateway/internal/connection"
	"github.com/inode-tools/inode-modbus-gateway/internal/gateway"
	"github.com/inode-tools/inode-modbus-gateway/internal/hci"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/config"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/influxdb"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/logging"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/mqtt"
	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
	"github.com/inode-tools/inode-modbus-gateway/internal/modbus"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	app := &cli.App{
		Name:    "inodegw",
		Usage:   "iNode BLE to MODBUS/TCP telemetry gateway",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"INODEGW_CONFIG"},
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, c.String("config"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. It returns on shutdown signal or when a component fails
// fatally.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting iNode MODBUS gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the device registry
	g := gateway.New(cfg.GetAvailabilityTimeout())
	g.SetLogger(log.With("component", "gateway"))
	defer g.Close()

	for _, dc := range cfg.Devices {
		d, devErr := inode.NewDevice(dc.MAC, dc.Unit)
		if devErr != nil {
			return fmt.Errorf("device %s: %w", dc.MAC, devErr)
		}
		if addErr := g.AddDevice(d); addErr != nil {
			return fmt.Errorf("device %s: %w", dc.MAC, addErr)
		}
	}
	log.Info("device registry initialised",
		"devices", len(cfg.Devices),
		"availability_timeout", cfg.GetAvailabilityTimeout(),
	)

	if cfg.Gateway.LogUnknownDevices {
		g.OnUnknownDevice(func(rep hci.AdvertisingReport) {
			log.Debug("advertisement from unregistered device", "mac", rep.Address)
		})
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Telemetry fanout decouples publishing from the ingest path
	pub := newPublisher(g, log.With("component", "telemetry"), mqttClient, influxClient, byte(cfg.MQTT.QoS))
	g.OnDeviceUpdate(pub.enqueue)

	// HCI stream sources
	sources := make([]connection.Source, 0, len(cfg.Connections))
	for _, cc := range cfg.Connections {
		src := buildSource(cc)
		if addErr := g.AddConnection(src); addErr != nil {
			return fmt.Errorf("connection %s: %w", src.Name(), addErr)
		}
		sources = append(sources, src)
		log.Info("connection configured", "name", src.Name(), "type", cc.Type)
	}

	// MODBUS/TCP slave
	srv := modbus.NewServer(g)
	srv.IdleTimeout = cfg.GetModbusIdleTimeout()
	srv.SetLogger(log.With("component", "modbus"))

	// HTTP status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Gateway: g,
			Version: version,
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
		log.Info("API disabled")
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return pub.run(gctx)
	})
	for _, src := range sources {
		src := src
		group.Go(func() error {
			err := src.Start(gctx)
			if gctx.Err() != nil {
				// Shutdown, not a transport failure.
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		log.Info("MODBUS server listening", "address", cfg.Modbus.Listen)
		err := srv.ListenAndServe(cfg.Modbus.Listen)
		if errors.Is(err, modbus.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, cleaning up")
		if closeErr := srv.Close(); closeErr != nil && !errors.Is(closeErr, modbus.ErrServerClosed) {
			log.Error("error closing MODBUS server", "error", closeErr)
		}
		for _, src := range sources {
			if closeErr := src.Close(); closeErr != nil {
				log.Error("error closing connection", "name", src.Name(), "error", closeErr)
			}
		}
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	log.Info("iNode MODBUS gateway stopped")
	return nil
}

// buildSource creates the transport for one configured connection. The
// config validator has already rejected unknown types.
func buildSource(cc config.ConnectionConfig) connection.Source {
	if cc.Type == "serial" {
		return connection.NewSerial(connection.SerialConfig{
			Name:     cc.Name,
			Port:     cc.Port,
			BaudRate: cc.BaudRate,
			HexText:  cc.HexText,
		})
	}
	return connection.NewTCP(connection.TCPConfig{
		Name:    cc.Name,
		Address: cc.Address,
		HexText: cc.HexText,
	})
}
