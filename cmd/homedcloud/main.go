// Homed Cloud - server side of the homed smart-home bridge.
//
// A fleet of customer-premises gateways connects over an encrypted TCP
// session and reports device state; Google's Smart Home cloud calls in
// over HTTPS to discover, query and control those devices. This binary
// wires the two edges together around an in-memory device repository.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/homedcloud/homed-cloud/migrations"

	"github.com/homedcloud/homed-cloud/internal/api"
	"github.com/homedcloud/homed-cloud/internal/auth"
	"github.com/homedcloud/homed-cloud/internal/device"
	"github.com/homedcloud/homed-cloud/internal/fulfillment"
	"github.com/homedcloud/homed-cloud/internal/gateway"
	"github.com/homedcloud/homed-cloud/internal/infrastructure/config"
	"github.com/homedcloud/homed-cloud/internal/infrastructure/database"
	"github.com/homedcloud/homed-cloud/internal/infrastructure/influxdb"
	"github.com/homedcloud/homed-cloud/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting homed-cloud", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Database and schema.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	users := auth.NewUserRepository(db.DB)
	tokens := auth.NewTokenRepository(db.DB)

	// InfluxDB reading history (optional).
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device repository fed by the gateway edge.
	repo := device.NewRepository(log)

	var sink gateway.DeviceSink = repo
	if influxClient != nil {
		sink = &recordingSink{repo: repo, influx: influxClient}
	}

	gatewayServer := gateway.NewServer(gateway.ServerConfig{
		Addr:        fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		AuthTimeout: cfg.GatewayAuthTimeout(),
		MaxBuffer:   cfg.Gateway.MaxBufferSize,
	}, tokens, sink, log)

	repo.SetConnectionSource(&connSource{server: gatewayServer})

	// Home Graph (optional) and the fulfillment router.
	var homeGraph fulfillment.HomeGraph
	if cfg.HomeGraph.Enabled {
		hg, hgErr := fulfillment.NewHomeGraphService(ctx, cfg.HomeGraph.CredentialsFile)
		if hgErr != nil {
			return fmt.Errorf("connecting to Home Graph: %w", hgErr)
		}
		homeGraph = hg
		log.Info("Home Graph reporting enabled")
	} else {
		log.Info("Home Graph reporting disabled")
	}

	router := fulfillment.NewRouter(repo, users, homeGraph, cfg.SyncDebounce(), log)
	defer router.Close()

	// HTTP edge.
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log,
		Users:    users,
		Router:   router,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Gateway edge.
	if err := gatewayServer.Start(); err != nil {
		return fmt.Errorf("starting gateway server: %w", err)
	}
	defer func() {
		log.Info("closing gateway server")
		gatewayServer.Close()
	}()
	log.Info("gateway listening", "address", gatewayServer.Addr().String())

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path, honouring
// HOMEDCLOUD_CONFIG.
func getConfigPath() string {
	if path := os.Getenv("HOMEDCLOUD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// connSource adapts the gateway connection registry to the device
// repository's command port.
type connSource struct {
	server *gateway.Server
}

func (s *connSource) Connection(userID, clientID string) (device.Commander, bool) {
	conn, ok := s.server.Connection(userID, clientID)
	if !ok {
		return nil, false
	}
	return conn, true
}

// recordingSink feeds the repository and mirrors readings and
// availability transitions into InfluxDB.
type recordingSink struct {
	repo   *device.Repository
	influx *influxdb.Client
}

func (s *recordingSink) ApplyStatus(userID, clientID, service string, msg gateway.StatusMessage) {
	s.repo.ApplyStatus(userID, clientID, service, msg)
}

func (s *recordingSink) ApplyExposes(userID, clientID, deviceKey string, endpoints map[int]gateway.ExposeEndpoint) {
	s.repo.ApplyExposes(userID, clientID, deviceKey, endpoints)
}

func (s *recordingSink) ApplyAvailability(userID, clientID, deviceKey string, online bool) {
	s.repo.ApplyAvailability(userID, clientID, deviceKey, online)
	s.influx.WriteAvailability(userID, clientID, deviceKey, online)
}

func (s *recordingSink) ApplyReading(userID, clientID, deviceKey string, endpointID int, values map[string]any) {
	s.repo.ApplyReading(userID, clientID, deviceKey, endpointID, values)
	s.influx.WriteReading(userID, clientID, deviceKey, endpointID, endpointID > 0, values)
}
