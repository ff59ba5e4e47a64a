package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/weatherflow2mqtt/internal/adapter/actor"
	"github.com/berfenger/weatherflow2mqtt/internal/adapter/store"
	"github.com/berfenger/weatherflow2mqtt/internal/config"
	"github.com/berfenger/weatherflow2mqtt/internal/core/actor"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/core/sensor"
	"github.com/berfenger/weatherflow2mqtt/internal/core/setup"
	"github.com/berfenger/weatherflow2mqtt/internal/server"
	"github.com/berfenger/weatherflow2mqtt/internal/util/actorutil"
	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// a broken sensor table is a programming error
	if err := sensor.ValidateDescriptions(sensor.Descriptions()); err != nil {
		panic(err)
	}

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	entries, err := store.NewStore(cfg.Store.Path, logger)
	if err != nil {
		logger.Error("could not open entry store", zap.String("path", cfg.Store.Path), zap.Error(err))
		return
	}
	defer entries.Close()

	legacy, err := loadLegacy(cfg.Legacy.ConfigFile, logger)
	if err != nil {
		logger.Error("could not load legacy configuration", zap.String("file", cfg.Legacy.ConfigFile), zap.Error(err))
		return
	}

	prober := setup.NewProber(time.Duration(cfg.Setup.ProbeTimeoutSeconds)*time.Second,
		weatherflow.WithPort(cfg.Listener.Port), weatherflow.WithLogger(logger))

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, entries, prober, legacy, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => WEATHERFLOW_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("WEATHERFLOW_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("weatherflow")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	units, err := config.CheckUnitSystem(cfg.Units.System)
	if err != nil {
		return nil, err
	}
	cfg.Units.System = units

	// check bounds
	if cfg.Listener.Port <= 0 || cfg.Listener.Port > 65535 {
		return nil, errors.New("config param listener.port must be a valid UDP port")
	}
	if cfg.Setup.ProbeTimeoutSeconds == 0 {
		return nil, errors.New("config param setup.probe_timeout_seconds should be > 0")
	}
	if cfg.Availability.CheckIntervalSeconds == 0 {
		return nil, errors.New("config param availability.check_interval_seconds should be > 0")
	}
	if cfg.Availability.StaleAfterSeconds < cfg.Availability.CheckIntervalSeconds {
		return nil, errors.New("config param availability.stale_after_seconds must be >= availability.check_interval_seconds")
	}

	return &cfg, nil
}

func loadLegacy(path string, logger *zap.Logger) ([]domain.ImportConfig, error) {
	if path == "" {
		return nil, nil
	}
	legacy, err := setup.LoadLegacyConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("legacy configuration file not found", zap.String("file", path))
		return nil, nil
	}
	return legacy, err
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "weatherflow")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("listener.host", weatherflow.DEFAULT_HOST)
	viper.SetDefault("listener.port", weatherflow.DEFAULT_PORT)
	viper.SetDefault("setup.probe_timeout_seconds", 10)
	viper.SetDefault("units.system", config.UNITS_METRIC)
	viper.SetDefault("store.path", "weatherflow.db")
	viper.SetDefault("legacy.config_file", "")
	viper.SetDefault("availability.check_interval_seconds", 30)
	viper.SetDefault("availability.stale_after_seconds", 180)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
