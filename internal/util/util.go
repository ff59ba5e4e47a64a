package util

import (
	"github.com/berfenger/weatherflow2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "weatherflow",
			HADiscoveryTopic: "homeassistant",
		},
		Listener: config.ListenerConfig{
			Host: "0.0.0.0",
			Port: 50222,
		},
		Setup: config.SetupConfig{
			ProbeTimeoutSeconds: 10,
		},
		Units: config.UnitsConfig{
			System: config.UNITS_METRIC,
		},
		Store: config.StoreConfig{
			Path: ":memory:",
		},
		Availability: config.AvailabilityConfig{
			CheckIntervalSeconds: 30,
			StaleAfterSeconds:    180,
		},
		Port: 8080,
	}
}
