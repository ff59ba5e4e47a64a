package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	UNITS_METRIC   = "metric"
	UNITS_IMPERIAL = "imperial"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig `mapstructure:"mqtt"`

	Listener     ListenerConfig     `mapstructure:"listener"`
	Setup        SetupConfig        `mapstructure:"setup"`
	Units        UnitsConfig        `mapstructure:"units"`
	Store        StoreConfig        `mapstructure:"store"`
	Legacy       LegacyConfig       `mapstructure:"legacy"`
	Availability AvailabilityConfig `mapstructure:"availability"`
	Port         uint               `mapstructure:"port"`
	HttpLog      bool               `mapstructure:"http_log"`
}

type ListenerConfig struct {
	Host string
	Port int
}

type SetupConfig struct {
	ProbeTimeoutSeconds uint `mapstructure:"probe_timeout_seconds"`
}

type UnitsConfig struct {
	System string
}

func (u UnitsConfig) IsMetric() bool {
	return u.System != UNITS_IMPERIAL
}

type StoreConfig struct {
	Path string
}

type LegacyConfig struct {
	ConfigFile string `mapstructure:"config_file"`
}

type AvailabilityConfig struct {
	CheckIntervalSeconds uint `mapstructure:"check_interval_seconds"`
	StaleAfterSeconds    uint `mapstructure:"stale_after_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func CheckUnitSystem(system string) (string, error) {
	switch s := strings.ToLower(system); s {
	case "", UNITS_METRIC:
		return UNITS_METRIC, nil
	case UNITS_IMPERIAL:
		return s, nil
	default:
		return "", errors.New("invalid unit system. must be metric or imperial")
	}
}
