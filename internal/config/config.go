// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Audit    AuditConfig
	Tracking TrackingConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// LogConfig describes operational logging.
type LogConfig struct {
	Level  zerolog.Level
	Pretty bool
}

// AuditConfig describes the per-session black-box recorder.
type AuditConfig struct {
	Dir string
}

// TrackingConfig describes the geofencing behavior.
type TrackingConfig struct {
	// ProximityRadiusMeters is the hazard alert threshold.
	ProximityRadiusMeters float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	radius, err := parseOptionalFloatEnv("PROXIMITY_RADIUS_M")
	if err != nil {
		return nil, err
	}
	tracking := TrackingConfig{ProximityRadiusMeters: 100}
	if radius != nil {
		if *radius <= 0 {
			return nil, fmt.Errorf("PROXIMITY_RADIUS_M must be positive, got %g", *radius)
		}
		tracking.ProximityRadiusMeters = *radius
	}

	return &Config{
		Server:   server,
		Log:      logCfg,
		Audit:    AuditConfig{Dir: getEnvOrDefault("AUDIT_LOG_DIR", "logs")},
		Tracking: tracking,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// Allow ":8000" or "127.0.0.1:8000" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadLogConfig() (LogConfig, error) {
	levelRaw := getEnvOrDefault("LOG_LEVEL", "info")
	level, err := zerolog.ParseLevel(strings.ToLower(levelRaw))
	if err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", levelRaw, err)
	}

	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{Level: level, Pretty: pretty}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
