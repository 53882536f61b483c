package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	StationCategory int
	StationTable    string
	IntakeTable     string
	PersistStations bool

	// Intake and export files.
	SourceTable        string
	ExportTemplatePath string

	// Reference polygons for enrichment. Empty paths disable a layer.
	SubBasinGeoJSON      string
	SubBasinNameProp     string
	SubBasinCodeProp     string
	BasinCodeProp        string
	MunicipalityGeoJSON  string
	MunicipalityNameProp string
	MunicipalityCodeProp string
	StateCodeProp        string

	// Publishing is disabled when no broker is configured.
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// PublishEnabled reports whether coded stations are sent to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	category, err := parsePositiveInt("STATION_CATEGORY", 2)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	persist, err := parseBool("PERSIST_STATIONS", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StationCategory: category,
		StationTable:    sharedcfg.EnvOrDefault("STATION_TABLE", "estacao"),
		IntakeTable:     sharedcfg.EnvOrDefault("STATION_INTAKE_TABLE", "estacao_nova"),
		PersistStations: persist,

		SourceTable:        sharedcfg.EnvOrDefault("SOURCE_TABLE", "Estacoes_Novas"),
		ExportTemplatePath: os.Getenv("EXPORT_TEMPLATE_PATH"),

		SubBasinGeoJSON:      os.Getenv("SUBBASIN_GEOJSON"),
		SubBasinNameProp:     sharedcfg.EnvOrDefault("SUBBASIN_NAME_PROPERTY", "name"),
		SubBasinCodeProp:     sharedcfg.EnvOrDefault("SUBBASIN_CODE_PROPERTY", "subbasin_code"),
		BasinCodeProp:        sharedcfg.EnvOrDefault("BASIN_CODE_PROPERTY", "basin_code"),
		MunicipalityGeoJSON:  os.Getenv("MUNICIPALITY_GEOJSON"),
		MunicipalityNameProp: sharedcfg.EnvOrDefault("MUNICIPALITY_NAME_PROPERTY", "name"),
		MunicipalityCodeProp: sharedcfg.EnvOrDefault("MUNICIPALITY_CODE_PROPERTY", "municipality_code"),
		StateCodeProp:        sharedcfg.EnvOrDefault("STATE_CODE_PROPERTY", "state_code"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "coded-stations"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.PublishEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if f := strings.ToLower(cfg.LogFormat); f != "json" && f != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", key, s)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: want true or false", key, s)
	}
	return b, nil
}
