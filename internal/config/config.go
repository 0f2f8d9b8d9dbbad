package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Dataset       DatasetConfig
	Store         StoreConfig
	Exec          ExecConfig
	AI            AIConfig
	Session       SessionConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatasetConfig struct {
	ForceHeader     bool
	PreviewSkipRows int
	MaxUploadBytes  int64
}

type StoreConfig struct {
	Driver string
}

type ExecConfig struct {
	ReadOnly bool
	RowLimit int
}

type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

const (
	StoreDriverDuckDB = "duckdb"
	StoreDriverSQLite = "sqlite"
)

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("CONVDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid CONVDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "CONVDB_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CONVDB_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CONVDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CONVDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CONVDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CONVDB_DATASET_FORCE_HEADER", &cfg.Dataset.ForceHeader); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CONVDB_DATASET_PREVIEW_SKIP_ROWS", &cfg.Dataset.PreviewSkipRows); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "CONVDB_DATASET_MAX_UPLOAD_BYTES", &cfg.Dataset.MaxUploadBytes); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CONVDB_STORE_DRIVER", &cfg.Store.Driver); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CONVDB_EXEC_READ_ONLY", &cfg.Exec.ReadOnly); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CONVDB_EXEC_ROW_LIMIT", &cfg.Exec.RowLimit); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CONVDB_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CONVDB_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CONVDB_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CONVDB_AI_MAX_TOKENS", &cfg.AI.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "CONVDB_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CONVDB_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CONVDB_SESSION_IDLE_TTL", &cfg.Session.IdleTTL); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CONVDB_SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CONVDB_SESSION_MAX", &cfg.Session.MaxSessions); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CONVDB_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "CONVDB_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidStoreDriver(cfg.Store.Driver) {
		return Config{}, fmt.Errorf("invalid CONVDB_STORE_DRIVER: %q", cfg.Store.Driver)
	}
	if cfg.Dataset.PreviewSkipRows < 0 {
		return Config{}, fmt.Errorf("CONVDB_DATASET_PREVIEW_SKIP_ROWS must be >= 0")
	}
	if cfg.Dataset.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("CONVDB_DATASET_MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.AI.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("CONVDB_AI_MAX_TOKENS must be > 0")
	}
	if cfg.Session.MaxSessions <= 0 {
		return Config{}, fmt.Errorf("CONVDB_SESSION_MAX must be > 0")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "convdb-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Dataset: DatasetConfig{
			ForceHeader:     true,
			PreviewSkipRows: 8,
			MaxUploadBytes:  16 << 20,
		},
		Store: StoreConfig{
			Driver: StoreDriverDuckDB,
		},
		Exec: ExecConfig{
			ReadOnly: true,
			RowLimit: 0,
		},
		AI: AIConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   150,
			Temperature: 0,
			Timeout:     30 * time.Second,
		},
		Session: SessionConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: 5 * time.Minute,
			MaxSessions:   100,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Session.SweepInterval = time.Minute
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidStoreDriver(driver string) bool {
	switch driver {
	case StoreDriverDuckDB, StoreDriverSQLite:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
