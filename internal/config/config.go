// Package config loads service configuration from YAML, .env files and
// VIGRI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"vigri-presale/internal/solana"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// DefaultProgramID is the presale program the config PDA is derived from.
const DefaultProgramID = "GmrUAwBvC3ijaM2L7kjddQFMWHevxRnArngf7jFx1yEk"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug bool `mapstructure:"debug"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// Addr returns host:port for net/http.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig selects the ledger substrate
type StoreConfig struct {
	Backend     string `mapstructure:"backend"` // memory | postgres
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ClickHouseConfig holds the analytics sink connection. Empty DSN disables it.
type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// NATSConfig holds NATS JetStream configuration. Empty URL disables it.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// PresaleConfig holds sale parameters that are not part of the on-ledger aggregate
type PresaleConfig struct {
	ProgramID       string `mapstructure:"program_id"`
	MetadataBaseURL string `mapstructure:"metadata_base_url"`
}

// ServerConfig holds configuration for the presale API server
type ServerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     HTTPConfig       `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Presale    PresaleConfig    `mapstructure:"presale"`
}

// AdminMintConfig holds configuration for the admin-mint CLI
type AdminMintConfig struct {
	BaseConfig  `mapstructure:",squash"`
	APIURL      string        `mapstructure:"api_url"`
	KeypairPath string        `mapstructure:"keypair_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// LoadServerConfig loads configuration for the presale server
func LoadServerConfig(configFile string, envPath string) (*ServerConfig, error) {
	v := configureViper("server", configFile, envPath)

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 60)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("nats.stream_name", "PRESALE_MINTS")
	v.SetDefault("nats.subject_prefix", "presale.mint")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "vigri-presale")
	v.SetDefault("nats.publish_timeout", "5s")
	v.SetDefault("presale.program_id", DefaultProgramID)
	v.SetDefault("presale.metadata_base_url", "https://vigri.io")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *ServerConfig) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	if _, err := solana.ParsePublicKey(c.Presale.ProgramID); err != nil {
		return fmt.Errorf("presale.program_id: %w", err)
	}
	if c.Presale.MetadataBaseURL == "" {
		return errors.New("presale.metadata_base_url is required")
	}
	return nil
}

// LoadAdminMintConfig loads configuration for the admin-mint CLI
func LoadAdminMintConfig(configFile string, envPath string) (*AdminMintConfig, error) {
	v := configureViper("admin-mint", configFile, envPath)

	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("keypair_path", "~/.config/solana/id.json")
	v.SetDefault("timeout", "30s")
	v.SetDefault("max_retries", 3)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg AdminMintConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// readConfig reads the config file, tolerating a missing one. viper reports
// ConfigFileNotFoundError only when searching paths; an explicit file that
// does not exist surfaces as fs.ErrNotExist.
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("VIGRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars binds every key so env vars are honoured without a config file.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Store
		"store.backend",
		"store.postgres_dsn",
		// ClickHouse
		"clickhouse.dsn",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.publish_timeout",
		// Presale
		"presale.program_id",
		"presale.metadata_base_url",
		// admin-mint
		"api_url",
		"keypair_path",
		"timeout",
		"max_retries",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads .env files from envPath (default config/)
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}
