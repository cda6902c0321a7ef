package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Gateway    GatewayConfig
	Webhook    WebhookConfig
	Reconciler ReconcilerConfig
	WorkerPool WorkerPoolConfig
	Valkey     ValkeyConfig
	Broker     BrokerConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseURL            string
	CorsAllowedOrigins []string
	ServerID           string
	StorageDir         string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // file path for SQLite, database name for Postgres
	// ManageCases migrates a local cases table. Defaults to true on SQLite,
	// where no case management schema exists alongside.
	ManageCases bool
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string // fallback when a tenant has no key of its own
	Timeout time.Duration
}

type WebhookConfig struct {
	PublicURL string // externally reachable base URL the gateway posts to
	Token     string // optional shared secret checked on inbound webhooks
}

type ReconcilerConfig struct {
	Interval    time.Duration
	Concurrency int
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

// Global provides access to the loaded configuration for the cobra commands.
var Global *Config

func init() {
	viper.SetDefault("app_port", "3000")
	viper.SetDefault("app_env", "development")
	viper.SetDefault("app_base_url", "http://localhost:3000")
	viper.SetDefault("app_storage_dir", "storages")
	viper.SetDefault("app_cors_allowed_origins", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("db_driver", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_user", "postgres")
	viper.SetDefault("gateway_url", "http://localhost:8080")
	viper.SetDefault("gateway_timeout", "10s")
	viper.SetDefault("reconciler_interval", "60s")
	viper.SetDefault("reconciler_concurrency", 4)
	viper.SetDefault("message_worker_pool_size", 8)
	viper.SetDefault("message_worker_queue_size", 500)
	viper.SetDefault("valkey_address", "localhost:6379")
	viper.SetDefault("valkey_key_prefix", "azjuris:")
	viper.SetDefault("broker_exchange", "azjuris.events")
}

// LoadConfig builds the Config from viper, which already merges .env,
// process environment and bound cobra flags.
func LoadConfig() (*Config, error) {
	storageDir := viper.GetString("app_storage_dir")

	dbName := viper.GetString("db_name")
	if dbName == "" {
		dbName = filepath.Join(storageDir, "azjuris.db")
	}

	driver := viper.GetString("db_driver")
	manageCases := driver == "sqlite" || driver == ""
	if viper.IsSet("db_manage_cases") {
		manageCases = viper.GetBool("db_manage_cases")
	}

	cfg := &Config{
		App: AppConfig{
			Version:            "v1.0.0",
			Port:               viper.GetString("app_port"),
			Debug:              viper.GetBool("app_debug"),
			Environment:        viper.GetString("app_env"),
			BasicAuth:          splitList(viper.GetString("app_basic_auth")),
			BasePath:           viper.GetString("app_base_path"),
			TrustedProxies:     splitList(viper.GetString("app_trusted_proxies")),
			BaseURL:            viper.GetString("app_base_url"),
			CorsAllowedOrigins: splitList(viper.GetString("app_cors_allowed_origins")),
			ServerID:           viper.GetString("server_id"),
			StorageDir:         storageDir,
		},
		Database: DatabaseConfig{
			Driver:      driver,
			Host:        viper.GetString("db_host"),
			Port:        viper.GetInt("db_port"),
			User:        viper.GetString("db_user"),
			Password:    viper.GetString("db_password"),
			Name:        dbName,
			ManageCases: manageCases,
		},
		Gateway: GatewayConfig{
			BaseURL: strings.TrimRight(viper.GetString("gateway_url"), "/"),
			APIKey:  viper.GetString("gateway_api_key"),
			Timeout: durationOr(viper.GetDuration("gateway_timeout"), 10*time.Second),
		},
		Webhook: WebhookConfig{
			PublicURL: strings.TrimRight(viper.GetString("webhook_public_url"), "/"),
			Token:     viper.GetString("webhook_token"),
		},
		Reconciler: ReconcilerConfig{
			Interval:    viper.GetDuration("reconciler_interval"),
			Concurrency: positiveOr(viper.GetInt("reconciler_concurrency"), 4),
		},
		WorkerPool: WorkerPoolConfig{
			Size:      positiveOr(viper.GetInt("message_worker_pool_size"), 8),
			QueueSize: positiveOr(viper.GetInt("message_worker_queue_size"), 500),
		},
		Valkey: ValkeyConfig{
			Enabled:   viper.GetBool("valkey_enabled"),
			Address:   viper.GetString("valkey_address"),
			Password:  viper.GetString("valkey_password"),
			DB:        viper.GetInt("valkey_db"),
			KeyPrefix: viper.GetString("valkey_key_prefix"),
		},
		Broker: BrokerConfig{
			URL:      viper.GetString("broker_url"),
			Exchange: viper.GetString("broker_exchange"),
		},
	}

	Global = cfg
	return cfg, nil
}

// WebhookURL is the address registered on the gateway for a tenant, or ""
// when no public URL is configured.
func (c *Config) WebhookURL(tenantID string) string {
	if c.Webhook.PublicURL == "" || tenantID == "" {
		return ""
	}
	return c.Webhook.PublicURL + "/webhook/" + tenantID
}
