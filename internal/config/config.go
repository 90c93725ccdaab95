// Package config loads the walletd daemon configuration from YAML with
// sensible local-development defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marko911/wallet-pulse/internal/journal"
	"github.com/marko911/wallet-pulse/internal/keystore"
	"github.com/marko911/wallet-pulse/internal/policy"
	"github.com/marko911/wallet-pulse/internal/relay"
)

// Config holds the configuration for the walletd daemon.
type Config struct {
	// HTTP listen address for the bridge and API endpoints
	Listen string `yaml:"listen"`

	// AppURL is the dapp URL embedded in wallet redirect links
	AppURL string `yaml:"app_url"`

	// Solana RPC configuration
	RPC RPCConfig `yaml:"rpc"`

	// Keystore backend for the persistent wallet
	Keystore KeystoreConfig `yaml:"keystore"`

	// NATS relay for adapter events
	Relay RelayConfig `yaml:"relay"`

	// Kafka audit trail (disabled when brokers is empty)
	Audit AuditConfig `yaml:"audit"`

	// Postgres signature journal (disabled when host is empty)
	Journal JournalConfig `yaml:"journal"`

	// WASM approval policy (disabled when module is empty)
	Policy PolicyConfig `yaml:"policy"`

	// Logging options
	Log LogConfig `yaml:"log"`
}

// RPCConfig holds Solana RPC settings.
type RPCConfig struct {
	// Endpoint URL; named clusters "devnet", "mainnet" and "testnet" are
	// also accepted
	Endpoint string `yaml:"endpoint"`
}

// KeystoreConfig selects and configures the keypair backend.
type KeystoreConfig struct {
	// Backend is one of "file", "redis" or "minio"
	Backend string `yaml:"backend"`

	// Directory for the file backend
	Dir string `yaml:"dir"`

	Redis RedisConfig `yaml:"redis"`
	Minio MinioConfig `yaml:"minio"`
}

// RedisConfig holds Redis keystore settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// MinioConfig holds S3-compatible keystore settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Object    string `yaml:"object"`
}

// RelayConfig holds NATS settings.
type RelayConfig struct {
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// AuditConfig holds Kafka audit settings.
type AuditConfig struct {
	// Comma-separated broker list; empty disables the audit trail
	Brokers string `yaml:"brokers"`

	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`

	Partitions        int32 `yaml:"partitions"`
	ReplicationFactor int16 `yaml:"replication_factor"`
	RetentionMs       int64 `yaml:"retention_ms"`
}

// JournalConfig holds Postgres settings.
type JournalConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

// PolicyConfig holds WASM approval hook settings.
type PolicyConfig struct {
	// Module is the path to the policy wasm file; empty disables the hook
	Module string `yaml:"module"`

	MaxMemoryMB int           `yaml:"max_memory_mb"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig holds logging options.
type LogConfig struct {
	// Level is one of "debug", "info", "warn" or "error"
	Level string `yaml:"level"`
}

// Load reads configuration from file and applies defaults for anything
// the file leaves unset. An empty path returns pure defaults.
func Load(path string) (*Config, error) {
	relayDefaults := relay.DefaultConfig()
	auditDefaults := relay.DefaultAuditConfig()
	journalDefaults := journal.DefaultConfig()
	policyDefaults := policy.DefaultConfig()

	cfg := &Config{
		Listen: ":8700",
		AppURL: "http://localhost:8700",
		RPC: RPCConfig{
			Endpoint: "devnet",
		},
		Keystore: KeystoreConfig{
			Backend: "file",
			Dir:     defaultKeystoreDir(),
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Relay: RelayConfig{
			URL:            relayDefaults.URL,
			Name:           relayDefaults.Name,
			SubjectPrefix:  relayDefaults.SubjectPrefix,
			ReconnectWait:  relayDefaults.ReconnectWait,
			MaxReconnects:  relayDefaults.MaxReconnects,
			ConnectTimeout: relayDefaults.ConnectTimeout,
		},
		Audit: AuditConfig{
			Topic:             auditDefaults.Topic,
			ClientID:          auditDefaults.ClientID,
			Partitions:        auditDefaults.Partitions,
			ReplicationFactor: auditDefaults.ReplicationFactor,
			RetentionMs:       auditDefaults.RetentionMs,
		},
		Journal: JournalConfig{
			Port:     journalDefaults.Port,
			User:     journalDefaults.User,
			Password: journalDefaults.Password,
			Database: journalDefaults.Database,
			SSLMode:  journalDefaults.SSLMode,
			MaxConns: journalDefaults.MaxConns,
		},
		Policy: PolicyConfig{
			MaxMemoryMB: policyDefaults.MaxMemoryMB,
			Timeout:     policyDefaults.Timeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants a typo in the file would break.
func (c *Config) Validate() error {
	switch c.Keystore.Backend {
	case "file", "redis", "minio":
	default:
		return fmt.Errorf("unknown keystore backend %q", c.Keystore.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// RelayConfig converts to the relay package's config.
func (c *Config) RelayConfig() relay.Config {
	return relay.Config{
		URL:            c.Relay.URL,
		Name:           c.Relay.Name,
		SubjectPrefix:  c.Relay.SubjectPrefix,
		ReconnectWait:  c.Relay.ReconnectWait,
		MaxReconnects:  c.Relay.MaxReconnects,
		ConnectTimeout: c.Relay.ConnectTimeout,
	}
}

// AuditConfig converts to the relay package's audit config.
func (c *Config) AuditConfig() relay.AuditConfig {
	return relay.AuditConfig{
		Brokers:           c.Audit.Brokers,
		Topic:             c.Audit.Topic,
		ClientID:          c.Audit.ClientID,
		Partitions:        c.Audit.Partitions,
		ReplicationFactor: c.Audit.ReplicationFactor,
		RetentionMs:       c.Audit.RetentionMs,
	}
}

// JournalConfig converts to the journal package's config.
func (c *Config) JournalConfig() journal.Config {
	return journal.Config{
		Host:     c.Journal.Host,
		Port:     c.Journal.Port,
		User:     c.Journal.User,
		Password: c.Journal.Password,
		Database: c.Journal.Database,
		SSLMode:  c.Journal.SSLMode,
		MaxConns: c.Journal.MaxConns,
	}
}

// RedisConfig converts to the keystore package's Redis config.
func (c *Config) RedisConfig() keystore.RedisConfig {
	return keystore.RedisConfig{
		Addr:     c.Keystore.Redis.Addr,
		Password: c.Keystore.Redis.Password,
		DB:       c.Keystore.Redis.DB,
		Key:      c.Keystore.Redis.Key,
	}
}

// MinioConfig converts to the keystore package's Minio config.
func (c *Config) MinioConfig() keystore.MinioConfig {
	return keystore.MinioConfig{
		Endpoint:  c.Keystore.Minio.Endpoint,
		AccessKey: c.Keystore.Minio.AccessKey,
		SecretKey: c.Keystore.Minio.SecretKey,
		UseSSL:    c.Keystore.Minio.UseSSL,
		Bucket:    c.Keystore.Minio.Bucket,
		Object:    c.Keystore.Minio.Object,
	}
}

// PolicyConfig converts to the policy package's config.
func (c *Config) PolicyConfig() policy.Config {
	return policy.Config{
		MaxMemoryMB: c.Policy.MaxMemoryMB,
		Timeout:     c.Policy.Timeout,
	}
}

func defaultKeystoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wallet-pulse"
	}
	return home + "/.wallet-pulse"
}
