package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DirectoryConfig are the identity-provider credentials. BaseURL, ClientID
// and ClientSecret are required; startup fails without them.
type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Realm holds the scheduling users.
	Realm string `mapstructure:"realm"`
	// AdminRealm is the realm used to obtain admin access tokens (usually "master").
	AdminRealm   string `mapstructure:"admin_realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// BootstrapConfig carries the superadmin email allowlist, loaded once at
// startup and immutable thereafter.
type BootstrapConfig struct {
	// SuperAdmins is a comma-separated email list.
	SuperAdmins string `mapstructure:"superadmins"`
}

// SuperAdminEmails splits the configured list.
func (b BootstrapConfig) SuperAdminEmails() []string {
	if strings.TrimSpace(b.SuperAdmins) == "" {
		return nil
	}
	parts := strings.Split(b.SuperAdmins, ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: USERADMIN_
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8092")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "scheduling")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("directory.realm", "scheduling")
	v.SetDefault("directory.admin_realm", "master")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.audit_topic", "admin-audit")

	// Environment variables (e.g. DIRECTORY_BASE_URL -> directory.base_url)
	v.SetEnvPrefix("USERADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("directory.base_url", "DIRECTORY_URL")
	v.BindEnv("directory.realm", "DIRECTORY_REALM")
	v.BindEnv("directory.admin_realm", "DIRECTORY_ADMIN_REALM")
	v.BindEnv("directory.client_id", "DIRECTORY_CLIENT_ID")
	v.BindEnv("directory.client_secret", "DIRECTORY_CLIENT_SECRET")
	v.BindEnv("bootstrap.superadmins", "BOOTSTRAP_SUPERADMINS")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Missing provider credentials is a fatal startup condition.
	if cfg.Directory.BaseURL == "" || cfg.Directory.ClientID == "" || cfg.Directory.ClientSecret == "" {
		return nil, fmt.Errorf("directory base_url, client_id and client_secret are required")
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=disable"
}
