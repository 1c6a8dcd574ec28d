package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	Log         LogConfig
	Engine      EngineConfig
	Dispatch    DispatchConfig
	Notify      NotifyConfig
	Drafts      DraftsConfig
	Credentials CredentialsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Type            string        // "local" or "s3"
	BaseDir         string        // For local: "./artifacts"
	S3Bucket        string        // For S3: bucket name
	S3Region        string        // For S3: AWS region
	S3PresignExpiry time.Duration // Presigned URL expiration
}

// LogConfig holds logging configuration. File is optional; when set, logs
// are duplicated to a rotated file.
type LogConfig struct {
	Level          string
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
	FileCompress   bool
}

// EngineConfig holds automation engine configuration. APIKey is the default
// engine key used when a run names no credential.
type EngineConfig struct {
	ScriptPath string
	PythonBin  string
	APIKey     string
}

// DispatchConfig holds run dispatch configuration.
type DispatchConfig struct {
	Workers     int
	ItemWorkers int
	RunTimeout  time.Duration
}

// NotifyConfig holds failure notification configuration.
type NotifyConfig struct {
	Provider   string
	Credential string
}

// DraftsConfig holds AI command drafting configuration. An empty region
// disables drafting.
type DraftsConfig struct {
	BedrockRegion string
	BedrockModel  string
	MaxTokens     int
}

// CredentialsConfig holds the at-rest encryption configuration.
type CredentialsConfig struct {
	MasterPassphrase string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "automation_bridge")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_max_size_mb", 100)
	v.SetDefault("log.file_max_backups", 3)
	v.SetDefault("log.file_max_age_days", 28)
	v.SetDefault("log.file_compress", true)

	v.SetDefault("engine.script_path", "/app/engine/automation_engine.py")
	v.SetDefault("engine.python_bin", "")
	v.SetDefault("engine.api_key", "")

	v.SetDefault("dispatch.workers", 1)
	v.SetDefault("dispatch.item_workers", 1)
	v.SetDefault("dispatch.run_timeout", "30m")

	v.SetDefault("notify.provider", "none")
	v.SetDefault("notify.credential", "")

	v.SetDefault("drafts.bedrock_region", "")
	v.SetDefault("drafts.bedrock_model", "anthropic.claude-sonnet-4-6")
	v.SetDefault("drafts.max_tokens", 1024)

	v.SetDefault("credentials.master_passphrase", "change-this-passphrase-in-production")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	// Parse configuration
	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.Log.Level = v.GetString("log.level")
	config.Log.File = v.GetString("log.file")
	config.Log.FileMaxSizeMB = v.GetInt("log.file_max_size_mb")
	config.Log.FileMaxBackups = v.GetInt("log.file_max_backups")
	config.Log.FileMaxAgeDays = v.GetInt("log.file_max_age_days")
	config.Log.FileCompress = v.GetBool("log.file_compress")

	config.Engine.ScriptPath = v.GetString("engine.script_path")
	config.Engine.PythonBin = v.GetString("engine.python_bin")
	config.Engine.APIKey = v.GetString("engine.api_key")

	config.Dispatch.Workers = v.GetInt("dispatch.workers")
	config.Dispatch.ItemWorkers = v.GetInt("dispatch.item_workers")
	config.Dispatch.RunTimeout = v.GetDuration("dispatch.run_timeout")

	config.Notify.Provider = v.GetString("notify.provider")
	config.Notify.Credential = v.GetString("notify.credential")

	config.Drafts.BedrockRegion = v.GetString("drafts.bedrock_region")
	config.Drafts.BedrockModel = v.GetString("drafts.bedrock_model")
	config.Drafts.MaxTokens = v.GetInt("drafts.max_tokens")

	config.Credentials.MasterPassphrase = v.GetString("credentials.master_passphrase")

	return &config, nil
}
