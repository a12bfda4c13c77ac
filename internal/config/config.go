package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "sdam.cfg.json"

// SQLiteConfig holds settings for the in-memory SQLite mark store.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebsocketConfig holds settings for the websocket mark mirror.
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the mark store backend.
type StorageConfig struct {
	Type      string
	SQLite    SQLiteConfig
	Websocket WebsocketConfig
}

// APIConfig holds the document server settings. An empty ServerURL disables uploads.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// MonitorConfig holds display poll settings.
type MonitorConfig struct {
	Interval   time.Duration
	StatusFile string
}

// SessionConfig holds shell-level seek presets and notification settings.
type SessionConfig struct {
	SeekShortSeconds uint
	SeekLongSeconds  uint
	DesktopNotify    bool
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./sdamlogs")
	viper.SetDefault("logMaxSizeMB", 50)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/marks")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "sdam")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "sdam")
	viper.SetDefault("influx.bucket", "sdam_sessions")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "sdam")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("notify.desktop", false)

	viper.SetDefault("session.seekShortSeconds", 5)
	viper.SetDefault("session.seekLongSeconds", 60)
}

// Load sets defaults and reads sdam.cfg.json from configDir.
// Defaults stay in effect when the file cannot be read.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the mark store settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Websocket: WebsocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetAPIConfig returns the document server settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetMonitorConfig returns the display poll settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetSessionConfig returns the shell-level session settings.
func GetSessionConfig() SessionConfig {
	return SessionConfig{
		SeekShortSeconds: viper.GetUint("session.seekShortSeconds"),
		SeekLongSeconds:  viper.GetUint("session.seekLongSeconds"),
		DesktopNotify:    viper.GetBool("notify.desktop"),
	}
}
