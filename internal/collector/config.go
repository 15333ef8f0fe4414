package collector

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the AGENTWARD_ prefix
// (e.g. "db_path" → AGENTWARD_DB_PATH) and to a YAML field in an
// optional collector config file.
const (
	KeyListenAddr = "listen_addr"
	KeyDBPath     = "db_path"
	KeyAPIKey     = "api_key"
	KeyLogLevel   = "log_level"
)

// Defaults for the collector process.
const (
	DefaultListenAddr = ":8000"
	DefaultDBPath     = "agentward.db"
	DefaultLogLevel   = "info"
)

// Config holds operator-level collector configuration.
type Config struct {
	ListenAddr string
	DBPath     string
	APIKey     string
	LogLevel   string
}

// LoadConfig resolves collector configuration from env vars and an
// optional config file path.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGENTWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyListenAddr, DefaultListenAddr)
	v.SetDefault(KeyDBPath, DefaultDBPath)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("collector: read config: %w", err)
		}
	}

	return &Config{
		ListenAddr: v.GetString(KeyListenAddr),
		DBPath:     v.GetString(KeyDBPath),
		APIKey:     v.GetString(KeyAPIKey),
		LogLevel:   v.GetString(KeyLogLevel),
	}, nil
}
