// Package settings binds the lifecycle layer's configuration inputs
// (§6) via spf13/viper — environment variables and an optional
// portal.yaml — the same library the teacher uses for its own
// internal/config.Config (DESIGN.md).
package settings

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings covers every §6 lifecycle input plus the process-level
// settings (log level/format, metrics listen address) the teacher
// always adds alongside its own domain settings.
type Settings struct {
	DBFolder            string `mapstructure:"db_folder"`
	AdminAPIURL         string `mapstructure:"admin_api_url"`
	XMPPDomain          string `mapstructure:"xmpp_domain"`
	MucService          string `mapstructure:"muc_service"`
	Env                 string `mapstructure:"env"`
	DefaultTestPassword string `mapstructure:"default_test_password"`
	ManagedMucOptions   map[string]string `mapstructure:"managed_muc_options"`
	SyncTimeoutS        int    `mapstructure:"sync_timeout_s"`
	AdminConsoleURL     string `mapstructure:"admin_console_url"`

	LogLevel   string `mapstructure:"log_level"`
	LogFormat  string `mapstructure:"log_format"`
	LogOutput  string `mapstructure:"log_output"`
	LogFile    string `mapstructure:"log_file"`

	MetricsListenAddr string `mapstructure:"metrics_listen_addr"`
}

// SyncTimeout returns SyncTimeoutS as a time.Duration, per §4.7's
// `syncTimeoutS * 1000`.
func (s Settings) SyncTimeout() time.Duration {
	return time.Duration(s.SyncTimeoutS) * time.Second
}

// Load reads portal.yaml (if present) from configPath and env vars
// prefixed PORTAL_, applying defaults for everything an operator
// hasn't set.
func Load(configPath string) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()

	applyDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Settings{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return s, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("db_folder", "./data")
	v.SetDefault("admin_api_url", "http://localhost:5443/api")
	v.SetDefault("xmpp_domain", "example.org")
	v.SetDefault("muc_service", "conference.example.org")
	v.SetDefault("env", "dev")
	v.SetDefault("default_test_password", "test-password")
	v.SetDefault("managed_muc_options", map[string]string{
		"persistent":     "true",
		"public":         "false",
		"allow_subscription": "true",
	})
	v.SetDefault("sync_timeout_s", 30)
	v.SetDefault("admin_console_url", "http://localhost:5443/admin")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_output", "stdout")
	v.SetDefault("log_file", "")

	v.SetDefault("metrics_listen_addr", ":9090")
}
