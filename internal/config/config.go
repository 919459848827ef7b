// Package config loads cmd/replayer's runtime settings — log level, the
// default workchain new accounts are assumed to live on, and the metrics
// listen address — from replayer.yaml with environment overrides, in the
// same viper/godotenv idiom as walletserver/config/config.go's .env loading
// and cmd/cli/energy_efficiency.go's viper.GetString lookups.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings are the CLI's tunables. Never reaches package replay or
// txdriver — those take an explicit runtimectx.RuntimeContext instead.
type Settings struct {
	LogLevel         string
	DefaultWorkchain int32
	MetricsAddr      string
}

func defaults() Settings {
	return Settings{
		LogLevel:         "info",
		DefaultWorkchain: 0,
		MetricsAddr:      "",
	}
}

// Load reads replayer.yaml (if present) at path, overlays a .env file (if
// present) from the working directory, then lets REPLAYER_-prefixed environment
// variables win over both — the same file-then-env precedence
// walletserver/config/config.go applies, generalized to a full settings
// struct via viper instead of bare os.Getenv calls.
func Load(path string) (Settings, error) {
	s := defaults()

	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPLAYER")
	v.AutomaticEnv()

	v.SetDefault("log_level", s.LogLevel)
	v.SetDefault("default_workchain", s.DefaultWorkchain)
	v.SetDefault("metrics_addr", s.MetricsAddr)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	s.LogLevel = v.GetString("log_level")
	s.DefaultWorkchain = int32(v.GetInt("default_workchain"))
	s.MetricsAddr = v.GetString("metrics_addr")
	return s, nil
}
