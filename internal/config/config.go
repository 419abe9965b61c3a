package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Chat          ChatConfig          `mapstructure:"chat"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Log           LogConfig           `mapstructure:"log"`
	Stub          StubConfig          `mapstructure:"stub"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	// Assistant selects the conversational /chat endpoint; when false the
	// client uses the plain /parse-message flow.
	Assistant bool   `mapstructure:"assistant"`
	Timezone  string `mapstructure:"timezone"`
}

type NotificationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StubConfig struct {
	Port int `mapstructure:"port"`
}

var cfg *Config

// Load reads the YAML config at configPath, layering RAPPEL_* environment
// variables on top. A missing file is not an error: the defaults plus the
// environment are enough to run the client.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RAPPEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("chat.assistant", true)
	v.SetDefault("chat.timezone", "Europe/Paris")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("stub.port", 8000)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Config file first; environment fallbacks when it leaves the URL unset.
	if cfg.API.BaseURL == "" {
		if url := os.Getenv("BACKEND_URL"); url != "" {
			cfg.API.BaseURL = url
		} else {
			cfg.API.BaseURL = "http://localhost:8000"
		}
	}

	return cfg, nil
}

func Get() *Config {
	return cfg
}
