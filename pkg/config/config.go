package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, read once at startup. The
// original deployment drives everything through environment variables, so
// env is the primary source; a config file is optional.
type Config struct {
	// Network is the overlay network every bot attaches to. The workload
	// name doubles as its alias on this network.
	Network string `mapstructure:"network"`

	// BotImage is the image reference for spawned bot workloads.
	BotImage string `mapstructure:"bot_image"`

	// RedisURL is the message-bus endpoint handed to every bot in its
	// configuration payload.
	RedisURL string `mapstructure:"redis_url"`

	// DeviceType selects the transcription backend: "cuda" routes to the
	// accelerated endpoint, anything else to the CPU endpoint.
	DeviceType string `mapstructure:"device_type"`

	// WhisperLiveGPUURL and WhisperLiveCPUURL are the two transcription
	// backend endpoints.
	WhisperLiveGPUURL string `mapstructure:"whisper_live_gpu_url"`
	WhisperLiveCPUURL string `mapstructure:"whisper_live_cpu_url"`

	// LogLevel is passed through to spawned bots and used for our own
	// logger.
	LogLevel string `mapstructure:"log_level"`

	// ContainerdAddress is the platform socket the orchestration adapter
	// connects to.
	ContainerdAddress string `mapstructure:"containerd_address"`

	// DataDir holds the embedded store when no DatabaseURL is set.
	DataDir string `mapstructure:"data_dir"`

	// DatabaseURL, when set, selects the Postgres store instead of the
	// embedded one.
	DatabaseURL string `mapstructure:"database_url"`

	// DefaultBotLimit is the quota assigned to lazily created users.
	DefaultBotLimit int `mapstructure:"default_bot_limit"`

	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", "vexa_vexa_default")
	v.SetDefault("bot_image", "vexa-bot:dev")
	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("device_type", "cuda")
	v.SetDefault("whisper_live_gpu_url", "ws://whisperlive:9090")
	v.SetDefault("whisper_live_cpu_url", "ws://whisperlive-cpu:9092")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("containerd_address", "/run/containerd/containerd.sock")
	v.SetDefault("data_dir", "./bot-manager-data")
	v.SetDefault("database_url", "")
	v.SetDefault("default_bot_limit", 1)
	v.SetDefault("metrics_addr", ":9090")
}

// Load reads configuration from the environment (BOT_MANAGER_* variables,
// plus the unprefixed names the deployment already uses) and an optional
// config file path.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT_MANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed aliases matching the historical deployment environment.
	for key, env := range map[string]string{
		"network":              "DOCKER_NETWORK",
		"bot_image":            "BOT_IMAGE_NAME",
		"redis_url":            "REDIS_URL",
		"device_type":          "DEVICE_TYPE",
		"whisper_live_gpu_url": "WHISPER_LIVE_GPU_URL",
		"whisper_live_cpu_url": "WHISPER_LIVE_CPU_URL",
		"log_level":            "LOG_LEVEL",
		"containerd_address":   "CONTAINERD_ADDRESS",
		"database_url":         "DATABASE_URL",
	} {
		if err := v.BindEnv(key, "BOT_MANAGER_"+strings.ToUpper(key), env); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.DeviceType = strings.ToLower(cfg.DeviceType)
	return &cfg, nil
}

// WhisperLiveURL returns the transcription backend endpoint for the
// configured device type.
func (c *Config) WhisperLiveURL() string {
	if c.DeviceType == "cuda" {
		return c.WhisperLiveGPUURL
	}
	return c.WhisperLiveCPUURL
}
