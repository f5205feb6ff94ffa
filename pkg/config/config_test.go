package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "vexa_vexa_default", cfg.Network)
	assert.Equal(t, "vexa-bot:dev", cfg.BotImage)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "cuda", cfg.DeviceType)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 1, cfg.DefaultBotLimit)
	assert.Equal(t, "", cfg.DatabaseURL)
}

func TestLoadDeploymentEnvNames(t *testing.T) {
	t.Setenv("DOCKER_NETWORK", "prod_overlay")
	t.Setenv("BOT_IMAGE_NAME", "vexa-bot:1.2.3")
	t.Setenv("DEVICE_TYPE", "CPU")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "prod_overlay", cfg.Network)
	assert.Equal(t, "vexa-bot:1.2.3", cfg.BotImage)
	// Device type is normalized to lower case.
	assert.Equal(t, "cpu", cfg.DeviceType)
}

func TestLoadPrefixedEnvNames(t *testing.T) {
	t.Setenv("BOT_MANAGER_REDIS_URL", "redis://bus:6379/1")
	t.Setenv("BOT_MANAGER_DEFAULT_BOT_LIMIT", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis://bus:6379/1", cfg.RedisURL)
	assert.Equal(t, 5, cfg.DefaultBotLimit)
}

func TestWhisperLiveURLSelection(t *testing.T) {
	tests := []struct {
		name       string
		deviceType string
		want       string
	}{
		{name: "cuda selects accelerated", deviceType: "cuda", want: "ws://whisperlive:9090"},
		{name: "cpu selects non-accelerated", deviceType: "cpu", want: "ws://whisperlive-cpu:9092"},
		{name: "unknown falls back to cpu", deviceType: "tpu", want: "ws://whisperlive-cpu:9092"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DeviceType:        tt.deviceType,
				WhisperLiveGPUURL: "ws://whisperlive:9090",
				WhisperLiveCPUURL: "ws://whisperlive-cpu:9092",
			}
			assert.Equal(t, tt.want, cfg.WhisperLiveURL())
		})
	}
}
