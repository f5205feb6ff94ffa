/*
Package config loads the process-wide bot manager configuration.

Configuration is read once at startup via viper, environment-first with
sensible defaults. Both BOT_MANAGER_* prefixed variables and the unprefixed
names used by the existing deployment (DOCKER_NETWORK, BOT_IMAGE_NAME,
REDIS_URL, DEVICE_TYPE, WHISPER_LIVE_GPU_URL, WHISPER_LIVE_CPU_URL,
LOG_LEVEL, DATABASE_URL) are honored. An optional YAML config file can be
supplied on the command line.
*/
package config
