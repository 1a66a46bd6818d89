package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names. A .env file in the working directory is loaded
// first, system environment winning over it (godotenv.Load never overrides
// variables that are already set).
const (
	envGatewayURL  = "PACKTRACK_GATEWAY_URL"
	envSoundAlerts = "PACKTRACK_SOUND_ALERTS"
	envStrictAlert = "PACKTRACK_STRICT_MATCH_ALERT"
)

func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(envGatewayURL); v != "" {
		cfg.GatewayBaseURL = v
	}
	if v := os.Getenv(envSoundAlerts); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SoundAlerts = b
		}
	}
	if v := os.Getenv(envStrictAlert); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictMatchAlert = b
		}
	}
}
