package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.GatewayBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.SoundAlerts)
	assert.False(t, cfg.StrictMatchAlert)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceWindow)
}

func TestParseFlagArgs_Overrides(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	parseFlagArgs(cfg, []string{"-a", "https://tracker.example.com", "-t", "5", "-sound=false", "-strict"})

	assert.Equal(t, "https://tracker.example.com", cfg.GatewayBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.SoundAlerts)
	assert.True(t, cfg.StrictMatchAlert)
}

func TestParseFlagArgs_KeepsDefaultsWhenAbsent(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	parseFlagArgs(cfg, nil)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.GatewayBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}
