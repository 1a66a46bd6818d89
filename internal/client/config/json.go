package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// written in whole units to keep the file human-editable:
//
//	{
//	  "gateway_base_url": "https://tracker.example.com",
//	  "request_timeout_s": 10,
//	  "sound_alerts": true,
//	  "strict_match_alert": false,
//	  "debounce_ms": 300
//	}
type JsonConfig struct {
	GatewayBaseURL   *string `json:"gateway_base_url"`
	RequestTimeoutS  *int    `json:"request_timeout_s"`
	SoundAlerts      *bool   `json:"sound_alerts"`
	StrictMatchAlert *bool   `json:"strict_match_alert"`
	DebounceMs       *int    `json:"debounce_ms"`
}

// jsonConfigPath extracts the config file path given via -c or -config,
// without disturbing flags owned by parseFlags.
func jsonConfigPath(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		for _, name := range []string{"-c", "--c", "-config", "--config"} {
			if arg == name && i+1 < len(args) {
				return args[i+1]
			}
			if strings.HasPrefix(arg, name+"=") {
				return strings.TrimPrefix(arg, name+"=")
			}
		}
	}
	return ""
}

// parseJson overlays cfg with values loaded from a JSON file, if one was
// named on the command line. Absent fields leave the current value in place.
// Read or unmarshal errors panic; the console has no useful way to continue
// from a config file the operator pointed at but that cannot be read.
func parseJson(cfg *Config) {
	jsonConfigFile := jsonConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	applyJson(cfg, &jc)
}

func applyJson(cfg *Config, jc *JsonConfig) {
	if jc.GatewayBaseURL != nil {
		cfg.GatewayBaseURL = *jc.GatewayBaseURL
	}
	if jc.RequestTimeoutS != nil {
		cfg.RequestTimeout = time.Duration(*jc.RequestTimeoutS) * time.Second
	}
	if jc.SoundAlerts != nil {
		cfg.SoundAlerts = *jc.SoundAlerts
	}
	if jc.StrictMatchAlert != nil {
		cfg.StrictMatchAlert = *jc.StrictMatchAlert
	}
	if jc.DebounceMs != nil {
		cfg.DebounceWindow = time.Duration(*jc.DebounceMs) * time.Millisecond
	}
}
