package config

import (
	"flag"
	"os"
	"time"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gateway base URL (default from Config)
//	-t int      read request timeout in seconds (default from Config)
//	-sound      enable/disable audible cues
//	-strict     block on not-matched scans until acknowledged
//	-c string   path to a JSON config file (consumed by parseJson)
func parseFlags(cfg *Config) {
	parseFlagArgs(cfg, os.Args[1:])
}

func parseFlagArgs(cfg *Config, args []string) {
	fs := flag.NewFlagSet("scanner", flag.ContinueOnError)

	fs.StringVar(&cfg.GatewayBaseURL, "a", cfg.GatewayBaseURL, "gateway base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "read request timeout (in seconds)")
	fs.BoolVar(&cfg.SoundAlerts, "sound", cfg.SoundAlerts, "audible scan cues")
	fs.BoolVar(&cfg.StrictMatchAlert, "strict", cfg.StrictMatchAlert, "block on not-matched scans")

	// declared so a -c/-config on the command line does not fail parsing;
	// the value itself is consumed by parseJson
	var configPath string
	fs.StringVar(&configPath, "c", "", "path to JSON config file")
	fs.StringVar(&configPath, "config", "", "path to JSON config file (long)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
