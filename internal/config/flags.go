package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagModelDir = flag.String("model-dir", "", "Directory models are resolved against")
	flagModel    = flag.String("model", "", "Model shown for the local viewer")
	flagNoWatch  = flag.Bool("no-watch", false, "Disable model directory hot reload")
	flagVerify   = flag.Bool("verify", false, "Fail loads that leave resources unused")
	flagWidth    = flag.Int("width", 0, "Window width")
	flagHeight   = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModelDir != "" {
		cfg.Models.Dir = *flagModelDir
	}
	if *flagModel != "" {
		cfg.Models.Default = *flagModel
	}
	if *flagNoWatch {
		cfg.Models.Watch = false
	}
	if *flagVerify {
		cfg.Models.VerifyResources = true
	}
	if *flagWidth > 0 {
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Viewer.Height = *flagHeight
	}
}
