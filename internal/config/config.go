package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Worker     WorkerConfig
	Transcribe TranscribeConfig
	Prefs      PrefsConfig
	Classify   ClassifyConfig
}

type ServerConfig struct {
	Port    int
	DataDir string
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	MaxConcurrent int
	Steps         int
	StepDelayMin  time.Duration
	StepDelayMax  time.Duration
}

type TranscribeConfig struct {
	DelayMin time.Duration
	DelayMax time.Duration
}

type PrefsConfig struct {
	LookupDelayMin time.Duration
	LookupDelayMax time.Duration
	CacheTTL       time.Duration
}

type ClassifyConfig struct {
	DelayMin        time.Duration
	DelayMax        time.Duration
	CacheTTL        time.Duration
	DefaultProvider string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4500,
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Worker: WorkerConfig{
			MaxConcurrent: 32,
			Steps:         3,
			StepDelayMin:  300 * time.Millisecond,
			StepDelayMax:  time.Second,
		},
		Transcribe: TranscribeConfig{
			DelayMin: 2 * time.Second,
			DelayMax: 6 * time.Second,
		},
		Prefs: PrefsConfig{
			LookupDelayMin: time.Second,
			LookupDelayMax: 3 * time.Second,
			CacheTTL:       24 * time.Hour,
		},
		Classify: ClassifyConfig{
			DelayMin:        100 * time.Millisecond,
			DelayMax:        400 * time.Millisecond,
			CacheTTL:        24 * time.Hour,
			DefaultProvider: "openai",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "scribe-data"
		}
	}
	return filepath.Join(dir, "scribe")
}

// Load reads configuration from defaults, an optional .env file in the
// working directory, and SCRIBE_* environment variables (which always
// win). Malformed env values warn and keep the default.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	switch cfg.Classify.DefaultProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid classify.default_provider %q", cfg.Classify.DefaultProvider)
	}
	for _, d := range []struct {
		name     string
		min, max time.Duration
	}{
		{"worker.step_delay", cfg.Worker.StepDelayMin, cfg.Worker.StepDelayMax},
		{"transcribe.delay", cfg.Transcribe.DelayMin, cfg.Transcribe.DelayMax},
		{"prefs.lookup_delay", cfg.Prefs.LookupDelayMin, cfg.Prefs.LookupDelayMax},
		{"classify.delay", cfg.Classify.DelayMin, cfg.Classify.DelayMax},
	} {
		if d.min < 0 || d.max < d.min {
			return fmt.Errorf("invalid %s range: min %v, max %v", d.name, d.min, d.max)
		}
	}
	return nil
}
