package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SCRIBE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.data_dir", typ: kString, env: "SCRIBE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Server.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "SCRIBE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "worker.max_concurrent", typ: kInt, env: "SCRIBE_WORKER_MAX_CONCURRENT",
		apply:   func(cfg *Config, v any) { cfg.Worker.MaxConcurrent = v.(int) },
		extract: func(cfg Config) any { return cfg.Worker.MaxConcurrent },
	},
	{
		key: "worker.steps", typ: kInt, env: "SCRIBE_WORKER_STEPS",
		apply:   func(cfg *Config, v any) { cfg.Worker.Steps = v.(int) },
		extract: func(cfg Config) any { return cfg.Worker.Steps },
	},
	{
		key: "worker.step_delay_min", typ: kDuration, env: "SCRIBE_WORKER_STEP_DELAY_MIN",
		apply:   func(cfg *Config, v any) { cfg.Worker.StepDelayMin = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Worker.StepDelayMin },
	},
	{
		key: "worker.step_delay_max", typ: kDuration, env: "SCRIBE_WORKER_STEP_DELAY_MAX",
		apply:   func(cfg *Config, v any) { cfg.Worker.StepDelayMax = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Worker.StepDelayMax },
	},
	{
		key: "transcribe.delay_min", typ: kDuration, env: "SCRIBE_TRANSCRIBE_DELAY_MIN",
		apply:   func(cfg *Config, v any) { cfg.Transcribe.DelayMin = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Transcribe.DelayMin },
	},
	{
		key: "transcribe.delay_max", typ: kDuration, env: "SCRIBE_TRANSCRIBE_DELAY_MAX",
		apply:   func(cfg *Config, v any) { cfg.Transcribe.DelayMax = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Transcribe.DelayMax },
	},
	{
		key: "prefs.lookup_delay_min", typ: kDuration, env: "SCRIBE_PREFS_LOOKUP_DELAY_MIN",
		apply:   func(cfg *Config, v any) { cfg.Prefs.LookupDelayMin = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Prefs.LookupDelayMin },
	},
	{
		key: "prefs.lookup_delay_max", typ: kDuration, env: "SCRIBE_PREFS_LOOKUP_DELAY_MAX",
		apply:   func(cfg *Config, v any) { cfg.Prefs.LookupDelayMax = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Prefs.LookupDelayMax },
	},
	{
		key: "prefs.cache_ttl", typ: kDuration, env: "SCRIBE_PREFS_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Prefs.CacheTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Prefs.CacheTTL },
	},
	{
		key: "classify.delay_min", typ: kDuration, env: "SCRIBE_CLASSIFY_DELAY_MIN",
		apply:   func(cfg *Config, v any) { cfg.Classify.DelayMin = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Classify.DelayMin },
	},
	{
		key: "classify.delay_max", typ: kDuration, env: "SCRIBE_CLASSIFY_DELAY_MAX",
		apply:   func(cfg *Config, v any) { cfg.Classify.DelayMax = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Classify.DelayMax },
	},
	{
		key: "classify.cache_ttl", typ: kDuration, env: "SCRIBE_CLASSIFY_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Classify.CacheTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Classify.CacheTTL },
	},
	{
		key: "classify.default_provider", typ: kString, env: "SCRIBE_CLASSIFY_DEFAULT_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Classify.DefaultProvider = v.(string) },
		extract: func(cfg Config) any { return cfg.Classify.DefaultProvider },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
