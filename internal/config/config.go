// Package config loads runtime configuration from a taskrank.yaml or
// taskrank.toml file, TASKRANK_* environment variables and CLI flags.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKRANK_PORT
const EnvPrefix = "TASKRANK"

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// RedisConfig configures the Redis task set store
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig configures the per-IP rate limiter. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ScoringConfig holds the scoring weights
type ScoringConfig struct {
	UrgencyMax        float64 `mapstructure:"urgency_max"`
	UrgencyWindowDays int     `mapstructure:"urgency_window_days"`
	NoDueDateUrgency  float64 `mapstructure:"no_due_date_urgency"`
	ImportanceMax     float64 `mapstructure:"importance_max"`
	EffortMax         float64 `mapstructure:"effort_max"`
	LeverageMax       float64 `mapstructure:"leverage_max"`
	LeverageCap       int     `mapstructure:"leverage_cap"`
	CyclePenalty      float64 `mapstructure:"cycle_penalty"`
}

// Weights converts the configuration into engine weights
func (s ScoringConfig) Weights() analysis.Weights {
	return analysis.Weights{
		UrgencyMax:        s.UrgencyMax,
		UrgencyWindowDays: s.UrgencyWindowDays,
		NoDueDateUrgency:  s.NoDueDateUrgency,
		ImportanceMax:     s.ImportanceMax,
		EffortMax:         s.EffortMax,
		LeverageMax:       s.LeverageMax,
		LeverageCap:       s.LeverageCap,
		CyclePenalty:      s.CyclePenalty,
	}
}

// Config holds all runtime configuration
type Config struct {
	Port            string          `mapstructure:"port"`
	DBPath          string          `mapstructure:"db_path"`
	Store           string          `mapstructure:"store"`
	MaxBatchSize    int             `mapstructure:"max_batch_size"`
	MaxBodyBytes    int64           `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Redis           RedisConfig     `mapstructure:"redis"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Scoring         ScoringConfig   `mapstructure:"scoring"`
}

// SetDefaults registers built-in defaults on v
func SetDefaults(v *viper.Viper) {
	w := analysis.DefaultWeights()

	v.SetDefault("port", ":8000")
	v.SetDefault("db_path", "./data/tasks.db")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("max_batch_size", 5000)
	v.SetDefault("max_body_bytes", 10<<20)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "taskrank:current_tasks")
	v.SetDefault("redis.ttl", 7*24*time.Hour)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("scoring.urgency_max", w.UrgencyMax)
	v.SetDefault("scoring.urgency_window_days", w.UrgencyWindowDays)
	v.SetDefault("scoring.no_due_date_urgency", w.NoDueDateUrgency)
	v.SetDefault("scoring.importance_max", w.ImportanceMax)
	v.SetDefault("scoring.effort_max", w.EffortMax)
	v.SetDefault("scoring.leverage_max", w.LeverageMax)
	v.SetDefault("scoring.leverage_cap", w.LeverageCap)
	v.SetDefault("scoring.cycle_penalty", w.CyclePenalty)
}

// Init prepares v to read cfgFile, or taskrank.{yaml,toml} from the working
// directory and the user's home, plus TASKRANK_* environment variables.
// A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("taskrank")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	log.Printf("Using config file: %s", v.ConfigFileUsed())
	return nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("db_path must not be empty for the sqlite store"))
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr must not be empty for the redis store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want sqlite, redis or memory)", c.Store))
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if err := c.Scoring.Weights().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Watch reloads the config file when it changes and passes every valid
// result to onChange. Invalid edits are logged and ignored. Watch does
// nothing when no config file is in use.
func Watch(v *viper.Viper, onChange func(Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(reloadHandler(v, onChange))
	v.WatchConfig()
}

func reloadHandler(v *viper.Viper, onChange func(Config)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(v)
		if err != nil {
			log.Printf("Ignoring config change in %s: %v", e.Name, err)
			return
		}
		log.Printf("Config reloaded from %s", e.Name)
		onChange(cfg)
	}
}
