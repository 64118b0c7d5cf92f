package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
)

func loadDefaults(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	cfg := loadDefaults(t)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Port", cfg.Port, ":8000"},
		{"DBPath", cfg.DBPath, "./data/tasks.db"},
		{"Store", cfg.Store, StoreSQLite},
		{"MaxBatchSize", cfg.MaxBatchSize, 5000},
		{"MaxBodyBytes", cfg.MaxBodyBytes, int64(10 << 20)},
		{"ShutdownTimeout", cfg.ShutdownTimeout, 10 * time.Second},
		{"Redis.Addr", cfg.Redis.Addr, "localhost:6379"},
		{"Redis.TTL", cfg.Redis.TTL, 7 * 24 * time.Hour},
		{"RateLimit.Requests", cfg.RateLimit.Requests, 120},
		{"RateLimit.Window", cfg.RateLimit.Window, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if diff := cmp.Diff([]string{"*"}, cfg.CORS.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(analysis.DefaultWeights(), cfg.Scoring.Weights()); diff != "" {
		t.Errorf("default weights mismatch (-want +got):\n%s", diff)
	}
}

func TestInit_EnvOverrides(t *testing.T) {
	t.Setenv("TASKRANK_PORT", ":9090")
	t.Setenv("TASKRANK_STORE", "memory")
	t.Setenv("TASKRANK_REDIS_TTL", "90s")
	t.Setenv("TASKRANK_SCORING_CYCLE_PENALTY", "25")
	t.Setenv("TASKRANK_CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://tasks.example.com")

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != ":9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q", cfg.Store)
	}
	if cfg.Redis.TTL != 90*time.Second {
		t.Errorf("Redis.TTL = %v", cfg.Redis.TTL)
	}
	if cfg.Scoring.CyclePenalty != 25 {
		t.Errorf("CyclePenalty = %v", cfg.Scoring.CyclePenalty)
	}
	if diff := cmp.Diff([]string{"http://localhost:3000", "https://tasks.example.com"}, cfg.CORS.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestInit_ConfigFile(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"taskrank.yaml": "store: memory\nscoring:\n  importance_max: 50\nrate_limit:\n  window: 30s\n",
		"taskrank.toml": "store = \"memory\"\n[scoring]\nimportance_max = 50\n[rate_limit]\nwindow = \"30s\"\n",
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			v := viper.New()
			if err := Init(v, path); err != nil {
				t.Fatalf("Init: %v", err)
			}
			cfg, err := Load(v)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Store != StoreMemory || cfg.Scoring.ImportanceMax != 50 || cfg.RateLimit.Window != 30*time.Second {
				t.Errorf("config = %+v", cfg)
			}
			if cfg.Scoring.EffortMax != analysis.DefaultWeights().EffortMax {
				t.Errorf("unset weight lost its default: %v", cfg.Scoring.EffortMax)
			}
		})
	}
}

func TestInit_MissingExplicitFile(t *testing.T) {
	t.Parallel()
	v := viper.New()
	if err := Init(v, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a config file that does not exist")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store = "postgres" }, `unknown store "postgres"`},
		{"empty port", func(c *Config) { c.Port = "" }, "port must not be empty"},
		{"sqlite without path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"redis without addr", func(c *Config) { c.Store = StoreRedis; c.Redis.Addr = "" }, "redis.addr"},
		{"rate limit window", func(c *Config) { c.RateLimit.Window = 0 }, "rate_limit.window"},
		{"disabled rate limit", func(c *Config) { c.RateLimit.Requests = 0; c.RateLimit.Window = 0 }, ""},
		{"negative weight", func(c *Config) { c.Scoring.EffortMax = -1 }, "effort max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestReloadHandler(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "taskrank.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  cycle_penalty: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	if err := Init(v, path); err != nil {
		t.Fatal(err)
	}

	var got []Config
	handle := reloadHandler(v, func(cfg Config) { got = append(got, cfg) })

	v.Set("scoring.cycle_penalty", 20)
	handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if len(got) != 1 || got[0].Scoring.CyclePenalty != 20 {
		t.Fatalf("reload results = %+v", got)
	}

	handle(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	if len(got) != 1 {
		t.Error("chmod events should not trigger a reload")
	}

	v.Set("scoring.cycle_penalty", -5)
	handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if len(got) != 1 {
		t.Error("invalid config should not reach onChange")
	}
}
