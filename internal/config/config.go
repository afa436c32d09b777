// Package config loads judge settings from defaults, an optional TOML
// file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/judge/internal/xdg"
)

const AppName = "judge"

// Runtime names.
const (
	RuntimeDocker  = "docker"
	RuntimeIsolate = "isolate"
	RuntimeProcess = "process"
)

type Config struct {
	LogLevel string `toml:"log_level"`
	// LanguagesFile adds or overrides toolchains of the built-in registry.
	LanguagesFile string `toml:"languages_file"`

	Judge   Judge   `toml:"judge"`
	Sandbox Sandbox `toml:"sandbox"`
	Storage Storage `toml:"storage"`
	HTTP    HTTP    `toml:"http"`
	NATS    NATS    `toml:"nats"`
	SQS     SQS     `toml:"sqs"`
	Kafka   Kafka   `toml:"kafka"`
	Redis   Redis   `toml:"redis"`
}

type Judge struct {
	DefaultTimeLimitMs int64 `toml:"default_time_limit_ms"`
	MaxTimeLimitMs     int64 `toml:"max_time_limit_ms"`
	CompileTimeLimitMs int64 `toml:"compile_time_limit_ms"`
	DefaultMemoryKiB   int64 `toml:"default_memory_kib"`
	MaxMemoryKiB       int64 `toml:"max_memory_kib"`
	MaxProcesses       int   `toml:"max_processes"`
	TestParallelism    int   `toml:"test_parallelism"`
	MaxConcurrentJobs  int64 `toml:"max_concurrent_jobs"`
}

type Sandbox struct {
	Runtime        string  `toml:"runtime"`
	IsolateBinary  string  `toml:"isolate_binary"`
	IsolateCgroups bool    `toml:"isolate_cgroups"`
	DockerCPUs     float64 `toml:"docker_cpus"`
	DockerUser     string  `toml:"docker_user"`
	PullImages     bool    `toml:"pull_images"`
	OutputLimitKiB int64   `toml:"output_limit_kib"`
}

type Storage struct {
	WorkspaceRoot string `toml:"workspace_root"`
	// RecordDir holds zstd-compressed submission records; empty disables.
	RecordDir   string `toml:"record_dir"`
	DatabaseURL string `toml:"database_url"`
}

type HTTP struct {
	Addr      string  `toml:"addr"`
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

type NATS struct {
	URL            string `toml:"url"`
	RequestSubject string `toml:"request_subject"`
	QueueGroup     string `toml:"queue_group"`
	EventSubject   string `toml:"event_subject"`
}

type SQS struct {
	RequestQueueURL string `toml:"request_queue_url"`
	Region          string `toml:"region"`
}

type Kafka struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type Redis struct {
	Addr    string `toml:"addr"`
	Channel string `toml:"channel"`
}

// Default returns settings that work on a single machine with docker.
func Default() *Config {
	dirs := xdg.New()
	return &Config{
		LogLevel: "info",
		Judge: Judge{
			DefaultTimeLimitMs: 10_000,
			MaxTimeLimitMs:     30_000,
			CompileTimeLimitMs: 30_000,
			DefaultMemoryKiB:   256 * 1024,
			MaxMemoryKiB:       1024 * 1024,
			MaxProcesses:       64,
			TestParallelism:    1,
			MaxConcurrentJobs:  4,
		},
		Sandbox: Sandbox{
			Runtime:        RuntimeDocker,
			IsolateBinary:  "isolate",
			IsolateCgroups: true,
			DockerCPUs:     1,
			DockerUser:     "65534:65534",
			PullImages:     true,
			OutputLimitKiB: 16 * 1024,
		},
		Storage: Storage{
			WorkspaceRoot: filepath.Join(dirs.AppCacheDir(AppName), "workspaces"),
			RecordDir:     filepath.Join(dirs.AppStateDir(AppName), "submissions"),
		},
		HTTP: HTTP{
			Addr:      ":8080",
			RateLimit: 20,
			RateBurst: 40,
		},
		NATS: NATS{
			RequestSubject: "judge.requests",
			QueueGroup:     "judges",
			EventSubject:   "judge.submissions",
		},
		Kafka: Kafka{Topic: "submissions"},
		Redis: Redis{Channel: "submissions"},
	}
}

// Load builds the configuration. The file at path is used when given,
// otherwise judge/config.toml is looked up in the XDG config directories.
// A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = xdg.New().FindConfig(AppName, "config.toml")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	i64 := func(dst *int64, key string) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	num := func(dst *int, key string) {
		n := int64(*dst)
		i64(&n, key)
		*dst = int(n)
	}
	boolean := func(dst *bool, key string) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(&c.LogLevel, "JUDGE_LOG_LEVEL")
	str(&c.LanguagesFile, "JUDGE_LANGUAGES")
	i64(&c.Judge.DefaultTimeLimitMs, "JUDGE_DEFAULT_TIME_LIMIT_MS")
	i64(&c.Judge.MaxTimeLimitMs, "JUDGE_MAX_TIME_LIMIT_MS")
	i64(&c.Judge.DefaultMemoryKiB, "JUDGE_DEFAULT_MEMORY_KIB")
	num(&c.Judge.TestParallelism, "JUDGE_TEST_PARALLELISM")
	i64(&c.Judge.MaxConcurrentJobs, "JUDGE_MAX_CONCURRENT_JOBS")
	str(&c.Sandbox.Runtime, "JUDGE_RUNTIME")
	str(&c.Sandbox.IsolateBinary, "JUDGE_ISOLATE_BINARY")
	boolean(&c.Sandbox.IsolateCgroups, "JUDGE_ISOLATE_CGROUPS")
	boolean(&c.Sandbox.PullImages, "JUDGE_PULL_IMAGES")
	str(&c.Storage.WorkspaceRoot, "JUDGE_WORKSPACE_ROOT")
	str(&c.Storage.RecordDir, "JUDGE_RECORD_DIR")
	str(&c.Storage.DatabaseURL, "DATABASE_URL")
	str(&c.HTTP.Addr, "JUDGE_HTTP_ADDR")
	str(&c.NATS.URL, "NATS_URL")
	str(&c.SQS.RequestQueueURL, "SQS_REQUEST_QUEUE_URL")
	str(&c.SQS.Region, "AWS_REGION")
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	str(&c.Kafka.Topic, "KAFKA_TOPIC")
	str(&c.Redis.Addr, "REDIS_ADDR")
	str(&c.Redis.Channel, "REDIS_CHANNEL")

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Sandbox.Runtime {
	case RuntimeDocker, RuntimeIsolate, RuntimeProcess:
	default:
		errs = append(errs, fmt.Errorf("unknown sandbox runtime %q", c.Sandbox.Runtime))
	}
	if c.Judge.DefaultTimeLimitMs <= 0 {
		errs = append(errs, errors.New("default time limit must be positive"))
	}
	if c.Judge.MaxTimeLimitMs < c.Judge.DefaultTimeLimitMs {
		errs = append(errs, errors.New("max time limit is below the default"))
	}
	if c.Judge.MaxMemoryKiB < c.Judge.DefaultMemoryKiB {
		errs = append(errs, errors.New("max memory is below the default"))
	}
	if c.Storage.WorkspaceRoot == "" {
		errs = append(errs, errors.New("workspace root is empty"))
	}
	return errors.Join(errs...)
}

func (j Judge) DefaultTimeLimit() time.Duration {
	return time.Duration(j.DefaultTimeLimitMs) * time.Millisecond
}

func (j Judge) MaxTimeLimit() time.Duration {
	return time.Duration(j.MaxTimeLimitMs) * time.Millisecond
}

func (j Judge) CompileTimeLimit() time.Duration {
	return time.Duration(j.CompileTimeLimitMs) * time.Millisecond
}
