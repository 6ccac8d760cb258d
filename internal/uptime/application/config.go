package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	uptime "store-monitor/internal/uptime/domain"
)

// Job store backends.
const (
	JobStoreMemory   = "memory"
	JobStorePostgres = "postgres"
	JobStoreRedis    = "redis"
)

// Artifact backends.
const (
	ArtifactFS = "fs"
	ArtifactS3 = "s3"
)

// Config is the process configuration.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	DatabaseURL string `yaml:"database_url"`

	DataDir       string `yaml:"data_dir"`
	StatusFile    string `yaml:"status_file"`
	HoursFile     string `yaml:"hours_file"`
	TimezonesFile string `yaml:"timezones_file"`
	SkipIngest    bool   `yaml:"skip_ingest"`

	JobStore string `yaml:"job_store"`
	RedisURL string `yaml:"redis_url"`

	Artifacts ArtifactConfig `yaml:"artifacts"`

	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	StoreParallelism int           `yaml:"store_parallelism"`
	DailyAt          string        `yaml:"daily_at"`
	WebhookURL       string        `yaml:"webhook_url"`
	PublicBaseURL    string        `yaml:"public_base_url"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`

	AuthSecret string `yaml:"-"`

	Policy uptime.Policy `yaml:"policy"`
}

// ArtifactConfig selects where finished reports are stored.
type ArtifactConfig struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Region   string `yaml:"s3_region"`
}

// LoadConfig reads the environment and, when STORE_MONITOR_CONFIG is set,
// overlays the YAML file on top. Keys absent from the file keep their env value.
func LoadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:   getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
		DataDir:       getenvDefault("DATA_DIR", "data"),
		StatusFile:    getenvDefault("STATUS_FILE", "store_status.csv"),
		HoursFile:     getenvDefault("HOURS_FILE", "menu_hours.csv"),
		TimezonesFile: getenvDefault("TIMEZONES_FILE", "timezones.csv"),
		SkipIngest:    getenvBool("SKIP_INGEST", false),
		JobStore:      os.Getenv("JOB_STORE"),
		RedisURL:      os.Getenv("REDIS_URL"),
		Artifacts: ArtifactConfig{
			Backend:    getenvDefault("ARTIFACT_BACKEND", ArtifactFS),
			Dir:        getenvDefault("REPORTS_DIR", "reports"),
			S3Bucket:   os.Getenv("S3_BUCKET"),
			S3Prefix:   os.Getenv("S3_PREFIX"),
			S3Endpoint: os.Getenv("S3_ENDPOINT"),
			S3Region:   os.Getenv("S3_REGION"),
		},
		Workers:          getenvInt("REPORT_WORKERS", 4),
		QueueSize:        getenvInt("REPORT_QUEUE_SIZE", 64),
		StoreParallelism: getenvInt("REPORT_STORE_PARALLELISM", runtime.NumCPU()),
		DailyAt:          os.Getenv("REPORT_DAILY_AT"),
		WebhookURL:       os.Getenv("REPORT_WEBHOOK_URL"),
		PublicBaseURL:    getenvDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		ShutdownTimeout:  getenvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		AuthSecret:       os.Getenv("AUTH_JWT_SECRET"),
		Policy:           policyFromEnv(),
	}

	if path := os.Getenv("STORE_MONITOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if cfg.JobStore == "" {
		cfg.JobStore = JobStoreMemory
		if cfg.DatabaseURL != "" {
			cfg.JobStore = JobStorePostgres
		}
	}
	return cfg, cfg.Validate()
}

func policyFromEnv() uptime.Policy {
	defaults := uptime.DefaultPolicy()
	return uptime.Policy{
		FallbackTimezone:  getenvDefault("FALLBACK_TIMEZONE", defaults.FallbackTimezone),
		DefaultStatus:     uptime.Status(strings.ToLower(getenvDefault("DEFAULT_STATUS", string(defaults.DefaultStatus)))),
		DefaultOpenAllDay: getenvBool("DEFAULT_OPEN_ALL_DAY", defaults.DefaultOpenAllDay),
		InvalidTimezone:   uptime.TimezonePolicy(getenvDefault("INVALID_TIMEZONE_POLICY", string(defaults.InvalidTimezone))),
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.JobStore {
	case JobStoreMemory:
	case JobStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: postgres job store requires DATABASE_URL")
		}
	case JobStoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: redis job store requires REDIS_URL")
		}
	default:
		return fmt.Errorf("config: unknown job store %q", c.JobStore)
	}
	switch c.Artifacts.Backend {
	case ArtifactFS:
		if c.Artifacts.Dir == "" {
			return errors.New("config: reports dir required")
		}
	case ArtifactS3:
		if c.Artifacts.S3Bucket == "" {
			return errors.New("config: s3 artifact backend requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("config: unknown artifact backend %q", c.Artifacts.Backend)
	}
	if c.DailyAt != "" {
		if _, _, err := parseDailyAt(c.DailyAt); err != nil {
			return fmt.Errorf("config: REPORT_DAILY_AT: %w", err)
		}
	}
	return c.Policy.Validate(nil)
}

// DataPath returns the path of an input file under DataDir.
func (c Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
