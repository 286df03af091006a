package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel  string
	Harness   HarnessConfig
	Inventory InventoryConfig
	Report    ReportConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Neo4j     Neo4jConfig
	Valkey    ValkeyConfig
	MinIO     MinIOConfig
	S3        S3Config
	MCP       MCPConfig
	Scheduler SchedulerConfig
}

type HarnessConfig struct {
	APIKey    string // HARNESS_API_KEY
	AccountID string // HARNESS_ACCOUNT_ID
	BaseURL   string
	Timeout   time.Duration
	PageSize  int
	// ExecutionPageSize bounds how many recent executions feed build time stats.
	ExecutionPageSize int
	TemplateCacheSize int
	TemplateCacheTTL  time.Duration
}

// Validate reports missing credentials.
func (h HarnessConfig) Validate() error {
	var errs []error
	if h.APIKey == "" {
		errs = append(errs, errors.New("HARNESS_API_KEY is required"))
	}
	if h.AccountID == "" {
		errs = append(errs, errors.New("HARNESS_ACCOUNT_ID is required"))
	}
	return errors.Join(errs...)
}

type InventoryConfig struct {
	Concurrency  int
	OnlyPipeline string
	// Trace logs every visited stage and template at debug level.
	Trace      bool
	BuildTimes bool
}

type ReportConfig struct {
	OutputDir string
	Workbook  string
	// Upload selects where exports are published: "", "minio" or "s3".
	Upload string
	Prefix string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Config struct {
	Region   string // S3_REGION
	Bucket   string // S3_BUCKET
	Prefix   string // S3_PREFIX (optional default prefix)
	Endpoint string // S3_ENDPOINT (for MinIO/LocalStack compatibility)
}

type MCPConfig struct {
	Addr string
}

type SchedulerConfig struct {
	Interval time.Duration
	// RunOnStart enqueues a run immediately instead of waiting one interval.
	RunOnStart bool
}

func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Harness: HarnessConfig{
			APIKey:            getEnv("HARNESS_API_KEY", ""),
			AccountID:         getEnv("HARNESS_ACCOUNT_ID", ""),
			BaseURL:           getEnv("HARNESS_BASE_URL", "https://app.harness.io/gateway"),
			Timeout:           time.Duration(getEnvInt("HARNESS_TIMEOUT_SECS", 60)) * time.Second,
			PageSize:          getEnvInt("HARNESS_PAGE_SIZE", 500),
			ExecutionPageSize: getEnvInt("HARNESS_EXECUTION_PAGE_SIZE", 20),
			TemplateCacheSize: getEnvInt("HARNESS_TEMPLATE_CACHE_SIZE", 1024),
			TemplateCacheTTL:  time.Duration(getEnvInt("HARNESS_TEMPLATE_CACHE_TTL_SECS", 0)) * time.Second,
		},
		Inventory: InventoryConfig{
			Concurrency:  getEnvInt("INVENTORY_CONCURRENCY", 8),
			OnlyPipeline: getEnv("INVENTORY_ONLY_PIPELINE", ""),
			Trace:        getEnvBool("INVENTORY_TRACE", false),
			BuildTimes:   getEnvBool("INVENTORY_BUILD_TIMES", false),
		},
		Report: ReportConfig{
			OutputDir: getEnv("REPORT_OUTPUT_DIR", "."),
			Workbook:  getEnv("REPORT_WORKBOOK", "CI-AdoptionPlan-Hosted_Builds_Migration.xlsx"),
			Upload:    strings.ToLower(getEnv("REPORT_UPLOAD", "")),
			Prefix:    getEnv("REPORT_PREFIX", "reports"),
		},
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "pipescope"),
			Password: getEnv("DB_PASSWORD", "pipescope"),
			Name:     getEnv("DB_NAME", "pipescope"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", "pipescope"),
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "pipescope"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "pipescope123"),
			Bucket:    getEnv("MINIO_BUCKET", "pipescope"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		S3: S3Config{
			Region:   getEnv("S3_REGION", ""),
			Bucket:   getEnv("S3_BUCKET", ""),
			Prefix:   getEnv("S3_PREFIX", ""),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		MCP: MCPConfig{
			Addr: getEnv("MCP_ADDR", ":8090"),
		},
		Scheduler: SchedulerConfig{
			Interval:   time.Duration(getEnvInt("SCHEDULER_INTERVAL_MINS", 24*60)) * time.Minute,
			RunOnStart: getEnvBool("SCHEDULER_RUN_ON_START", false),
		},
	}

	switch cfg.Report.Upload {
	case "", "minio", "s3":
	default:
		return nil, fmt.Errorf("REPORT_UPLOAD must be empty, minio or s3, got %q", cfg.Report.Upload)
	}
	if cfg.Inventory.Concurrency < 1 {
		return nil, fmt.Errorf("INVENTORY_CONCURRENCY must be positive, got %d", cfg.Inventory.Concurrency)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
