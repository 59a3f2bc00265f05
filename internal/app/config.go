package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/wastecollect-backend/internal/data/db"
	"github.com/yungbote/wastecollect-backend/internal/platform/envutil"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/sendgrid"
)

type Config struct {
	LogMode     string   `yaml:"log_mode"`
	Port        string   `yaml:"port"`
	ServiceName string   `yaml:"service_name"`
	CORSOrigins []string `yaml:"cors_origins"`

	DB db.Config `yaml:"db"`

	JWTSecretKey    string        `yaml:"jwt_secret_key"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`

	NotifyBus    string `yaml:"notify_bus"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
	NatsURL      string `yaml:"nats_url"`
	NatsSubject  string `yaml:"nats_subject"`

	ReportStorage       string `yaml:"report_storage"`
	ReportLocalDir      string `yaml:"report_local_dir"`
	ReportGCSBucket     string `yaml:"report_gcs_bucket"`
	ReportGCSMode       string `yaml:"report_gcs_mode"`
	StorageEmulatorHost string `yaml:"storage_emulator_host"`
	GCPCredentials      string `yaml:"gcp_credentials"`
	ReportS3Bucket      string `yaml:"report_s3_bucket"`
	ReportS3Region      string `yaml:"report_s3_region"`
	ReportS3Endpoint    string `yaml:"report_s3_endpoint"`
	ReportPrefix        string `yaml:"report_prefix"`

	MetricsEnabled bool          `yaml:"metrics_enabled"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	MetricsScrape  time.Duration `yaml:"metrics_scrape"`

	OtelEnabled     bool    `yaml:"otel_enabled"`
	OtelEndpoint    string  `yaml:"otel_endpoint"`
	OtelInsecure    bool    `yaml:"otel_insecure"`
	OtelSampleRatio float64 `yaml:"otel_sample_ratio"`
	Environment     string  `yaml:"environment"`
	Version         string  `yaml:"version"`

	SendGrid       sendgrid.Config `yaml:"-"`
	StripeAPIKey   string          `yaml:"-"`
	StripeCurrency string          `yaml:"stripe_currency"`

	UnderservedDaysThreshold int `yaml:"underserved_days_threshold"`
	UnderservedMinPending    int `yaml:"underserved_min_pending"`
	ComparativeConcurrency   int `yaml:"comparative_concurrency"`
}

func defaultConfig() Config {
	return Config{
		LogMode:     "development",
		Port:        "8080",
		ServiceName: "wastecollect-api",
		DB: db.Config{
			Driver:  db.DriverPostgres,
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "wastecollect",
			SSLMode: "disable",
		},
		JWTSecretKey:             "defaultsecret",
		AccessTokenTTL:           time.Hour,
		RefreshTokenTTL:          30 * 24 * time.Hour,
		NotifyBus:                "none",
		RedisChannel:             "wc-notifications",
		NatsSubject:              "wc.notifications",
		ReportStorage:            ReportStorageLocal,
		ReportLocalDir:           "reports",
		MetricsAddr:              ":9090",
		MetricsScrape:            10 * time.Second,
		OtelSampleRatio:          1,
		StripeCurrency:           "usd",
		UnderservedDaysThreshold: 30,
		UnderservedMinPending:    3,
		ComparativeConcurrency:   4,
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE yaml overlay, then environment variables.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("Loaded config overlay", "path", path)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if log != nil && cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	if raw := envutil.String("CORS_ORIGINS", ""); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = envutil.Int("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)

	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.AccessTokenTTL = envutil.Seconds("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.RefreshTokenTTL = envutil.Seconds("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL)

	cfg.NotifyBus = envutil.String("NOTIFY_BUS", cfg.NotifyBus)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisChannel = envutil.String("REDIS_CHANNEL", cfg.RedisChannel)
	cfg.NatsURL = envutil.String("NATS_URL", cfg.NatsURL)
	cfg.NatsSubject = envutil.String("NATS_SUBJECT", cfg.NatsSubject)

	cfg.ReportStorage = envutil.String("REPORT_STORAGE", cfg.ReportStorage)
	cfg.ReportLocalDir = envutil.String("REPORT_LOCAL_DIR", cfg.ReportLocalDir)
	cfg.ReportGCSBucket = envutil.String("REPORT_GCS_BUCKET", cfg.ReportGCSBucket)
	cfg.ReportGCSMode = envutil.String("OBJECT_STORAGE_MODE", cfg.ReportGCSMode)
	cfg.StorageEmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.StorageEmulatorHost)
	cfg.GCPCredentials = envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", cfg.GCPCredentials)
	cfg.ReportS3Bucket = envutil.String("REPORT_S3_BUCKET", cfg.ReportS3Bucket)
	cfg.ReportS3Region = envutil.String("REPORT_S3_REGION", cfg.ReportS3Region)
	cfg.ReportS3Endpoint = envutil.String("REPORT_S3_ENDPOINT", cfg.ReportS3Endpoint)
	cfg.ReportPrefix = envutil.String("REPORT_PREFIX", cfg.ReportPrefix)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
	cfg.MetricsScrape = envutil.Seconds("METRICS_SCRAPE_SECONDS", cfg.MetricsScrape)

	cfg.OtelEnabled = envutil.Bool("OTEL_ENABLED", cfg.OtelEnabled)
	cfg.OtelEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
	cfg.OtelInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OtelInsecure)
	cfg.OtelSampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.OtelSampleRatio)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)

	cfg.SendGrid = sendgrid.ConfigFromEnv()
	cfg.StripeAPIKey = envutil.String("STRIPE_API_KEY", cfg.StripeAPIKey)
	cfg.StripeCurrency = envutil.String("STRIPE_CURRENCY", cfg.StripeCurrency)

	cfg.UnderservedDaysThreshold = envutil.Int("UNDERSERVED_DAYS_THRESHOLD", cfg.UnderservedDaysThreshold)
	cfg.UnderservedMinPending = envutil.Int("UNDERSERVED_MIN_PENDING", cfg.UnderservedMinPending)
	cfg.ComparativeConcurrency = envutil.Int("COMPARATIVE_CONCURRENCY", cfg.ComparativeConcurrency)
}

func (c Config) validate() error {
	if c.UnderservedDaysThreshold <= 0 || c.UnderservedMinPending <= 0 {
		return fmt.Errorf("underserved thresholds must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token ttls must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
