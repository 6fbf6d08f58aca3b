package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hszk-dev/mediagate/internal/admission"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

type Config struct {
	Server    ServerConfig
	Ingest    IngestConfig
	Delivery  DeliveryConfig
	Reaper    ReaperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
}

type ServerConfig struct {
	Port              int           `envconfig:"API_PORT" default:"8080"`
	ReadHeaderTimeout time.Duration `envconfig:"API_READ_HEADER_TIMEOUT" default:"10s"`
	// ReadTimeout and WriteTimeout bound every request except uploads,
	// which use INGEST_UPLOAD_TIMEOUT.
	ReadTimeout       time.Duration `envconfig:"API_READ_TIMEOUT" default:"30s"`
	WriteTimeout      time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"15m"`
	ShutdownTimeout   time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
}

type IngestConfig struct {
	TempDir           string        `envconfig:"INGEST_TEMP_DIR" default:"/tmp/mediagate"`
	MaxUploadBytes    int64         `envconfig:"INGEST_MAX_UPLOAD_BYTES" default:"10737418240"`
	UploadTimeout     time.Duration `envconfig:"INGEST_UPLOAD_TIMEOUT" default:"2h"`
	RenditionWorkers  int           `envconfig:"INGEST_RENDITION_WORKERS" default:"2"`
	PublishWorkers    int           `envconfig:"INGEST_PUBLISH_WORKERS" default:"8"`
	ThumbnailOffset   time.Duration `envconfig:"INGEST_THUMBNAIL_OFFSET" default:"1s"`
	ThumbnailMaxWidth int           `envconfig:"INGEST_THUMBNAIL_MAX_WIDTH" default:"640"`
	FFmpegPath        string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath       string        `envconfig:"FFPROBE_PATH" default:"ffprobe"`
	VideoPreset       string        `envconfig:"FFMPEG_VIDEO_PRESET" default:"fast"`
	SegmentSeconds    int           `envconfig:"HLS_SEGMENT_SECONDS" default:"10"`
}

type DeliveryConfig struct {
	PlaybackURLTTL time.Duration `envconfig:"DELIVERY_PLAYBACK_URL_TTL" default:"1h"`
	ReadURLTTL     time.Duration `envconfig:"DELIVERY_READ_URL_TTL" default:"1h"`
	DefaultQuality string        `envconfig:"DELIVERY_DEFAULT_QUALITY" default:"720p"`
}

type ReaperConfig struct {
	SweepInterval   time.Duration `envconfig:"REAPER_SWEEP_INTERVAL" default:"10m"`
	SweepLimit      int           `envconfig:"REAPER_SWEEP_LIMIT" default:"50"`
	ShutdownTimeout time.Duration `envconfig:"REAPER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type RateLimitConfig struct {
	// Store is "memory" for a per-process counter or "redis" to share
	// counters between API instances.
	Store         string        `envconfig:"RATE_LIMIT_STORE" default:"memory"`
	GeneralLimit  int           `envconfig:"RATE_LIMIT_GENERAL_LIMIT" default:"100"`
	GeneralWindow time.Duration `envconfig:"RATE_LIMIT_GENERAL_WINDOW" default:"1m"`
	IngestLimit   int           `envconfig:"RATE_LIMIT_INGEST_LIMIT" default:"5"`
	IngestWindow  time.Duration `envconfig:"RATE_LIMIT_INGEST_WINDOW" default:"10m"`
	// IngestKey is "ip" to key the ingest window by client address or
	// "caller" to key authenticated callers by user id.
	IngestKey     string        `envconfig:"RATE_LIMIT_INGEST_KEY" default:"ip"`
}

// Policies returns the admission policies for each class.
func (c RateLimitConfig) Policies() map[admission.Class]admission.Policy {
	return map[admission.Class]admission.Policy{
		admission.ClassGeneral: {Limit: c.GeneralLimit, Window: c.GeneralWindow},
		admission.ClassIngest:  {Limit: c.IngestLimit, Window: c.IngestWindow},
	}
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"mediagate"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"mediagate"`
	DBName   string `envconfig:"POSTGRES_DB" default:"mediagate"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	// Enabled turns the attempt ledger on. Without it failed uploads are
	// only cleaned up through the queue.
	Enabled bool `envconfig:"POSTGRES_ENABLED" default:"true"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint       string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Region         string `envconfig:"MINIO_REGION" default:"us-east-1"`
	UseSSL         bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	UsersBucket         string `envconfig:"BUCKET_USERS" default:"users"`
	VideosBucket        string `envconfig:"BUCKET_VIDEOS" default:"videos"`
	AudioBucket         string `envconfig:"BUCKET_AUDIO" default:"audio"`
	CoursesBucket       string `envconfig:"BUCKET_COURSES" default:"courses"`
	SubscriptionsBucket string `envconfig:"BUCKET_SUBSCRIPTIONS" default:"subscriptions"`
	ThumbnailsBucket    string `envconfig:"BUCKET_THUMBNAILS" default:"thumbnails"`
}

// Buckets returns the configured bucket names.
func (c MinIOConfig) Buckets() repository.Buckets {
	return repository.Buckets{
		Users:         c.UsersBucket,
		Videos:        c.VideosBucket,
		Audio:         c.AudioBucket,
		Courses:       c.CoursesBucket,
		Subscriptions: c.SubscriptionsBucket,
		Thumbnails:    c.ThumbnailsBucket,
	}
}

type RedisConfig struct {
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"5m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RabbitMQConfig struct {
	Host       string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port       int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User       string `envconfig:"RABBITMQ_USER" default:"mediagate"`
	Password   string `envconfig:"RABBITMQ_PASSWORD" default:"mediagate"`
	VHost      string `envconfig:"RABBITMQ_VHOST" default:"/"`
	Queue      string `envconfig:"RABBITMQ_CLEANUP_QUEUE" default:"cleanup_tasks"`
	MaxRetries int    `envconfig:"RABBITMQ_MAX_RETRIES" default:"5"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STORE must be memory or redis, got %q", c.RateLimit.Store))
	}
	switch c.RateLimit.IngestKey {
	case "ip", "caller":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_INGEST_KEY must be ip or caller, got %q", c.RateLimit.IngestKey))
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("INGEST_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Reaper.SweepLimit <= 0 {
		errs = append(errs, errors.New("REAPER_SWEEP_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}
