package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default. DATABASE_URL is optional: without it
// the subject directory lives in memory.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 0 disables it; streams and sockets are long-lived
	ShutdownTimeout time.Duration
	LogLevel        string
	CORSOrigins     []string

	// Database
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string

	// Subject directory seeding
	SubjectCount int
	SubjectSeed  int64

	// Queue and scheduler
	QueueMaxDepth        int
	QueueOverflowPolicy  string
	SchedulerConcurrency int
	MaxPayloadLength     int
	UnknownSubjectPolicy string

	// Simulated processing
	ProcessingDelay       time.Duration
	ProcessingJitter      time.Duration
	ProcessingTimeout     time.Duration
	ProcessingFailureRate float64

	// Broadcast
	HubSubscriberBuffer int
	WSPingInterval      time.Duration
	WSWriteTimeout      time.Duration

	// Streaming
	StreamChunkMode string
	StreamChunkSize int
	StreamMinDelay  time.Duration
	StreamMaxDelay  time.Duration

	// Rate limiting: requests per second per client IP, 0 disables it
	RateLimitPerClient float64
	RateLimitBurst     int

	// Background housekeeping
	HousekeepingInterval time.Duration
	LimiterIdleTTL       time.Duration

	// Optional result webhook
	ResultWebhookURL     string
	ResultWebhookTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 0),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:     int32(getInt("DB_MIN_CONNS", 2)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		SubjectCount: getInt("SUBJECT_COUNT", 100),
		SubjectSeed:  int64(getInt("SUBJECT_SEED", 0)),

		QueueMaxDepth:        getInt("QUEUE_MAX_DEPTH", 1000),
		QueueOverflowPolicy:  getEnv("QUEUE_OVERFLOW_POLICY", "reject"),
		SchedulerConcurrency: getInt("SCHEDULER_CONCURRENCY", 1),
		MaxPayloadLength:     getInt("MAX_PAYLOAD_LENGTH", 4096),
		UnknownSubjectPolicy: getEnv("UNKNOWN_SUBJECT_POLICY", "allow"),

		ProcessingDelay:       getDuration("PROCESSING_DELAY", 2*time.Second),
		ProcessingJitter:      getDuration("PROCESSING_JITTER", 0),
		ProcessingTimeout:     getDuration("PROCESSING_TIMEOUT", 30*time.Second),
		ProcessingFailureRate: getFloat("PROCESSING_FAILURE_RATE", 0),

		HubSubscriberBuffer: getInt("HUB_SUBSCRIBER_BUFFER", 64),
		WSPingInterval:      getDuration("WS_PING_INTERVAL", 30*time.Second),
		WSWriteTimeout:      getDuration("WS_WRITE_TIMEOUT", 10*time.Second),

		StreamChunkMode: getEnv("STREAM_CHUNK_MODE", "char"),
		StreamChunkSize: getInt("STREAM_CHUNK_SIZE", 16),
		StreamMinDelay:  getDuration("STREAM_MIN_DELAY", 5*time.Millisecond),
		StreamMaxDelay:  getDuration("STREAM_MAX_DELAY", 15*time.Millisecond),

		RateLimitPerClient: getFloat("RATE_LIMIT_PER_CLIENT", 20),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 40),

		HousekeepingInterval: getDuration("HOUSEKEEPING_INTERVAL", 15*time.Second),
		LimiterIdleTTL:       getDuration("LIMITER_IDLE_TTL", 10*time.Minute),

		ResultWebhookURL:     os.Getenv("RESULT_WEBHOOK_URL"),
		ResultWebhookTimeout: getDuration("RESULT_WEBHOOK_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the rest of the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.QueueMaxDepth < 0 {
		errs = append(errs, fmt.Errorf("QUEUE_MAX_DEPTH must be >= 0, got %d", c.QueueMaxDepth))
	}
	switch c.QueueOverflowPolicy {
	case "reject", "block":
	default:
		errs = append(errs, fmt.Errorf("QUEUE_OVERFLOW_POLICY must be reject or block, got %q", c.QueueOverflowPolicy))
	}
	if c.SchedulerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("SCHEDULER_CONCURRENCY must be >= 1, got %d", c.SchedulerConcurrency))
	}
	if c.MaxPayloadLength < 1 {
		errs = append(errs, fmt.Errorf("MAX_PAYLOAD_LENGTH must be >= 1, got %d", c.MaxPayloadLength))
	}
	switch c.UnknownSubjectPolicy {
	case "allow", "reject":
	default:
		errs = append(errs, fmt.Errorf("UNKNOWN_SUBJECT_POLICY must be allow or reject, got %q", c.UnknownSubjectPolicy))
	}
	if c.ProcessingDelay < 0 || c.ProcessingJitter < 0 {
		errs = append(errs, errors.New("PROCESSING_DELAY and PROCESSING_JITTER must be >= 0"))
	}
	if c.ProcessingFailureRate < 0 || c.ProcessingFailureRate > 1 {
		errs = append(errs, fmt.Errorf("PROCESSING_FAILURE_RATE must be within [0,1], got %v", c.ProcessingFailureRate))
	}
	if c.HubSubscriberBuffer < 1 {
		errs = append(errs, fmt.Errorf("HUB_SUBSCRIBER_BUFFER must be >= 1, got %d", c.HubSubscriberBuffer))
	}
	switch c.StreamChunkMode {
	case "char", "word", "block":
	default:
		errs = append(errs, fmt.Errorf("STREAM_CHUNK_MODE must be char, word or block, got %q", c.StreamChunkMode))
	}
	if c.StreamChunkMode == "block" && c.StreamChunkSize < 1 {
		errs = append(errs, fmt.Errorf("STREAM_CHUNK_SIZE must be >= 1, got %d", c.StreamChunkSize))
	}
	if c.StreamMinDelay < 0 || c.StreamMinDelay > c.StreamMaxDelay {
		errs = append(errs, fmt.Errorf("STREAM_MIN_DELAY (%s) must be within [0, STREAM_MAX_DELAY (%s)]", c.StreamMinDelay, c.StreamMaxDelay))
	}
	if c.HousekeepingInterval <= 0 {
		errs = append(errs, errors.New("HOUSEKEEPING_INTERVAL must be > 0"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
