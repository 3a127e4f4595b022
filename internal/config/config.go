package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dialogue resources. Empty paths use the built-in tables.
	GazetteerPath      string
	IntentPatternsPath string
	ResponsesPath      string
	DayLexiconPath     string

	// Conversation context.
	ContextTTL           time.Duration
	ContextSweepInterval time.Duration
	Location             *time.Location
	AnonymousMaxDays     int

	// Prediction service.
	ForecastURL       string
	ForecastTimeout   time.Duration
	ForecastCacheSize int
	ForecastCacheTTL  time.Duration

	// Reporting service. Empty URL disables report exports.
	ReportURL     string
	ReportTimeout time.Duration

	// Gemini phrasing. Empty key answers with the plain forecast sentence.
	GeminiAPIKey string
	GeminiModel  string

	// Kafka transport.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaRequestTopic  string
	KafkaReplyTopic    string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GazetteerPath:      os.Getenv("GAZETTEER_PATH"),
		IntentPatternsPath: os.Getenv("INTENT_PATTERNS_PATH"),
		ResponsesPath:      os.Getenv("RESPONSES_PATH"),
		DayLexiconPath:     os.Getenv("DAY_LEXICON_PATH"),

		ContextTTL:           p.duration("CONTEXT_TTL", "30m", false),
		ContextSweepInterval: p.duration("CONTEXT_SWEEP_INTERVAL", "1m", true),
		Location:             p.location("TIMEZONE", "America/Bogota"),
		AnonymousMaxDays:     p.integer("ANONYMOUS_MAX_DAYS", 2, true),

		ForecastURL:       sharedcfg.EnvOrDefault("FORECAST_URL", "http://localhost:8000"),
		ForecastTimeout:   p.duration("FORECAST_TIMEOUT", "30s", false),
		ForecastCacheSize: p.integer("FORECAST_CACHE_SIZE", 256, true),
		ForecastCacheTTL:  p.duration("FORECAST_CACHE_TTL", "15m", true),

		ReportURL:     os.Getenv("REPORT_URL"),
		ReportTimeout: p.duration("REPORT_TIMEOUT", "60s", false),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),

		KafkaEnabled:       p.boolean("KAFKA_ENABLED", false),
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRequestTopic:  sharedcfg.EnvOrDefault("KAFKA_REQUEST_TOPIC", "chat-requests"),
		KafkaReplyTopic:    sharedcfg.EnvOrDefault("KAFKA_REPLY_TOPIC", "chat-replies"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "weather-chat-service"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.ForecastURL == "" {
		return nil, errors.New("FORECAST_URL is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaRequestTopic == "" {
			return nil, errors.New("KAFKA_REQUEST_TOPIC is required")
		}
		if cfg.KafkaReplyTopic == "" {
			return nil, errors.New("KAFKA_REPLY_TOPIC is required")
		}
	}

	return cfg, nil
}

// parser collects the first parse error so Load reads top to bottom.
type parser struct {
	err error
}

func (p *parser) fail(name, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %q", name, value)
	}
}

// duration parses a positive duration, or a non-negative one when allowZero.
func (p *parser) duration(name, def string, allowZero bool) time.Duration {
	s := sharedcfg.EnvOrDefault(name, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		p.fail(name, s)
		return 0
	}
	return d
}

func (p *parser) integer(name string, def int, allowZero bool) int {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		p.fail(name, s)
		return 0
	}
	return n
}

func (p *parser) boolean(name string, def bool) bool {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(name, s)
		return def
	}
	return b
}

func (p *parser) location(name, def string) *time.Location {
	s := sharedcfg.EnvOrDefault(name, def)
	loc, err := time.LoadLocation(s)
	if err != nil {
		p.fail(name, s)
		return time.UTC
	}
	return loc
}
