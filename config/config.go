package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names an optional YAML file whose values sit between the built-in
// defaults and the environment.
const FileEnv = "SPECIMENPRO_CONFIG"

type Config struct {
	Environment string `yaml:"environment"`

	// Authoring
	CorpusPath   string `yaml:"corpus_path"`
	SiteRoot     string `yaml:"site_root"`
	AssetBaseURL string `yaml:"asset_base_url"`
	QROutputDir  string `yaml:"qr_output_dir"`
	QRSize       int    `yaml:"qr_size"`

	// Redis configuration
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// PubNub configuration
	PubNubPublishKey   string `yaml:"pubnub_publish_key"`
	PubNubSubscribeKey string `yaml:"pubnub_subscribe_key"`
	PubNubSecretKey    string `yaml:"pubnub_secret_key"`
	PubNubChannel      string `yaml:"pubnub_channel"`
	PubNubUserID       string `yaml:"pubnub_user_id"`

	// Link checking at publish time
	LinkCheckTimeout time.Duration `yaml:"link_check_timeout"`
	LinkCheckRetries int           `yaml:"link_check_retries"`

	// Publish requests allowed per client and minute; 0 disables the limit
	PublishRateLimit int `yaml:"publish_rate_limit"`

	// Monitoring
	EnableMetrics bool `yaml:"enable_metrics"`
}

func defaults() *Config {
	return &Config{
		Environment: "development",

		CorpusPath:  "events.json",
		SiteRoot:    ".",
		QROutputDir: "qr",
		QRSize:      512,

		RedisURL: "localhost:6379",

		PubNubChannel: "specimenpro-events",
		PubNubUserID:  "specimenpro-publisher",

		LinkCheckTimeout: 10 * time.Second,
		LinkCheckRetries: 2,

		PublishRateLimit: 6,

		EnableMetrics: true,
	}
}

// LoadConfig reads .env when present, then the file named by
// SPECIMENPRO_CONFIG, then the process environment. Later sources win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	cfg := defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.CorpusPath = getEnv("CORPUS_PATH", c.CorpusPath)
	c.SiteRoot = getEnv("SITE_ROOT", c.SiteRoot)
	c.AssetBaseURL = getEnv("ASSET_BASE_URL", c.AssetBaseURL)
	c.QROutputDir = getEnv("QR_OUTPUT_DIR", c.QROutputDir)
	c.QRSize = getEnvAsInt("QR_SIZE", c.QRSize)

	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvAsInt("REDIS_DB", c.RedisDB)

	c.PubNubPublishKey = getEnv("PUBNUB_PUBLISH_KEY", c.PubNubPublishKey)
	c.PubNubSubscribeKey = getEnv("PUBNUB_SUBSCRIBE_KEY", c.PubNubSubscribeKey)
	c.PubNubSecretKey = getEnv("PUBNUB_SECRET_KEY", c.PubNubSecretKey)
	c.PubNubChannel = getEnv("PUBNUB_CHANNEL", c.PubNubChannel)
	c.PubNubUserID = getEnv("PUBNUB_USER_ID", c.PubNubUserID)

	c.LinkCheckTimeout = getEnvAsDuration("LINK_CHECK_TIMEOUT", c.LinkCheckTimeout)
	c.LinkCheckRetries = getEnvAsInt("LINK_CHECK_RETRIES", c.LinkCheckRetries)

	c.PublishRateLimit = getEnvAsInt("PUBLISH_RATE_LIMIT", c.PublishRateLimit)

	c.EnableMetrics = getEnvAsBool("ENABLE_METRICS", c.EnableMetrics)
}

// PubNubEnabled reports whether publish notifications can be sent.
func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
