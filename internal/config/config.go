package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zync/zync-go/internal/model"
	"github.com/zync/zync-go/internal/policy"
)

const devJWTSecret = "dev-secret-change-in-production"

// Content backends selectable with CONTENT_BACKEND.
const (
	BackendSQL    = "sql"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

type Config struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	DatabaseDriver string        `yaml:"database_driver"`
	DatabaseDSN    string        `yaml:"database_dsn"`
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTExpiry      time.Duration `yaml:"jwt_expiry"`

	ContentBackend string   `yaml:"content_backend"`
	S3             S3Config `yaml:"s3"`

	Clip ClipConfig `yaml:"clip"`

	MaxBodyBytes   int64   `yaml:"max_body_bytes"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ClipConfig holds the acceptance tunables for clipboard submissions.
type ClipConfig struct {
	SizeThreshold   int64         `yaml:"size_threshold"`
	ExpiryMin       time.Duration `yaml:"expiry_min"`
	ExpiryMax       time.Duration `yaml:"expiry_max"`
	EncryptionTypes []string      `yaml:"encryption_types"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	pc := policy.DefaultConfig()
	return Config{
		Port:           "8080",
		Env:            "development",
		DatabaseDriver: "mysql",
		DatabaseDSN:    "root:password@tcp(127.0.0.1:3306)/zync?parseTime=true",
		JWTSecret:      devJWTSecret,
		JWTExpiry:      30 * 24 * time.Hour,
		ContentBackend: BackendSQL,
		S3: S3Config{
			Region: "us-east-1",
		},
		Clip: ClipConfig{
			SizeThreshold:   pc.SizeThreshold,
			ExpiryMin:       pc.ExpiryMin,
			ExpiryMax:       pc.ExpiryMax,
			EncryptionTypes: []string{string(model.EncryptionAES256GCM)},
		},
		MaxBodyBytes:   64 << 20,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, then environment variables, and validates the result.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseDSN = getEnv("DATABASE_DSN", c.DatabaseDSN)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.ContentBackend = getEnv("CONTENT_BACKEND", c.ContentBackend)
	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("S3_SECRET_KEY", c.S3.SecretKey)

	if v := os.Getenv("CLIP_ENCRYPTION_TYPES"); v != "" {
		var types []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		c.Clip.EncryptionTypes = types
	}

	var err error
	if c.JWTExpiry, err = getDuration("JWT_EXPIRY", c.JWTExpiry); err != nil {
		return err
	}
	if c.Clip.ExpiryMin, err = getDuration("CLIP_EXPIRY_MIN", c.Clip.ExpiryMin); err != nil {
		return err
	}
	if c.Clip.ExpiryMax, err = getDuration("CLIP_EXPIRY_MAX", c.Clip.ExpiryMax); err != nil {
		return err
	}
	if v := os.Getenv("CLIP_SIZE_THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CLIP_SIZE_THRESHOLD: %w", err)
		}
		c.Clip.SizeThreshold = n
	}
	if c.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		c.MaxBodyBytes = n
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	return nil
}

// Validate checks that required fields are present and values are sane.
func (c Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production environment")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	switch c.DatabaseDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q (use mysql or sqlite)", c.DatabaseDriver)
	}
	switch c.ContentBackend {
	case BackendSQL, BackendMemory:
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 content backend")
		}
	default:
		return fmt.Errorf("unsupported content backend %q (use sql, s3 or memory)", c.ContentBackend)
	}
	if c.Clip.SizeThreshold < 0 {
		return errors.New("clip size threshold must be >= 0")
	}
	if c.Clip.ExpiryMin <= 0 || c.Clip.ExpiryMax <= 0 {
		return errors.New("clip expiry windows must be > 0")
	}
	if c.Clip.ExpiryMin > c.Clip.ExpiryMax {
		return errors.New("clip expiry min must not exceed expiry max")
	}
	if len(c.Clip.EncryptionTypes) == 0 {
		return errors.New("at least one clip encryption type is required")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be > 0")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit rps and burst must be > 0")
	}
	return nil
}

// Policy returns the temporal acceptance settings for clipboard submissions.
func (c Config) Policy() policy.Config {
	return policy.Config{
		SizeThreshold: c.Clip.SizeThreshold,
		ExpiryMin:     c.Clip.ExpiryMin,
		ExpiryMax:     c.Clip.ExpiryMax,
	}
}

// EncryptionTypes returns the accepted encryption type literals.
func (c Config) EncryptionTypes() []model.EncryptionType {
	types := make([]model.EncryptionType, len(c.Clip.EncryptionTypes))
	for i, t := range c.Clip.EncryptionTypes {
		types[i] = model.EncryptionType(t)
	}
	return types
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
