package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location relative to the working directory.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                   string  `yaml:"port"`
	LogLevel               string  `yaml:"logLevel"`
	LogsDir                string  `yaml:"logsDir"`
	DatabaseURL            string  `yaml:"databaseURL"`
	RedisAddr              string  `yaml:"redisAddr"`
	RedisPassword          string  `yaml:"redisPassword"`
	JWTSecret              string  `yaml:"jwtSecret"`
	SessionTTLHours        int     `yaml:"sessionTtlHours"`
	MinioEndpoint          string  `yaml:"minioEndpoint"`
	MinioAccessKey         string  `yaml:"minioAccessKey"`
	MinioSecretKey         string  `yaml:"minioSecretKey"`
	MinioBucket            string  `yaml:"minioBucket"`
	MinioUseSSL            bool    `yaml:"minioUseSSL"`
	AIBaseURL              string  `yaml:"aiBaseURL"`
	AIAPIKey               string  `yaml:"aiApiKey"`
	AIModel                string  `yaml:"aiModel"`
	AITimeoutSeconds       int     `yaml:"aiTimeoutSeconds"`
	PaymentsBaseURL        string  `yaml:"paymentsBaseURL"`
	PaymentsAPIKey         string  `yaml:"paymentsApiKey"`
	MailBaseURL            string  `yaml:"mailBaseURL"`
	MailAPIKey             string  `yaml:"mailApiKey"`
	MailFrom               string  `yaml:"mailFrom"`
	QueueName              string  `yaml:"queueName"`
	QueueGroup             string  `yaml:"queueGroup"`
	QueueConcurrency       int     `yaml:"queueConcurrency"`
	QueueMaxRetries        int     `yaml:"queueMaxRetries"`
	QueueRetryDelaySeconds int     `yaml:"queueRetryDelaySeconds"`
	ListingTTLDays         int     `yaml:"listingTtlDays"`
	ExpirySweepMinutes     int     `yaml:"expirySweepMinutes"`
	NearbyDefaultRadiusKm  float64 `yaml:"nearbyDefaultRadiusKm"`
	RegisterRatePerMinute  int     `yaml:"registerRatePerMinute"`
	LoginRatePerMinute     int     `yaml:"loginRatePerMinute"`
	MessageRatePerMinute   int     `yaml:"messageRatePerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOGS_DIR"); v != "" {
		cfg.LogsDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("FRIDGESHARE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("FRIDGESHARE_SESSION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionTTLHours = n
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if ssl, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = ssl
		}
	}
	if v := os.Getenv("FRIDGESHARE_AI_BASE_URL"); v != "" {
		cfg.AIBaseURL = v
	}
	if v := os.Getenv("FRIDGESHARE_AI_API_KEY"); v != "" {
		cfg.AIAPIKey = v
	}
	if v := os.Getenv("FRIDGESHARE_AI_MODEL"); v != "" {
		cfg.AIModel = v
	}
	if v := os.Getenv("FRIDGESHARE_AI_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AITimeoutSeconds = n
		}
	}
	if v := os.Getenv("FRIDGESHARE_PAYMENTS_BASE_URL"); v != "" {
		cfg.PaymentsBaseURL = v
	}
	if v := os.Getenv("FRIDGESHARE_PAYMENTS_API_KEY"); v != "" {
		cfg.PaymentsAPIKey = v
	}
	if v := os.Getenv("FRIDGESHARE_MAIL_BASE_URL"); v != "" {
		cfg.MailBaseURL = v
	}
	if v := os.Getenv("FRIDGESHARE_MAIL_API_KEY"); v != "" {
		cfg.MailAPIKey = v
	}
	if v := os.Getenv("FRIDGESHARE_MAIL_FROM"); v != "" {
		cfg.MailFrom = v
	}
	if v := os.Getenv("FRIDGESHARE_QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}
	if v := os.Getenv("FRIDGESHARE_QUEUE_GROUP"); v != "" {
		cfg.QueueGroup = v
	}
	if v := os.Getenv("FRIDGESHARE_QUEUE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueConcurrency = n
		}
	}
	if v := os.Getenv("FRIDGESHARE_QUEUE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueMaxRetries = n
		}
	}
	if v := os.Getenv("FRIDGESHARE_QUEUE_RETRY_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueRetryDelaySeconds = n
		}
	}
	if v := os.Getenv("FRIDGESHARE_LISTING_TTL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ListingTTLDays = n
		}
	}
	if v := os.Getenv("FRIDGESHARE_EXPIRY_SWEEP_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExpirySweepMinutes = n
		}
	}
	if v := os.Getenv("FRIDGESHARE_NEARBY_DEFAULT_RADIUS_KM"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.NearbyDefaultRadiusKm = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or FRIDGESHARE_JWT_SECRET)")
	}
	if cfg.SessionTTLHours < 0 {
		return errors.New("config: sessionTtlHours must be >= 0")
	}
	if cfg.ListingTTLDays < 0 {
		return errors.New("config: listingTtlDays must be >= 0")
	}
	if cfg.ExpirySweepMinutes < 0 {
		return errors.New("config: expirySweepMinutes must be >= 0")
	}
	if cfg.NearbyDefaultRadiusKm < 0 {
		return errors.New("config: nearbyDefaultRadiusKm must be >= 0")
	}
	if cfg.QueueConcurrency < 0 {
		return errors.New("config: queueConcurrency must be >= 0")
	}
	if cfg.QueueMaxRetries < 0 {
		return errors.New("config: queueMaxRetries must be >= 0")
	}
	if cfg.QueueRetryDelaySeconds < 0 {
		return errors.New("config: queueRetryDelaySeconds must be >= 0")
	}
	if cfg.RegisterRatePerMinute < 0 || cfg.LoginRatePerMinute < 0 || cfg.MessageRatePerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MinioEndpoint != "" {
		if strings.TrimSpace(cfg.MinioAccessKey) == "" || strings.TrimSpace(cfg.MinioSecretKey) == "" {
			return errors.New("config: minioAccessKey and minioSecretKey are required when minioEndpoint is set")
		}
		if strings.TrimSpace(cfg.MinioBucket) == "" {
			return errors.New("config: minioBucket is required when minioEndpoint is set")
		}
	}
	if cfg.AITimeoutSeconds < 0 {
		return errors.New("config: aiTimeoutSeconds must be >= 0")
	}
	return nil
}
