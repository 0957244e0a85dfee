package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	AppURL         string
	ClinicName     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Cancellation-fill engine tunables
	Fill FillConfig

	// Notification channels
	SMS   SMSConfig
	Email EmailConfig

	// Kafka event stream
	Kafka KafkaConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL for per-slot reaper locks
	SlotLockTTL time.Duration
}

// FillConfig holds the cancellation-fill engine tunables. Urgent mode
// widens the wave and shortens the claim window for short-notice slots.
type FillConfig struct {
	WaveSize        int
	TokenTTL        time.Duration
	ReaperInterval  time.Duration
	UrgentMode      bool
	UrgentWaveSize  int
	UrgentTokenTTL  time.Duration
	ChannelTimeout  time.Duration
	DispatchRetries int
	RetryBackoff    time.Duration
}

// EffectiveWaveSize returns the wave size honoring urgent-fill mode.
func (f FillConfig) EffectiveWaveSize() int {
	if f.UrgentMode {
		return f.UrgentWaveSize
	}
	return f.WaveSize
}

// EffectiveTokenTTL returns the claim token TTL honoring urgent-fill mode.
func (f FillConfig) EffectiveTokenTTL() time.Duration {
	if f.UrgentMode {
		return f.UrgentTokenTTL
	}
	return f.TokenTTL
}

// SMSConfig holds the SMS channel configuration (Twilio REST API)
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBaseURL string
}

// Enabled reports whether the SMS channel has credentials configured.
func (s SMSConfig) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != ""
}

// EmailConfig holds email channel configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	StaffEmail   string
}

// Enabled reports whether the email channel has credentials configured.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.SMTPUsername != ""
}

// KafkaConfig holds Kafka configuration for the slot lifecycle event stream
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	ClaimRequests   int           `json:"claim_requests"`
	StaffRequests   int           `json:"staff_requests"`
	HealthRequests  int           `json:"health_requests"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		AppURL:         getEnv("APP_URL", "http://localhost:8080"),
		ClinicName:     getEnv("CLINIC_NAME", "CancelFillMD Clinic"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "cancelfillmd_db"),
			User:     getEnv("DB_USER", "cancelfillmd_user"),
			Password: getEnv("DB_PASSWORD", "cancelfillmd_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			SlotLockTTL: getDurationEnv("REDIS_SLOT_LOCK_TTL", 30*time.Second),
		},

		// Engine tunables
		Fill: FillConfig{
			WaveSize:        getIntEnv("FILL_WAVE_SIZE", 10),
			TokenTTL:        getDurationEnv("FILL_TOKEN_TTL", 2*time.Hour),
			ReaperInterval:  getDurationEnv("FILL_REAPER_INTERVAL", 1*time.Minute),
			UrgentMode:      getBoolEnv("FILL_URGENT_MODE", false),
			UrgentWaveSize:  getIntEnv("FILL_URGENT_WAVE_SIZE", 20),
			UrgentTokenTTL:  getDurationEnv("FILL_URGENT_TOKEN_TTL", 30*time.Minute),
			ChannelTimeout:  getDurationEnv("NOTIFY_CHANNEL_TIMEOUT", 10*time.Second),
			DispatchRetries: getIntEnv("NOTIFY_RETRY_ATTEMPTS", 3),
			RetryBackoff:    getDurationEnv("NOTIFY_RETRY_BACKOFF", 2*time.Second),
		},

		// SMS channel
		SMS: SMSConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
			APIBaseURL: getEnv("TWILIO_API_BASE_URL", "https://api.twilio.com"),
		},

		// Email channel
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@cancelfillmd.com"),
			FromName:     getEnv("SMTP_FROM_NAME", "CancelFillMD"),
			StaffEmail:   getEnv("STAFF_NOTIFICATION_EMAIL", ""),
		},

		// Kafka event stream
		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_SLOT_EVENTS_TOPIC", "slot-events"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			ClaimRequests:   getIntEnv("RATE_LIMIT_CLAIM_REQUESTS", 20),
			StaffRequests:   getIntEnv("RATE_LIMIT_STAFF_REQUESTS", 200),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 120),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
