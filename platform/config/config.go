// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides the Redis connection shared by the queue and settings reload.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the delayed task queue and worker pool.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetAsynqMaxRetry() int
	GetScanCron() string
	GetPitchCron() string
	GetBriefingCron() string
	GetTimezone() string
}

// EmailConfig provides settings for outbound email.
type EmailConfig interface {
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMTPConfig provides SMTP relay settings.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
}

// WhatsAppConfig provides settings for the GOWA WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppUsername() string
	GetWhatsAppPassword() string
	GetWhatsAppDeviceID() string
	IsWhatsAppEnabled() bool
}

// SMSConfig provides settings for the Twilio SMS API.
type SMSConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	IsSMSEnabled() bool
}

// AIConfig provides settings for outreach content generation.
type AIConfig interface {
	GetAIProvider() string
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	GetAITimeout() time.Duration
}

// WebhookConfig provides settings for inbound reply webhooks.
type WebhookConfig interface {
	GetWebhookSecret() string
}

// IMAPConfig provides settings for the reply mailbox poller.
type IMAPConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPMailbox() string
	GetIMAPPollInterval() time.Duration
	IsIMAPEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketInboundPayloads() string
	IsMinIOEnabled() bool
}

// PlacesConfig provides settings for business discovery.
type PlacesConfig interface {
	GetGooglePlacesAPIKey() string
	GetProbeTimeout() time.Duration
	GetDefaultPhoneRegion() string
}

// NotificationConfig provides operator contact details for reply alerts and briefings.
type NotificationConfig interface {
	GetOperatorEmail() string
	GetOperatorPhone() string
}

// ErrorTrackingConfig provides Sentry settings.
type ErrorTrackingConfig interface {
	GetSentryDSN() string
	GetEnv() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	AsynqMaxRetry      int
	ScanCron           string
	PitchCron          string
	BriefingCron       string
	Timezone           string
	EmailProvider      string
	BrevoAPIKey        string
	EmailFromName      string
	EmailFromAddress   string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	WhatsAppURL        string
	WhatsAppUsername   string
	WhatsAppPassword   string
	WhatsAppDeviceID   string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	AIProvider         string
	GeminiAPIKey       string
	GeminiModel        string
	MoonshotAPIKey     string
	MoonshotModel      string
	AITimeout          time.Duration
	WebhookSecret      string
	IMAPHost           string
	IMAPPort           int
	IMAPUsername       string
	IMAPPassword       string
	IMAPMailbox        string
	IMAPPollInterval   time.Duration
	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinioBucketInbound string
	GooglePlacesAPIKey string
	ProbeTimeout       time.Duration
	DefaultPhoneRegion string
	OperatorEmail      string
	OperatorPhone      string
	SentryDSN          string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetAsynqMaxRetry() int     { return c.AsynqMaxRetry }
func (c *Config) GetScanCron() string       { return c.ScanCron }
func (c *Config) GetPitchCron() string      { return c.PitchCron }
func (c *Config) GetBriefingCron() string   { return c.BriefingCron }
func (c *Config) GetTimezone() string       { return c.Timezone }

// EmailConfig implementation
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppUsername() string { return c.WhatsAppUsername }
func (c *Config) GetWhatsAppPassword() string { return c.WhatsAppPassword }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }
func (c *Config) IsWhatsAppEnabled() bool     { return c.WhatsAppURL != "" }

// SMSConfig implementation
func (c *Config) GetTwilioAccountSID() string { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string  { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string { return c.TwilioFromNumber }
func (c *Config) IsSMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// AIConfig implementation
func (c *Config) GetAIProvider() string       { return c.AIProvider }
func (c *Config) GetGeminiAPIKey() string     { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string      { return c.GeminiModel }
func (c *Config) GetMoonshotAPIKey() string   { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string    { return c.MoonshotModel }
func (c *Config) GetAITimeout() time.Duration { return c.AITimeout }

// WebhookConfig implementation
func (c *Config) GetWebhookSecret() string { return c.WebhookSecret }

// IMAPConfig implementation
func (c *Config) GetIMAPHost() string                { return c.IMAPHost }
func (c *Config) GetIMAPPort() int                   { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string            { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string            { return c.IMAPPassword }
func (c *Config) GetIMAPMailbox() string             { return c.IMAPMailbox }
func (c *Config) GetIMAPPollInterval() time.Duration { return c.IMAPPollInterval }
func (c *Config) IsIMAPEnabled() bool                { return c.IMAPHost != "" && c.IMAPUsername != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string              { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string             { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string             { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                  { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketInboundPayloads() string { return c.MinioBucketInbound }
func (c *Config) IsMinIOEnabled() bool                  { return c.MinIOEndpoint != "" }

// PlacesConfig implementation
func (c *Config) GetGooglePlacesAPIKey() string  { return c.GooglePlacesAPIKey }
func (c *Config) GetProbeTimeout() time.Duration { return c.ProbeTimeout }
func (c *Config) GetDefaultPhoneRegion() string  { return c.DefaultPhoneRegion }

// NotificationConfig implementation
func (c *Config) GetOperatorEmail() string { return c.OperatorEmail }
func (c *Config) GetOperatorPhone() string { return c.OperatorPhone }

// ErrorTrackingConfig implementation
func (c *Config) GetSentryDSN() string { return c.SentryDSN }
func (c *Config) GetEnv() string       { return c.Env }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "prospecting"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		AsynqMaxRetry:      mustInt(getEnv("ASYNQ_MAX_RETRY", "5")),
		ScanCron:           getEnv("SCAN_CRON", "0 6 * * *"),
		PitchCron:          getEnv("PITCH_CRON", "0 9 * * 1-5"),
		BriefingCron:       getEnv("BRIEFING_CRON", "0 8 * * *"),
		Timezone:           getEnv("APP_TIMEZONE", "Europe/Amsterdam"),
		EmailProvider:      strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp")),
		BrevoAPIKey:        getEnv("BREVO_API_KEY", ""),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Prospector"),
		EmailFromAddress:   getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		WhatsAppURL:        strings.TrimRight(getEnv("WHATSAPP_URL", ""), "/"),
		WhatsAppUsername:   getEnv("WHATSAPP_USERNAME", ""),
		WhatsAppPassword:   getEnv("WHATSAPP_PASSWORD", ""),
		WhatsAppDeviceID:   getEnv("WHATSAPP_DEVICE_ID", ""),
		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:   getEnv("TWILIO_FROM_NUMBER", ""),
		AIProvider:         strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MoonshotAPIKey:     getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:      getEnv("MOONSHOT_MODEL", "kimi-k2-0905-preview"),
		AITimeout:          mustDuration(getEnv("AI_TIMEOUT", "30s")),
		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		IMAPHost:           getEnv("IMAP_HOST", ""),
		IMAPPort:           mustInt(getEnv("IMAP_PORT", "993")),
		IMAPUsername:       getEnv("IMAP_USERNAME", ""),
		IMAPPassword:       getEnv("IMAP_PASSWORD", ""),
		IMAPMailbox:        getEnv("IMAP_MAILBOX", "INBOX"),
		IMAPPollInterval:   mustDuration(getEnv("IMAP_POLL_INTERVAL", "2m")),
		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketInbound: getEnv("MINIO_BUCKET_INBOUND_PAYLOADS", "inbound-payloads"),
		GooglePlacesAPIKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
		ProbeTimeout:       mustDuration(getEnv("PROBE_TIMEOUT", "8s")),
		DefaultPhoneRegion: strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "NL")),
		OperatorEmail:      getEnv("OPERATOR_EMAIL", ""),
		OperatorPhone:      getEnv("OPERATOR_PHONE", ""),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	switch c.EmailProvider {
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
		}
	case "brevo":
		if c.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER is brevo")
		}
	case "none":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of smtp, brevo, none")
	}
	if c.EmailProvider != "none" && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	switch c.AIProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
	case "moonshot":
		if c.MoonshotAPIKey == "" {
			return fmt.Errorf("MOONSHOT_API_KEY is required when AI_PROVIDER is moonshot")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be one of gemini, moonshot")
	}
	if c.AsynqConcurrency <= 0 {
		return fmt.Errorf("ASYNQ_CONCURRENCY must be positive")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be a positive duration")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
