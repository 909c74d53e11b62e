// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"encoding/base64"
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

// WebhookConfig provides settings for the Apps Script form webhook.
type WebhookConfig interface {
	JWTConfig
	GetFormAPIKey() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SheetsConfig provides settings for the Google Sheets adapter.
type SheetsConfig interface {
	GetSpreadsheetID() string
	GetSheetRange() string
	GetSheetName() string
	GetSheetHeaderOffset() int
	GetServiceAccountJSON() ([]byte, error)
	GetWriteBackInterval() time.Duration
}

// SyncConfig provides settings for the reconciliation orchestrator.
type SyncConfig interface {
	GetSyncConcurrency() int
	GetScoringPolicyPath() string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSheetSyncInterval() time.Duration
}

// EmailConfig provides settings for assignment notification email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailTeamInbox() string
}

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string
	FormAPIKey      string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	SpreadsheetID        string
	SheetName            string
	SheetRange           string
	SheetHeaderOffset    int
	ServiceAccountKeyB64 string
	WriteBackInterval    time.Duration

	SyncConcurrency   int
	ScoringPolicyPath string

	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	SheetSyncInterval time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	EmailTeamInbox   string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig / WebhookConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }
func (c *Config) GetFormAPIKey() string      { return c.FormAPIKey }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SheetsConfig implementation
func (c *Config) GetSpreadsheetID() string            { return c.SpreadsheetID }
func (c *Config) GetSheetName() string                { return c.SheetName }
func (c *Config) GetSheetRange() string               { return c.SheetRange }
func (c *Config) GetSheetHeaderOffset() int           { return c.SheetHeaderOffset }
func (c *Config) GetWriteBackInterval() time.Duration { return c.WriteBackInterval }

// GetServiceAccountJSON decodes the base64-encoded service account key,
// matching how the key is provisioned in the deployment environment.
func (c *Config) GetServiceAccountJSON() ([]byte, error) {
	if c.ServiceAccountKeyB64 == "" {
		return nil, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_KEY is not set")
	}
	decoded, err := base64.StdEncoding.DecodeString(c.ServiceAccountKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_KEY: %w", err)
	}
	return decoded, nil
}

// SyncConfig implementation
func (c *Config) GetSyncConcurrency() int      { return c.SyncConcurrency }
func (c *Config) GetScoringPolicyPath() string { return c.ScoringPolicyPath }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool           { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int            { return c.AsynqConcurrency }
func (c *Config) GetSheetSyncInterval() time.Duration { return c.SheetSyncInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetEmailTeamInbox() string   { return c.EmailTeamInbox }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")
	sheetName := getEnv("SHEET_NAME", "Form Responses 1")

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		FormAPIKey:           getEnv("GOOGLE_FORM_API_KEY", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		SpreadsheetID:        getEnv("SPREADSHEET_ID", ""),
		SheetName:            sheetName,
		SheetRange:           getEnv("SHEET_RANGE", sheetName+"!A2:L"),
		SheetHeaderOffset:    mustInt(getEnv("SHEET_HEADER_OFFSET", "2")),
		ServiceAccountKeyB64: getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		WriteBackInterval:    mustDuration(getEnv("SHEET_WRITEBACK_INTERVAL", "1s")),
		SyncConcurrency:      mustInt(getEnv("SYNC_CONCURRENCY", "1")),
		ScoringPolicyPath:    getEnv("SCORING_POLICY_PATH", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SheetSyncInterval:    mustDuration(getEnv("SHEET_SYNC_INTERVAL", "15m")),
		EmailEnabled:         emailEnabled,
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "Builder Portal"),
		EmailFromAddress:     getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailTeamInbox:       getEnv("EMAIL_TEAM_INBOX", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.SheetHeaderOffset < 1 {
		return nil, fmt.Errorf("SHEET_HEADER_OFFSET must be at least 1")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "" || cfg.EmailTeamInbox == "") {
		return nil, fmt.Errorf("SMTP_HOST, EMAIL_FROM_ADDRESS and EMAIL_TEAM_INBOX are required when EMAIL_ENABLED is true")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
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
	result, err := strconv.Atoi(value)
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
