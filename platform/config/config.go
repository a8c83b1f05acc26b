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

// SourceAPIConfig provides settings for the property-portal source API.
type SourceAPIConfig interface {
	GetSourceBaseURL() string
	GetSourceAuthURL() string
	GetSourceClientID() string
	GetSourceClientSecret() string
	GetTokenCachePath() string
	IsWhatsAppSourceEnabled() bool
	GetHTTPTimeout() time.Duration
}

// CRMConfig provides settings for the CRM REST endpoint.
type CRMConfig interface {
	GetCRMBaseURL() string
	GetCRMRequestsPerSecond() float64
	GetHTTPTimeout() time.Duration
}

// LedgerConfig provides settings for the processed-lead ledger.
type LedgerConfig interface {
	GetLedgerPath() string
}

// CampaignConfig provides the active campaign selection.
type CampaignConfig interface {
	GetCampaignName() string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetSyncCronSpec() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	SourceBaseURL        string
	SourceAuthURL        string
	SourceClientID       string
	SourceClientSecret   string
	TokenCachePath       string
	WhatsAppSource       bool
	CRMBaseURL           string
	CRMRequestsPerSecond float64
	LedgerPath           string
	CampaignName         string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	SyncCronSpec         string
	HTTPTimeout          time.Duration
}

// SourceAPIConfig implementation
func (c *Config) GetSourceBaseURL() string      { return c.SourceBaseURL }
func (c *Config) GetSourceAuthURL() string      { return c.SourceAuthURL }
func (c *Config) GetSourceClientID() string     { return c.SourceClientID }
func (c *Config) GetSourceClientSecret() string { return c.SourceClientSecret }
func (c *Config) GetTokenCachePath() string     { return c.TokenCachePath }
func (c *Config) IsWhatsAppSourceEnabled() bool { return c.WhatsAppSource }

// CRMConfig implementation
func (c *Config) GetCRMBaseURL() string            { return c.CRMBaseURL }
func (c *Config) GetCRMRequestsPerSecond() float64 { return c.CRMRequestsPerSecond }

// Shared by SourceAPIConfig and CRMConfig
func (c *Config) GetHTTPTimeout() time.Duration { return c.HTTPTimeout }

// LedgerConfig implementation
func (c *Config) GetLedgerPath() string { return c.LedgerPath }

// CampaignConfig implementation
func (c *Config) GetCampaignName() string { return c.CampaignName }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetSyncCronSpec() string   { return c.SyncCronSpec }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		SourceBaseURL:        getEnv("SOURCE_API_URL", "https://api-v2.mycrm.com"),
		SourceAuthURL:        getEnv("SOURCE_AUTH_URL", "https://auth.propertyfinder.com/auth/oauth/v1/token"),
		SourceClientID:       getEnv("SOURCE_CLIENT_ID", ""),
		SourceClientSecret:   getEnv("SOURCE_CLIENT_SECRET", ""),
		TokenCachePath:       getEnv("TOKEN_CACHE_PATH", "auth_token.json"),
		WhatsAppSource:       strings.EqualFold(getEnv("WHATSAPP_SOURCE_ENABLED", "false"), "true"),
		CRMBaseURL:           getEnv("CRM_WEBHOOK_URL", ""),
		CRMRequestsPerSecond: mustFloat(getEnv("CRM_REQUESTS_PER_SECOND", "2")),
		LedgerPath:           getEnv("LEDGER_PATH", "processed_leads.txt"),
		CampaignName:         getEnv("CAMPAIGN", "primary"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "leadsync"),
		SyncCronSpec:         getEnv("SYNC_CRON", "0 * * * *"),
		HTTPTimeout:          mustDuration(getEnv("HTTP_TIMEOUT", "30s")),
	}

	if cfg.SourceClientID == "" || cfg.SourceClientSecret == "" {
		return nil, fmt.Errorf("SOURCE_CLIENT_ID and SOURCE_CLIENT_SECRET are required")
	}
	if cfg.CRMBaseURL == "" {
		return nil, fmt.Errorf("CRM_WEBHOOK_URL is required")
	}
	if cfg.CRMRequestsPerSecond <= 0 {
		return nil, fmt.Errorf("CRM_REQUESTS_PER_SECOND must be positive")
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

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}
