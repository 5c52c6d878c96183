package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`

	WhatsAppGatewayURL string `env:"WHATSAPP_GATEWAY_URL,required=true"`
	SMSGatewayURL      string `env:"SMS_GATEWAY_URL,required=true"`
	EmailGatewayURL    string `env:"EMAIL_GATEWAY_URL,required=true"`
	VoiceGatewayURL    string `env:"VOICE_GATEWAY_URL,required=true"`

	// Automatic outreach fires only inside [BusinessHoursStart,
	// BusinessHoursEnd) evaluated in BusinessHoursTZ.
	BusinessHoursStart int    `env:"BUSINESS_HOURS_START,default=9"`
	BusinessHoursEnd   int    `env:"BUSINESS_HOURS_END,default=21"`
	BusinessHoursTZ    string `env:"BUSINESS_HOURS_TZ,default=UTC"`
	AutoOutreachChan   string `env:"AUTO_OUTREACH_CHANNEL,default=WHATSAPP"`

	WebhookRateLimitPerSec int `env:"WEBHOOK_RATE_LIMIT_PER_SEC,default=100"`
	AutoTriggerWorkers     int `env:"AUTO_TRIGGER_WORKERS,default=8"`
	AutoTriggerQueueSize   int `env:"AUTO_TRIGGER_QUEUE_SIZE,default=256"`

	APIPort     int    `env:"API_PORT,default=8080"`
	MetricsPort int    `env:"METRICS_PORT,default=9090"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.BusinessHoursStart < 0 || cfg.BusinessHoursStart > 23 {
		return nil, fmt.Errorf("BUSINESS_HOURS_START must be within [0,23], got %d", cfg.BusinessHoursStart)
	}
	if cfg.BusinessHoursEnd < 1 || cfg.BusinessHoursEnd > 24 {
		return nil, fmt.Errorf("BUSINESS_HOURS_END must be within [1,24], got %d", cfg.BusinessHoursEnd)
	}
	if cfg.BusinessHoursStart >= cfg.BusinessHoursEnd {
		return nil, fmt.Errorf("business hours window is empty: start=%d end=%d", cfg.BusinessHoursStart, cfg.BusinessHoursEnd)
	}

	return &cfg, nil
}
