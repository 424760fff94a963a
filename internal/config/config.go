package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr        string
	PostgresDSN     string
	PublicBaseURL   string
	AuthMode        string
	LogLevel        string
	ConfirmationTTL time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RateLimitMax    int
	RateLimitWindow time.Duration

	AMQPURL     string
	NotifyQueue string

	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
	ReminderLead      time.Duration
	APIBaseURL        string
	ServiceSubject    string
	ServiceScopes     string
	HealthAddr        string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:        addr,
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		PublicBaseURL:   envDefault("PUBLIC_BASE_URL", "http://localhost:3000"),
		AuthMode:        os.Getenv("AUTH_MODE"),
		LogLevel:        envDefault("LOG_LEVEL", "info"),
		ConfirmationTTL: envDuration("CONFIRMATION_TTL", 7*24*time.Hour),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		RateLimitMax:    envInt("RATE_LIMIT_MAX", 30),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),

		AMQPURL:     os.Getenv("AMQP_URL"),
		NotifyQueue: envDefault("NOTIFY_QUEUE", "onboarding.notifications"),

		TemporalAddress:   os.Getenv("TEMPORAL_ADDRESS"),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         envDefault("TEMPORAL_TASK_QUEUE", "invite-lifecycle"),
		ReminderLead:      envDuration("REMINDER_LEAD", 48*time.Hour),
		APIBaseURL:        envDefault("API_BASE_URL", "http://localhost:8080"),
		ServiceSubject:    envDefault("WORKER_SUBJECT", "lifecycle-worker"),
		ServiceScopes:     envDefault("WORKER_SCOPES", "leads:read,leads:invite"),
		HealthAddr:        envDefault("HEALTH_ADDR", ":8090"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
