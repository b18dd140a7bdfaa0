package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Storage
	DataBackend  string // jsonfile | sqlite | memory
	DataDir      string
	SQLiteDBPath string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Advice service
	GeminiAPIKey   string
	GeminiModel    string
	AdviceDebounce time.Duration
	AdviceTimeout  time.Duration

	// Worker
	AuditLogPath string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		DataBackend:  getEnv("DATA_BACKEND", "jsonfile"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/piggy.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "piggy"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdviceDebounce: getEnvDuration("ADVICE_DEBOUNCE", time.Second),
		AdviceTimeout:  getEnvDuration("ADVICE_TIMEOUT", 30*time.Second),

		AuditLogPath: getEnv("AUDIT_LOG_PATH", "./data/ledger-audit.jsonl"),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "jsonfile", "sqlite", "memory":
	default:
		problems = append(problems, fmt.Sprintf(
			"invalid data backend '%s': must be one of [jsonfile sqlite memory]", c.DataBackend))
	}

	if c.DataBackend == "jsonfile" && c.DataDir == "" {
		problems = append(problems, "data directory cannot be empty when using jsonfile backend")
	}
	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf(
				"invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AdviceDebounce < 100*time.Millisecond || c.AdviceDebounce > time.Minute {
		problems = append(problems, fmt.Sprintf(
			"invalid advice debounce %v: must be between 100ms and 1m", c.AdviceDebounce))
	}
	if c.AdviceTimeout < time.Second || c.AdviceTimeout > 5*time.Minute {
		problems = append(problems, fmt.Sprintf(
			"invalid advice timeout %v: must be between 1s and 5m", c.AdviceTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
