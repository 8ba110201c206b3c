package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pressline/pressline/internal/models"
)

// Config represents runtime configuration derived from environment variables
// plus an optional YAML agents seed file.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Media    MediaConfig
	Agents   []models.AgentConfig
}

// MediaConfig locates the assets used when composing post images.
type MediaConfig struct {
	FontFile    string
	OverlayFile string
	SessionDir  string
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig describes the Postgres connection.
type DatabaseConfig struct {
	URL string
}

// OpenAIConfig holds the language-model client settings, including the
// per-million-token price table used for cost accounting.
type OpenAIConfig struct {
	APIKey             string
	Model              string
	Temperature        float32
	TimeoutSeconds     int
	InputPricePerMTok  float64
	OutputPricePerMTok float64
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultModel          = "gpt-4o-mini"
	defaultLLMTimeout     = 60
	defaultInputPriceUSD  = 0.10
	defaultOutputPriceUSD = 0.40

	defaultFontFile    = "assets/headline.ttf"
	defaultOverlayFile = "assets/overlay.png"
	defaultSessionDir  = "sessions"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. A .env file in the working directory is loaded
// first, if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             os.Getenv("OPENAI_API_KEY"),
			Model:              getEnv("OPENAI_MODEL", defaultModel),
			Temperature:        0.3,
			TimeoutSeconds:     defaultLLMTimeout,
			InputPricePerMTok:  defaultInputPriceUSD,
			OutputPricePerMTok: defaultOutputPriceUSD,
		},
		Media: MediaConfig{
			FontFile:    getEnv("MEDIA_FONT_FILE", defaultFontFile),
			OverlayFile: getEnv("MEDIA_OVERLAY_FILE", defaultOverlayFile),
			SessionDir:  getEnv("SESSION_DIR", defaultSessionDir),
		},
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: %w", err)
		}
		cfg.OpenAI.Temperature = float32(temp)
	}

	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid OPENAI_TIMEOUT_SECONDS: must be a positive integer")
		}
		cfg.OpenAI.TimeoutSeconds = seconds
	}

	if v := os.Getenv("OPENAI_INPUT_PRICE_USD_1M"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return Config{}, fmt.Errorf("invalid OPENAI_INPUT_PRICE_USD_1M: must be a non-negative number")
		}
		cfg.OpenAI.InputPricePerMTok = price
	}

	if v := os.Getenv("OPENAI_OUTPUT_PRICE_USD_1M"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return Config{}, fmt.Errorf("invalid OPENAI_OUTPUT_PRICE_USD_1M: must be a non-negative number")
		}
		cfg.OpenAI.OutputPricePerMTok = price
	}

	if path := os.Getenv("AGENTS_FILE"); path != "" {
		agents, err := loadAgentsFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AGENTS_FILE: %w", err)
		}
		cfg.Agents = agents
	}

	return cfg, nil
}

// loadAgentsFile parses a YAML seed file describing the configured agents.
// Agents defined here are upserted into the database at startup.
func loadAgentsFile(path string) ([]models.AgentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file struct {
		Agents []models.AgentConfig `yaml:"agents"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, agent := range file.Agents {
		if agent.ID == "" {
			return nil, fmt.Errorf("agent %d: id is required", i)
		}
	}

	return file.Agents, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
