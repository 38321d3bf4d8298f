package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultModel = "gemini-2.5-flash"

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	GeminiAPIKey   string
	ModelFast      string // planning
	ModelReasoning string // diagnosing
	ModelCreative  string // recommending
	GenerationRPS  float64

	DataURL       string
	SyntheticDays int
	DataSeed      int64

	RetrieveDelay time.Duration
	RunTimeout    time.Duration

	SinkURL    string
	SinkSecret string
}

// Load reads a .env file if present and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return Config{
		Port:        envOr("PORT", "8080"),
		HTTPTimeout: seconds("HTTP_TIMEOUT_SECONDS", 15*time.Second),
		LogLevel:    lvl,

		GeminiAPIKey:   envOr("GEMINI_API_KEY", os.Getenv("API_KEY")),
		ModelFast:      envOr("MODEL_FAST", defaultModel),
		ModelReasoning: envOr("MODEL_REASONING", defaultModel),
		ModelCreative:  envOr("MODEL_CREATIVE", defaultModel),
		GenerationRPS:  floatOr("GENERATION_RPS", 2),

		DataURL:       os.Getenv("DATA_API_URL"),
		SyntheticDays: intOr("SYNTHETIC_DAYS", 30),
		DataSeed:      int64(intOr("DATA_SEED", 0)),

		RetrieveDelay: time.Duration(intOr("RETRIEVE_DELAY_MS", 800)) * time.Millisecond,
		RunTimeout:    seconds("RUN_TIMEOUT_SECONDS", 120*time.Second),

		SinkURL:    os.Getenv("SINK_URL"),
		SinkSecret: os.Getenv("SINK_SECRET"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func intOr(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v >= 0 {
		return v
	}
	return def
}

func floatOr(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func seconds(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return def
}
