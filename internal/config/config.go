package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string `yaml:"api_port"`
	WorkerEnabled      bool   `yaml:"worker_enabled"`
	BackendAPIKey      string `yaml:"backend_api_key"`      // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string `yaml:"cors_allowed_origins"` // Comma-separated allowed origins (empty = *, dev mode)

	// Database — optional render manifest. Empty = run without provenance records.
	DatabaseURL string `yaml:"database_url"`

	// Redis — backs the async render job queue. Empty = sync rendering only.
	RedisURL string `yaml:"redis_url"`

	// Qwen / DashScope (used for solution text generation)
	QwenAPIKey string `yaml:"qwen_api_key"`

	// Gemini (optional second remote fallback for completions)
	GeminiKey string `yaml:"gemini_key"`

	// TTS — ElevenLabs preferred when a key is set, CLI synthesizer otherwise
	ElevenLabsKey     string `yaml:"elevenlabs_key"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`
	TTSCommand        string `yaml:"tts_command"` // CLI synthesizer binary (default: espeak-ng)

	// Rendering
	ManimBin             string `yaml:"manim_bin"`
	FFmpegBin            string `yaml:"ffmpeg_bin"`
	FFprobeBin           string `yaml:"ffprobe_bin"`
	RenderTimeoutSeconds int    `yaml:"render_timeout_seconds"`

	// Directories
	OutputDir string `yaml:"output_dir"` // final artifacts, served as /rendered_videos
	MediaDir  string `yaml:"media_dir"`  // manim --media_dir root
	TempDir   string `yaml:"temp_dir"`   // temp scene scripts and intermediates

	// Worker
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	// Start from the optional YAML file, then let the environment override.
	cfg, err := loadConfigFile(findConfigFile())
	if err != nil {
		return nil, err
	}

	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.WorkerEnabled = getEnvBool("WORKER_ENABLED", cfg.WorkerEnabled)
	cfg.BackendAPIKey = getEnv("BACKEND_API_KEY", cfg.BackendAPIKey)
	cfg.CorsAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CorsAllowedOrigins)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.QwenAPIKey = qwenKeyFromEnv(cfg.QwenAPIKey)
	cfg.GeminiKey = getEnv("GEMINI_API_KEY", cfg.GeminiKey)
	cfg.ElevenLabsKey = getEnv("ELEVENLABS_API_KEY", cfg.ElevenLabsKey)
	cfg.ElevenLabsVoiceID = getEnv("ELEVENLABS_VOICE_ID", cfg.ElevenLabsVoiceID)
	cfg.TTSCommand = getEnv("TTS_COMMAND", cfg.TTSCommand)
	cfg.ManimBin = getEnv("MANIM_BIN", cfg.ManimBin)
	cfg.FFmpegBin = getEnv("FFMPEG_BIN", cfg.FFmpegBin)
	cfg.FFprobeBin = getEnv("FFPROBE_BIN", cfg.FFprobeBin)
	cfg.RenderTimeoutSeconds = getEnvInt("RENDER_TIMEOUT_SECONDS", cfg.RenderTimeoutSeconds)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.MediaDir = getEnv("MEDIA_DIR", cfg.MediaDir)
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)
	cfg.MaxConcurrentJobs = getEnvInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs)

	if cfg.RenderTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("RENDER_TIMEOUT_SECONDS must be positive, got %d", cfg.RenderTimeoutSeconds)
	}

	return cfg, nil
}

// qwenKeyFromEnv resolves the Qwen API key from the historical trio of
// variable names, first match wins.
func qwenKeyFromEnv(fallback string) string {
	for _, key := range []string{"QWEN_API_KEY", "REACT_APP_QWEN_API_KEY", "VITE_QWEN_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}

func defaultConfig() *Config {
	return &Config{
		APIPort:              "8002",
		WorkerEnabled:        true,
		TTSCommand:           "espeak-ng",
		ManimBin:             "manim",
		FFmpegBin:            "ffmpeg",
		FFprobeBin:           "ffprobe",
		RenderTimeoutSeconds: 300,
		OutputDir:            "rendered_videos",
		MediaDir:             "media",
		TempDir:              "temp",
		MaxConcurrentJobs:    2,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
