package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.APIPort != "8002" {
		t.Errorf("APIPort = %q, want 8002", cfg.APIPort)
	}
	if cfg.RenderTimeoutSeconds != 300 {
		t.Errorf("RenderTimeoutSeconds = %d, want 300", cfg.RenderTimeoutSeconds)
	}
	if cfg.ManimBin != "manim" || cfg.FFmpegBin != "ffmpeg" {
		t.Errorf("tool defaults = %q, %q", cfg.ManimBin, cfg.FFmpegBin)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL default = %q, want empty (sync-only)", cfg.RedisURL)
	}
}

func TestRenderTimeout(t *testing.T) {
	cfg := &Config{RenderTimeoutSeconds: 120}
	if got := cfg.RenderTimeout(); got != 2*time.Minute {
		t.Errorf("RenderTimeout() = %v, want 2m", got)
	}
}

func TestQwenKeyFromEnvPrecedence(t *testing.T) {
	t.Setenv("QWEN_API_KEY", "")
	t.Setenv("REACT_APP_QWEN_API_KEY", "react-key")
	t.Setenv("VITE_QWEN_API_KEY", "vite-key")

	if got := qwenKeyFromEnv(""); got != "react-key" {
		t.Errorf("qwenKeyFromEnv = %q, want react-key", got)
	}

	t.Setenv("QWEN_API_KEY", "primary-key")
	if got := qwenKeyFromEnv(""); got != "primary-key" {
		t.Errorf("qwenKeyFromEnv = %q, want primary-key", got)
	}
}

func TestQwenKeyFromEnvFallback(t *testing.T) {
	t.Setenv("QWEN_API_KEY", "")
	t.Setenv("REACT_APP_QWEN_API_KEY", "")
	t.Setenv("VITE_QWEN_API_KEY", "")

	if got := qwenKeyFromEnv("file-key"); got != "file-key" {
		t.Errorf("qwenKeyFromEnv = %q, want file-key", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videolab.yaml")
	content := "api_port: \"9000\"\nrender_timeout_seconds: 60\nmanim_bin: /opt/manim/bin/manim\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile() error = %v", err)
	}

	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q, want 9000", cfg.APIPort)
	}
	if cfg.RenderTimeoutSeconds != 60 {
		t.Errorf("RenderTimeoutSeconds = %d, want 60", cfg.RenderTimeoutSeconds)
	}
	if cfg.ManimBin != "/opt/manim/bin/manim" {
		t.Errorf("ManimBin = %q", cfg.ManimBin)
	}
	// Untouched fields keep their defaults.
	if cfg.FFmpegBin != "ffmpeg" {
		t.Errorf("FFmpegBin = %q, want default ffmpeg", cfg.FFmpegBin)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := loadConfigFile("/nonexistent/videolab.yaml"); err == nil {
		t.Error("loadConfigFile of missing path should fail")
	}

	cfg, err := loadConfigFile("")
	if err != nil {
		t.Fatalf("loadConfigFile(\"\") error = %v", err)
	}
	if cfg.APIPort != "8002" {
		t.Error("empty path should return defaults")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("VIDEOLAB_TEST_STR", "value")
	t.Setenv("VIDEOLAB_TEST_BOOL", "false")
	t.Setenv("VIDEOLAB_TEST_INT", "42")

	if got := getEnv("VIDEOLAB_TEST_STR", "default"); got != "value" {
		t.Errorf("getEnv = %q", got)
	}
	if got := getEnv("VIDEOLAB_TEST_UNSET", "default"); got != "default" {
		t.Errorf("getEnv unset = %q", got)
	}
	if got := getEnvBool("VIDEOLAB_TEST_BOOL", true); got != false {
		t.Error("getEnvBool should parse false")
	}
	if got := getEnvInt("VIDEOLAB_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt = %d", got)
	}
	if got := getEnvInt("VIDEOLAB_TEST_STR", 7); got != 7 {
		t.Errorf("getEnvInt non-numeric = %d, want default", got)
	}
}
