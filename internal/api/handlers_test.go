package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mathtutor/videolab/internal/llm"
	"github.com/mathtutor/videolab/internal/media"
	"github.com/mathtutor/videolab/internal/models"
	"github.com/mathtutor/videolab/internal/renderer"
	"github.com/mathtutor/videolab/internal/tts"
)

func testHandler(t *testing.T, manimBin string) *Handler {
	t.Helper()
	root := t.TempDir()
	toolchain := media.NewToolchain("ffmpeg", "ffprobe", filepath.Join(root, "temp"))
	runner := renderer.New(
		manimBin,
		filepath.Join(root, "temp"),
		filepath.Join(root, "media"),
		filepath.Join(root, "out"),
		10*time.Second,
		toolchain,
	)
	// No remote strategies: every completion lands on the fallback.
	svc := llm.NewService(nil)
	return NewHandler(svc, runner, toolchain, nil, nil, nil, "env-key", filepath.Join(root, "out"))
}

type fixedTTS struct{}

func (fixedTTS) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	return &tts.Result{AudioData: []byte("fake-wav"), Format: "wav"}, nil
}

// fakeManim writes the expected artifact so renders succeed without manim.
func fakeManim(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manim")
	script := `#!/bin/sh
stem=$(basename "$1" .py)
mkdir -p "$7/videos/$stem/1080p60"
printf 'fake video bytes' > "$7/videos/$stem/1080p60/$stem.mp4"
`
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}
	return path
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testHandler(t, "manim")
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s, want status ok", rec.Body.String())
	}
}

func TestQwenCompletionBadJSON(t *testing.T) {
	h := testHandler(t, "manim")
	req := httptest.NewRequest("POST", "/api/qwen", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.QwenCompletion(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQwenCompletionMissingMessages(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.QwenCompletion, models.ChatRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQwenCompletionMissingKey(t *testing.T) {
	h := testHandler(t, "manim")
	h.qwenKey = "" // no env default either
	rec := postJSON(t, h.QwenCompletion, models.ChatRequest{
		Messages: []models.Message{{Role: "user", Content: "什么是质数"}},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQwenCompletionFallsBack(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.QwenCompletion, models.ChatRequest{
		Messages: []models.Message{{Role: "user", Content: "解方程 2x+5=15"}},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp models.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Method != models.MethodFallback {
		t.Errorf("method = %q, want fallback", resp.Method)
	}
	if resp.Output.Text == "" {
		t.Error("output text should not be empty")
	}
}

func TestManimRenderMissingScript(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.ManimRender, models.RenderRequest{OutputName: "video_1"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestManimRenderRejectsPathTraversal(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.ManimRender, models.RenderRequest{
		Script:     "from manim import *",
		OutputName: "../etc/passwd",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestManimRenderSuccess(t *testing.T) {
	h := testHandler(t, fakeManim(t))
	rec := postJSON(t, h.ManimRender, models.RenderRequest{
		Script:     "from manim import *\n",
		OutputName: "tutorial_1",
		SceneName:  "SolutionScene",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp models.RenderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
	if resp.VideoURL != "/rendered_videos/tutorial_1.mp4" {
		t.Errorf("video_url = %q", resp.VideoURL)
	}
	if resp.Size == 0 {
		t.Error("size should be nonzero")
	}
}

// fakeFFmpeg creates its output (the last argument) so merges succeed.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := `#!/bin/sh
for a in "$@"; do out="$a"; done
printf 'merged bytes' > "$out"
`
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}
	return path
}

// Narration without a configured TTS provider must be rejected up front,
// never answered with a silent video.
func TestManimRenderNarrationWithoutTTS(t *testing.T) {
	h := testHandler(t, fakeManim(t))
	rec := postJSON(t, h.ManimRender, models.RenderRequest{
		Script:     "from manim import *\n",
		OutputName: "narrated_1",
		Narration:  "先移项，再两边同除以2",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "TTS") {
		t.Errorf("body should explain the missing TTS provider: %s", rec.Body.String())
	}
}

// With a provider configured, narration on the sync path is synthesized and
// merged onto the render; the intermediate audio file is cleaned up.
func TestManimRenderNarrationSynthesized(t *testing.T) {
	root := t.TempDir()
	tempDir := filepath.Join(root, "temp")
	outDir := filepath.Join(root, "out")
	toolchain := media.NewToolchain(fakeFFmpeg(t), "ffprobe", tempDir)
	runner := renderer.New(fakeManim(t), tempDir, filepath.Join(root, "media"), outDir, 10*time.Second, toolchain)
	h := NewHandler(llm.NewService(nil), runner, toolchain, nil, nil, fixedTTS{}, "env-key", outDir)

	rec := postJSON(t, h.ManimRender, models.RenderRequest{
		Script:     "from manim import *\n",
		OutputName: "narrated_2",
		Narration:  "先移项，再两边同除以2",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp models.RenderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
	if resp.VideoURL != "/rendered_videos/narrated_2_with_audio.mp4" {
		t.Errorf("video_url = %q, want merged output", resp.VideoURL)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "narrated_2_narration.wav")); !os.IsNotExist(err) {
		t.Errorf("synthesized narration should be removed after merge, stat err = %v", err)
	}
}

func TestManimRenderConflict(t *testing.T) {
	h := testHandler(t, fakeManim(t))

	if !h.runner.Locks().Acquire("busy_output") {
		t.Fatal("setup: could not acquire lock")
	}
	defer h.runner.Locks().Release("busy_output")

	rec := postJSON(t, h.ManimRender, models.RenderRequest{
		Script:     "from manim import *\n",
		OutputName: "busy_output",
	})

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateVideoMissingQuestion(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.GenerateVideo, models.GenerateVideoRequest{OutputName: "v1"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateVideoWithSteps(t *testing.T) {
	h := testHandler(t, fakeManim(t))
	rec := postJSON(t, h.GenerateVideo, models.GenerateVideoRequest{
		Question:   "求半径为3的圆的面积",
		Steps:      []string{"面积公式 S = πr²", "代入 r=3，S = 9π"},
		OutputName: "circle_area_1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp models.RenderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
	if resp.VideoURL != "/rendered_videos/circle_area_1.mp4" {
		t.Errorf("video_url = %q", resp.VideoURL)
	}
}

// With no remote strategies the solution comes from the fallback templates,
// which still yields renderable steps.
func TestGenerateVideoFromFallbackSolution(t *testing.T) {
	h := testHandler(t, fakeManim(t))
	rec := postJSON(t, h.GenerateVideo, models.GenerateVideoRequest{
		Question:   "解方程 2x+5=15",
		OutputName: "equation_1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestMergeAudioVideoMissingPaths(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.MergeAudioVideo, models.MergeRequest{VideoPath: "only_video.mp4"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateRenderJobWithoutQueue(t *testing.T) {
	h := testHandler(t, "manim")
	rec := postJSON(t, h.CreateRenderJob, models.RenderRequest{
		Script:     "from manim import *\n",
		OutputName: "queued_1",
	})

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetRenderJobWithoutStore(t *testing.T) {
	h := testHandler(t, "manim")
	req := httptest.NewRequest("GET", "/api/render_jobs/abc", nil)
	rec := httptest.NewRecorder()
	h.GetRenderJob(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := APIKeyAuth("secret")(next)

	tests := []struct {
		name   string
		header func(*http.Request)
		want   int
	}{
		{"missing key", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong key", func(r *http.Request) { r.Header.Set("X-API-Key", "nope") }, http.StatusForbidden},
		{"correct key", func(r *http.Request) { r.Header.Set("X-API-Key", "secret") }, http.StatusOK},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/qwen", nil)
		tt.header(req)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}
