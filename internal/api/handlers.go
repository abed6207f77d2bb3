package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mathtutor/videolab/internal/llm"
	"github.com/mathtutor/videolab/internal/media"
	"github.com/mathtutor/videolab/internal/models"
	"github.com/mathtutor/videolab/internal/queue"
	"github.com/mathtutor/videolab/internal/renderer"
	"github.com/mathtutor/videolab/internal/script"
	"github.com/mathtutor/videolab/internal/store"
	"github.com/mathtutor/videolab/internal/tts"
)

const defaultSceneName = "MathSolutionScene"

type Handler struct {
	llm       *llm.Service
	runner    *renderer.Runner
	toolchain *media.Toolchain
	store     *store.Store // nil when no manifest is configured
	queue     *queue.Queue // nil when async jobs are disabled
	tts       tts.Service  // nil when no provider is configured
	qwenKey   string       // env-resolved default, request body key wins
	outputDir string
}

func NewHandler(llmSvc *llm.Service, runner *renderer.Runner, toolchain *media.Toolchain, st *store.Store, q *queue.Queue, ttsSvc tts.Service, qwenKey, outputDir string) *Handler {
	return &Handler{
		llm:       llmSvc,
		runner:    runner,
		toolchain: toolchain,
		store:     st,
		queue:     q,
		tts:       ttsSvc,
		qwenKey:   qwenKey,
		outputDir: outputDir,
	}
}

// QwenCompletion handles POST /api/qwen
func (h *Handler) QwenCompletion(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "messages is required")
		return
	}

	if req.APIKey == "" {
		req.APIKey = h.qwenKey
	}
	if req.APIKey == "" {
		respondError(w, http.StatusBadRequest, "API key is required: set api_key in the request or QWEN_API_KEY in the environment")
		return
	}

	req.ApplyDefaults()

	completion, err := h.llm.Completion(r.Context(), &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Completion failed")
		return
	}

	respondJSON(w, http.StatusOK, models.ChatCompletionResponse{
		Output:    models.ChatOutput{Text: completion.Text},
		Usage:     completion.Usage,
		RequestID: completion.RequestID,
		Method:    completion.Method,
	})
}

// ManimRender handles POST /api/manim_render — the synchronous render path.
func (h *Handler) ManimRender(w http.ResponseWriter, r *http.Request) {
	var req models.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := renderJobFromRequest(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AudioPath == "" && req.Narration != "" && h.tts == nil {
		respondError(w, http.StatusBadRequest, "narration requires a configured TTS provider: supply audio_path or submit the job to /api/render_jobs")
		return
	}

	h.recordPending(r, job)

	artifact, err := h.runner.Render(r.Context(), job)
	if err != nil {
		h.recordOutcome(r, job, nil, err)
		respondJSON(w, renderErrorStatus(err), models.RenderResponse{
			Success: false,
			Message: "Render failed",
			Error:   err.Error(),
		})
		return
	}

	audioPath := req.AudioPath
	if audioPath == "" && req.Narration != "" {
		res, synthErr := h.tts.Synthesize(r.Context(), req.Narration)
		if synthErr == nil {
			audioPath = h.toolchain.TempFile(fmt.Sprintf("%s_narration.%s", job.OutputName, res.Format))
			synthErr = os.WriteFile(audioPath, res.AudioData, 0644)
		}
		if synthErr != nil {
			h.recordOutcome(r, job, nil, synthErr)
			respondJSON(w, http.StatusInternalServerError, models.RenderResponse{
				Success: false,
				Message: "Render succeeded but narration synthesis failed",
				Error:   synthErr.Error(),
			})
			return
		}
		defer h.toolchain.Cleanup(audioPath)
	}

	if audioPath != "" {
		ext := filepath.Ext(artifact.VideoPath)
		merged := strings.TrimSuffix(artifact.VideoPath, ext) + "_with_audio" + ext
		if err := h.toolchain.MergeAudio(r.Context(), artifact.VideoPath, audioPath, merged); err != nil {
			h.recordOutcome(r, job, nil, err)
			respondJSON(w, http.StatusInternalServerError, models.RenderResponse{
				Success: false,
				Message: "Render succeeded but audio merge failed",
				Error:   err.Error(),
			})
			return
		}
		artifact.VideoPath = merged
		if info, statErr := os.Stat(merged); statErr == nil {
			artifact.ByteSize = info.Size()
		}
	}
	h.recordOutcome(r, job, artifact, nil)

	respondJSON(w, http.StatusOK, models.RenderResponse{
		Success:      true,
		Message:      "Render completed",
		VideoPath:    artifact.VideoPath,
		VideoURL:     "/rendered_videos/" + filepath.Base(artifact.VideoPath),
		Size:         artifact.ByteSize,
		SegmentCount: artifact.SegmentCount,
	})
}

// GenerateVideo handles POST /api/generate_video — the question-to-video
// pipeline: solve (or take supplied steps), materialize a scene, render.
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.OutputName == "" {
		respondError(w, http.StatusBadRequest, "output_name is required")
		return
	}
	if err := validateOutputName(req.OutputName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	steps := req.Steps
	if len(steps) == 0 {
		apiKey := req.APIKey
		if apiKey == "" {
			apiKey = h.qwenKey
		}
		if apiKey == "" {
			respondError(w, http.StatusBadRequest, "API key is required: set api_key in the request or QWEN_API_KEY in the environment")
			return
		}
		completion, err := h.llm.Completion(r.Context(), &models.ChatRequest{
			APIKey: apiKey,
			Messages: []models.Message{
				{Role: "system", Content: "你是一个数学老师，请分步讲解下面的题目。"},
				{Role: "user", Content: req.Question},
			},
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to obtain solution")
			return
		}
		steps = script.SplitSentences(completion.Text)
	}
	if len(steps) == 0 {
		respondError(w, http.StatusBadRequest, "no solution steps to animate")
		return
	}

	sceneName := req.SceneName
	if sceneName == "" {
		sceneName = defaultSceneName
	}

	source := script.MaterializeGeometry(req.Question, steps, sceneName)

	job := &models.RenderJob{
		ID:         uuid.New(),
		Script:     source,
		OutputName: req.OutputName,
		SceneName:  sceneName,
		Question:   req.Question,
		CreatedAt:  time.Now(),
	}
	h.recordPending(r, job)

	artifact, err := h.runner.Render(r.Context(), job)
	if err != nil {
		h.recordOutcome(r, job, nil, err)
		respondJSON(w, renderErrorStatus(err), models.RenderResponse{
			Success: false,
			Message: "Render failed",
			Error:   err.Error(),
		})
		return
	}
	h.recordOutcome(r, job, artifact, nil)

	respondJSON(w, http.StatusOK, models.RenderResponse{
		Success:      true,
		Message:      "Video generated",
		VideoPath:    artifact.VideoPath,
		VideoURL:     "/rendered_videos/" + filepath.Base(artifact.VideoPath),
		Size:         artifact.ByteSize,
		SegmentCount: artifact.SegmentCount,
	})
}

// MergeAudioVideo handles POST /api/merge_audio_video
func (h *Handler) MergeAudioVideo(w http.ResponseWriter, r *http.Request) {
	var req models.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.VideoPath == "" || req.AudioPath == "" {
		respondError(w, http.StatusBadRequest, "video_path and audio_path are required")
		return
	}

	outputName := req.OutputName
	if outputName == "" {
		base := filepath.Base(req.VideoPath)
		outputName = strings.TrimSuffix(base, filepath.Ext(base)) + "_with_audio"
	}
	if err := validateOutputName(outputName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	finalPath := filepath.Join(h.outputDir, outputName+".mp4")
	if err := h.toolchain.MergeAudio(r.Context(), req.VideoPath, req.AudioPath, finalPath); err != nil {
		respondJSON(w, http.StatusInternalServerError, models.MergeResponse{
			Success: false,
			Message: "Merge failed",
			Error:   err.Error(),
		})
		return
	}

	var size int64
	if info, err := os.Stat(finalPath); err == nil {
		size = info.Size()
	}

	// Duration is best-effort: a broken ffprobe shouldn't fail the merge.
	durationMs, err := h.toolchain.ProbeDurationMs(r.Context(), finalPath)
	if err != nil {
		log.Printf("[API] failed to probe merged video duration: %v", err)
	}

	respondJSON(w, http.StatusOK, models.MergeResponse{
		Success:        true,
		Message:        "Merge completed",
		FinalVideoPath: finalPath,
		FileSize:       size,
		DurationMs:     durationMs,
	})
}

// CreateRenderJob handles POST /api/render_jobs — the async render path.
func (h *Handler) CreateRenderJob(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, http.StatusServiceUnavailable, "Async rendering is not configured")
		return
	}

	var req models.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := renderJobFromRequest(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.recordPending(r, job)

	if err := h.queue.EnqueueRender(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue render job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateRenderJobResponse{
		JobID:  job.ID,
		Status: models.RenderStatusPending,
	})
}

// GetRenderJob handles GET /api/render_jobs/{id}
func (h *Handler) GetRenderJob(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Render manifest is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	render, err := h.store.GetRender(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Render job not found")
		return
	}

	respondJSON(w, http.StatusOK, render)
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func renderJobFromRequest(req *models.RenderRequest) (*models.RenderJob, error) {
	if req.Script == "" {
		return nil, fmt.Errorf("script is required")
	}
	if req.OutputName == "" {
		return nil, fmt.Errorf("output_name is required")
	}
	if err := validateOutputName(req.OutputName); err != nil {
		return nil, err
	}

	sceneName := req.SceneName
	if sceneName == "" {
		sceneName = defaultSceneName
	}

	return &models.RenderJob{
		ID:         uuid.New(),
		Script:     req.Script,
		OutputName: req.OutputName,
		SceneName:  sceneName,
		AudioPath:  req.AudioPath,
		Narration:  req.Narration,
		Question:   req.Question,
		CreatedAt:  time.Now(),
	}, nil
}

// validateOutputName rejects names that would escape the output directory.
func validateOutputName(name string) error {
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("output_name must not contain path separators")
	}
	return nil
}

// renderErrorStatus maps the render failure taxonomy onto HTTP statuses.
func renderErrorStatus(err error) int {
	var rerr *renderer.RenderError
	if !errors.As(err, &rerr) {
		return http.StatusInternalServerError
	}
	switch rerr.Kind {
	case renderer.KindConflict:
		return http.StatusConflict
	case renderer.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) recordPending(r *http.Request, job *models.RenderJob) {
	if h.store == nil {
		return
	}
	question := &job.Question
	if job.Question == "" {
		question = nil
	}
	rec := &models.Render{
		ID:         job.ID,
		OutputName: job.OutputName,
		SceneName:  job.SceneName,
		Question:   question,
		Status:     models.RenderStatusPending,
	}
	if err := h.store.CreateRender(r.Context(), rec); err != nil {
		log.Printf("[API] failed to record pending render %s: %v", job.ID, err)
	}
}

func (h *Handler) recordOutcome(r *http.Request, job *models.RenderJob, artifact *models.Artifact, renderErr error) {
	if h.store == nil {
		return
	}

	if renderErr == nil {
		if err := h.store.CompleteRender(r.Context(), job.ID, artifact); err != nil {
			log.Printf("[API] failed to record completed render %s: %v", job.ID, err)
		}
		return
	}

	kind := string(renderer.KindExit)
	var rerr *renderer.RenderError
	if errors.As(renderErr, &rerr) {
		kind = string(rerr.Kind)
	}
	if err := h.store.FailRender(r.Context(), job.ID, renderer.StatusFor(renderErr), kind, renderErr.Error()); err != nil {
		log.Printf("[API] failed to record failed render %s: %v", job.ID, err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
