package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums

// QuestionCategory is the coarse classification a question falls into when
// the proxy has to answer from a canned template.
type QuestionCategory string

const (
	CategoryEquation QuestionCategory = "equation"
	CategoryGeometry QuestionCategory = "geometry"
	CategoryTheory   QuestionCategory = "theory"
	CategoryGeneral  QuestionCategory = "general"
)

// CompletionMethod records which strategy produced a completion.
type CompletionMethod string

const (
	MethodSDK      CompletionMethod = "sdk"
	MethodHTTP     CompletionMethod = "http"
	MethodGemini   CompletionMethod = "gemini"
	MethodFallback CompletionMethod = "fallback"
)

type RenderStatus string

const (
	RenderStatusPending   RenderStatus = "pending"
	RenderStatusRunning   RenderStatus = "running"
	RenderStatusSucceeded RenderStatus = "succeeded"
	RenderStatusFailed    RenderStatus = "failed"
	RenderStatusTimedOut  RenderStatus = "timed_out"
)

// Chat types

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	APIKey      string    `json:"api_key,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

// Question returns the content of the last user message — that entry is
// treated as "the question" for classification and fallback templating.
func (r *ChatRequest) Question() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ApplyDefaults fills the sampling parameters the original callers left unset.
func (r *ChatRequest) ApplyDefaults() {
	if r.Temperature == 0 {
		r.Temperature = 0.1
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = 1000
	}
	if r.TopP == 0 {
		r.TopP = 0.8
	}
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Completion is the result of the strategy chain, whichever strategy won.
type Completion struct {
	Text      string           `json:"text"`
	Method    CompletionMethod `json:"method"`
	RequestID string           `json:"request_id"`
	Usage     Usage            `json:"usage"`
}

// Render types

// RenderJob describes one scene render. OutputName doubles as the temp-file
// stem and the final artifact filename, so it must be unique per job.
type RenderJob struct {
	ID         uuid.UUID `json:"id"`
	Script     string    `json:"script"`
	OutputName string    `json:"output_name"`
	SceneName  string    `json:"scene_name"`
	AudioPath  string    `json:"audio_path,omitempty"` // pre-synthesized narration to mux
	Narration  string    `json:"narration,omitempty"`  // text to synthesize via TTS
	Question   string    `json:"question,omitempty"`   // provenance for the manifest
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact is the product of a successful render.
type Artifact struct {
	VideoPath    string `json:"video_path"`
	ByteSize     int64  `json:"byte_size"`
	SegmentCount int    `json:"segment_count"`
}

// Render is the manifest row tying an output_name to its provenance.
type Render struct {
	ID           uuid.UUID    `json:"id"`
	OutputName   string       `json:"output_name"`
	SceneName    string       `json:"scene_name"`
	Question     *string      `json:"question,omitempty"`
	Status       RenderStatus `json:"status"`
	VideoPath    *string      `json:"video_path,omitempty"`
	ByteSize     *int64       `json:"byte_size,omitempty"`
	SegmentCount *int         `json:"segment_count,omitempty"`
	ErrorKind    *string      `json:"error_kind,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DTOs for API responses

type ChatCompletionResponse struct {
	Output    ChatOutput       `json:"output"`
	Usage     Usage            `json:"usage"`
	RequestID string           `json:"request_id"`
	Method    CompletionMethod `json:"method"`
}

type ChatOutput struct {
	Text string `json:"text"`
}

type RenderRequest struct {
	Script     string `json:"script"`
	OutputName string `json:"output_name"`
	SceneName  string `json:"scene_name"`
	AudioPath  string `json:"audio_path,omitempty"`
	Narration  string `json:"narration,omitempty"`
	Question   string `json:"question,omitempty"`
}

type RenderResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	VideoPath    string `json:"video_path,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	Size         int64  `json:"size,omitempty"`
	SegmentCount int    `json:"segment_count,omitempty"`
	Error        string `json:"error,omitempty"`
}

// GenerateVideoRequest drives the question-to-video pipeline. When Steps is
// empty the solution text is obtained from the LLM chain and split into steps.
type GenerateVideoRequest struct {
	Question   string   `json:"question"`
	Steps      []string `json:"steps,omitempty"`
	OutputName string   `json:"output_name"`
	APIKey     string   `json:"api_key,omitempty"`
	SceneName  string   `json:"scene_name,omitempty"`
}

type MergeRequest struct {
	VideoPath  string `json:"video_path"`
	AudioPath  string `json:"audio_path"`
	OutputName string `json:"output_name,omitempty"`
}

type MergeResponse struct {
	Success        bool   `json:"success"`
	FinalVideoPath string `json:"final_video_path,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	DurationMs     int    `json:"duration_ms,omitempty"`
	Message        string `json:"message"`
	Error          string `json:"error,omitempty"`
}

type CreateRenderJobResponse struct {
	JobID  uuid.UUID    `json:"job_id"`
	Status RenderStatus `json:"status"`
}
