package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mathtutor/videolab/internal/models"
)

// ---------------------------------------------------------------------------
// Mirror strategy
// Raw HTTPS POST against the DashScope native text-generation endpoints,
// tried in order. Short-circuits on the first response whose JSON body
// carries an "output" field.
// ---------------------------------------------------------------------------

var defaultMirrorEndpoints = []string{
	"https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
	"https://api.dashscope.com/v1/services/aigc/text-generation/generation",
}

type MirrorStrategy struct {
	endpoints []string
	client    *http.Client
}

func NewMirrorStrategy() *MirrorStrategy {
	return &MirrorStrategy{
		endpoints: defaultMirrorEndpoints,
		// Proxy from HTTP(S)_PROXY env is honored by the default transport.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MirrorStrategy) Name() string { return "http" }

// mirrorRequest is the DashScope native request shape.
type mirrorRequest struct {
	Model      string           `json:"model"`
	Input      mirrorInput      `json:"input"`
	Parameters mirrorParameters `json:"parameters"`
}

type mirrorInput struct {
	Messages []models.Message `json:"messages"`
}

type mirrorParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float64 `json:"top_p"`
}

type mirrorResponse struct {
	Output *struct {
		Text string `json:"text"`
	} `json:"output"`
	Usage     models.Usage `json:"usage"`
	RequestID string       `json:"request_id"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
}

func (s *MirrorStrategy) Try(ctx context.Context, req *models.ChatRequest) (*models.Completion, error) {
	payload, err := json.Marshal(mirrorRequest{
		Model: qwenModel,
		Input: mirrorInput{Messages: req.Messages},
		Parameters: mirrorParameters{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			TopP:        req.TopP,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mirror request: %w", err)
	}

	var lastErr error
	for _, endpoint := range s.endpoints {
		result, err := s.tryEndpoint(ctx, endpoint, req.APIKey, payload)
		if err == nil {
			return result, nil
		}

		log.Printf("[LLM http] endpoint %s failed: %v", endpoint, err)
		lastErr = err

		if isCredentialError(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("all mirror endpoints failed: %w", lastErr)
}

func (s *MirrorStrategy) tryEndpoint(ctx context.Context, endpoint, apiKey string, payload []byte) (*models.Completion, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "MathTutor-AI/1.0")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed mirrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Output == nil {
		return nil, fmt.Errorf("response missing output field (code=%s, message=%s)", parsed.Code, parsed.Message)
	}

	return &models.Completion{
		Text:      parsed.Output.Text,
		Method:    models.MethodHTTP,
		RequestID: parsed.RequestID,
		Usage:     parsed.Usage,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
