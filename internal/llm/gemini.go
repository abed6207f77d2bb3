package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mathtutor/videolab/internal/models"
	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini strategy
// Second remote fallback via the Google Gen AI SDK. Only in the chain when
// a GEMINI_API_KEY is configured; uses the server's own key, not the one
// carried in the request.
// ---------------------------------------------------------------------------

const geminiModel = "gemini-2.0-flash"

type GeminiStrategy struct {
	apiKey string
}

func NewGeminiStrategy(apiKey string) *GeminiStrategy {
	return &GeminiStrategy{apiKey: apiKey}
}

func (s *GeminiStrategy) Name() string { return "gemini" }

func (s *GeminiStrategy) Try(ctx context.Context, req *models.ChatRequest) (*models.Completion, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	// Flatten the chat into one prompt; the system turn becomes a preamble.
	prompt := ""
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			prompt += m.Content + "\n\n"
		case "user":
			prompt += m.Content + "\n"
		}
	}

	temperature := float32(req.Temperature)
	resp, err := client.Models.GenerateContent(ctx, geminiModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	log.Printf("[LLM gemini] completion ok (%d chars)", len(text))

	return &models.Completion{
		Text:      text,
		Method:    models.MethodGemini,
		RequestID: fmt.Sprintf("gemini_%d", time.Now().UnixMilli()),
		Usage: models.Usage{
			InputTokens:  len([]rune(prompt)),
			OutputTokens: len([]rune(text)),
		},
	}, nil
}
