package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/mathtutor/videolab/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// SDK strategy
// First choice: the DashScope OpenAI-compatible endpoint via the go-openai
// client. Model qwen-plus, chat-completion shape.
// ---------------------------------------------------------------------------

const (
	dashScopeCompatibleBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	qwenModel                  = "qwen-plus"
)

type SDKStrategy struct {
	baseURL string
}

func NewSDKStrategy() *SDKStrategy {
	return &SDKStrategy{baseURL: dashScopeCompatibleBaseURL}
}

func (s *SDKStrategy) Name() string { return "sdk" }

func (s *SDKStrategy) Try(ctx context.Context, req *models.ChatRequest) (*models.Completion, error) {
	// The key travels with the request, so the client is built per call.
	cfg := openai.DefaultConfig(req.APIKey)
	cfg.BaseURL = s.baseURL
	client := openai.NewClientWithConfig(cfg)

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       qwenModel,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		TopP:        float32(req.TopP),
	})
	if err != nil {
		return nil, fmt.Errorf("dashscope sdk request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("dashscope sdk returned no choices")
	}

	log.Printf("[LLM sdk] completion ok (request_id=%s, tokens=%d/%d)",
		resp.ID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &models.Completion{
		Text:      resp.Choices[0].Message.Content,
		Method:    models.MethodSDK,
		RequestID: resp.ID,
		Usage: models.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
