package llm

import (
	"context"
	"log"
	"strings"

	"github.com/mathtutor/videolab/internal/models"
)

// Strategy is one way of obtaining a completion. Strategies are tried in
// order; the first one to return a non-nil completion wins.
type Strategy interface {
	Name() string
	Try(ctx context.Context, req *models.ChatRequest) (*models.Completion, error)
}

// Service walks an ordered strategy chain: SDK call, raw HTTPS mirrors,
// optionally Gemini, and finally the canned fallback which never fails.
type Service struct {
	remotes  []Strategy
	fallback Strategy
}

func NewService(remotes []Strategy) *Service {
	return &Service{
		remotes:  remotes,
		fallback: NewFallbackStrategy(),
	}
}

// Completion obtains a text completion for the request. It never returns an
// error for remote failures — those degrade to the fallback template. The
// caller can distinguish degraded results via Completion.Method.
func (s *Service) Completion(ctx context.Context, req *models.ChatRequest) (*models.Completion, error) {
	req.ApplyDefaults()

	for _, strategy := range s.remotes {
		result, err := strategy.Try(ctx, req)
		if err == nil && result != nil {
			log.Printf("[LLM] strategy %s succeeded (%d chars)", strategy.Name(), len(result.Text))
			return result, nil
		}

		log.Printf("[LLM] strategy %s failed: %v", strategy.Name(), err)

		// A rejected key will be rejected by every mirror too — skip straight
		// to the fallback instead of hammering the remaining endpoints.
		if isCredentialError(err) {
			log.Printf("[LLM] credential rejected, skipping remaining remote strategies")
			break
		}

		if ctx.Err() != nil {
			break
		}
	}

	return s.fallback.Try(ctx, req)
}

// isCredentialError reports whether a remote failure indicates a bad API key
// rather than an unreachable service.
func isCredentialError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "invalid api-key") ||
		strings.Contains(msg, "invalid_api_key") ||
		strings.Contains(msg, "invalidapikey")
}
