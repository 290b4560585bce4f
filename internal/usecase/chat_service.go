package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ChatModel answers a free-form prompt given optional betting context.
type ChatModel interface {
	Reply(ctx context.Context, prompt, couponContext string) (string, error)
}

// ChatService fronts the language model with fixture-aware context: when
// the caller names leagues, the current BTTS analysis is injected into
// the prompt so answers reference live data.
type ChatService struct {
	model    ChatModel
	fixtures *FixtureService
	analysis *AnalysisService
	logger   *slog.Logger
}

func NewChatService(model ChatModel, fixtures *FixtureService, analysis *AnalysisService, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{model: model, fixtures: fixtures, analysis: analysis, logger: logger}
}

// Ask forwards the prompt to the model. Context assembly is best effort:
// a failed fixture fetch degrades to a context-free answer.
func (s *ChatService) Ask(ctx context.Context, prompt string, sportKeys []string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChatService.Ask")
	defer span.End()

	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}

	couponContext := ""
	if len(sportKeys) > 0 {
		fixtures, err := s.fixtures.FixturesForAll(ctx, sportKeys)
		if err != nil {
			s.logger.WarnContext(ctx, "chat context unavailable", "error", err)
		} else {
			couponContext = s.analysis.RenderReport(s.analysis.Analyze(ctx, fixtures))
		}
	}

	answer, err := s.model.Reply(ctx, prompt, couponContext)
	if err != nil {
		return "", fmt.Errorf("%w: chat model: %v", ErrDependencyUnavailable, err)
	}
	return answer, nil
}
