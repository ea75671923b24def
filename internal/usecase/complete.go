package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"openrouter-chat/internal/domain"
	"openrouter-chat/internal/integrations/openrouter"
)

const defaultMaxPrompt = 32_000

type Requester interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

// Recorder persists completed exchanges. Optional.
type Recorder interface {
	Save(ctx context.Context, ex domain.Exchange) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Settings are the per-process defaults applied when CompleteInput leaves a
// field empty.
type Settings struct {
	Model           string
	SystemPrompt    string
	Temperature     *float64
	MaxPromptLength int
}

type CompletionService struct {
	llm      Requester
	recorder Recorder
	logger   *slog.Logger
	settings Settings
}

type CompleteInput struct {
	Prompt       string
	Model        string
	SystemPrompt string
}

type CompleteOutput struct {
	RequestID string
	Model     string
	Response  domain.ChatResponse
}

// NewCompletionService wires the requester. rec and logger may be nil.
func NewCompletionService(llm Requester, rec Recorder, logger *slog.Logger, s Settings) (*CompletionService, error) {
	if llm == nil {
		return nil, errors.New("usecase: requester must not be nil")
	}
	s.Model = strings.TrimSpace(s.Model)
	if s.Model == "" {
		return nil, errors.New("usecase: default model must not be empty")
	}
	if s.MaxPromptLength <= 0 {
		s.MaxPromptLength = defaultMaxPrompt
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CompletionService{
		llm:      llm,
		recorder: rec,
		logger:   logger,
		settings: s,
	}, nil
}

// Complete sends the prompt as a single-turn conversation and returns the
// upstream response untouched.
func (s *CompletionService) Complete(ctx context.Context, in CompleteInput) (CompleteOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return CompleteOutput{}, newError(ErrorInvalidInput, "empty_prompt", nil)
	}
	if utf8.RuneCountInString(prompt) > s.settings.MaxPromptLength {
		return CompleteOutput{}, newError(ErrorInvalidInput, "prompt_too_long", nil)
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.settings.Model
	}
	systemPrompt := in.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = s.settings.SystemPrompt
	}

	requestID := newUUID()
	logger := s.logger.With("request_id", requestID, "model", model)

	resp, err := s.llm.Complete(ctx, domain.ChatRequest{
		Model:       model,
		Messages:    buildMessages(systemPrompt, prompt),
		Temperature: s.settings.Temperature,
	})
	if err != nil {
		mapped := classify(err)
		logger.ErrorContext(ctx, "completion failed", "code", mapped.Code, "reason", mapped.Reason)
		return CompleteOutput{}, mapped
	}
	logger.InfoContext(ctx, "completion succeeded", "response_id", resp.ID())

	if s.recorder != nil {
		ex := domain.Exchange{
			RequestID:  requestID,
			Model:      model,
			Prompt:     prompt,
			ResponseID: resp.ID(),
			Content:    resp.Content(),
		}
		if err := s.recorder.Save(ctx, ex); err != nil {
			logger.WarnContext(ctx, "failed to record exchange", "err", err)
		}
	}

	return CompleteOutput{
		RequestID: requestID,
		Model:     model,
		Response:  resp,
	}, nil
}

func classify(err error) *Error {
	if status, ok := upstreamStatusCode(err); ok {
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return newError(ErrorUnauthorized, "upstream_unauthorized", err)
		case http.StatusTooManyRequests:
			return newError(ErrorRateLimited, "upstream_rate_limited", err)
		default:
			return newError(ErrorUpstream, "upstream_status", err)
		}
	}

	var transportErr *openrouter.TransportError
	var decodeErr *openrouter.DecodeError
	switch {
	case errors.Is(err, openrouter.ErrInvalidRequest):
		return newError(ErrorInvalidInput, "invalid_request", err)
	case errors.Is(err, openrouter.ErrCredential):
		return newError(ErrorInternal, "credential_error", err)
	case errors.Is(err, context.Canceled):
		return newError(ErrorInternal, "cancelled", err)
	case errors.As(err, &transportErr):
		return newError(ErrorUpstream, "transport_error", err)
	case errors.As(err, &decodeErr):
		return newError(ErrorUpstream, "malformed_response", err)
	case errors.Is(err, openrouter.ErrResponseTooLarge):
		return newError(ErrorUpstream, "response_too_large", err)
	}
	return newError(ErrorInternal, "unexpected_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
