package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"openrouter-chat/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type UseCase interface {
	Complete(ctx context.Context, in usecase.CompleteInput) (usecase.CompleteOutput, error)
}

type completeRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId"`
}

// Handler exposes the completion use case behind API Gateway.
type Handler struct {
	uc     UseCase
	logger *slog.Logger
}

func NewHandler(uc UseCase, logger *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{uc: uc, logger: logger}, nil
}

// Handle answers POST requests with the upstream completion JSON passed
// through unchanged.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	if req.HTTPMethod != http.MethodPost {
		return errorJSON(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", correlationID), nil
	}

	var body completeRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		logger.WarnContext(ctx, "invalid request body", "err", err)
		return errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), correlationID), nil
	}

	out, err := h.uc.Complete(ctx, usecase.CompleteInput{
		Prompt:       body.Prompt,
		Model:        body.Model,
		SystemPrompt: body.SystemPrompt,
	})
	if err != nil {
		status, code := statusFor(err)
		logger.ErrorContext(ctx, "completion request failed", "status", status, "code", code, "err", err)
		return errorJSON(status, code, correlationID), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
			"X-Request-Id":    out.RequestID,
		},
		Body: out.Response.String(),
	}, nil
}

// statusFor maps use case errors to HTTP statuses. Upstream credential
// failures are the server's problem, not the caller's, hence 502.
func statusFor(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, string(ucErr.Code)
	case usecase.ErrorUnauthorized, usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func errorJSON(status int, code, correlationID string) events.APIGatewayProxyResponse {
	b, _ := json.Marshal(errorResponse{Error: code, CorrelationID: correlationID})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(b),
	}
}

// headerValue looks a header up case-insensitively; API Gateway passes
// headers through with client casing.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
