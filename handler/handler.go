package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"csv-summarizer/internal/domain"
	"csv-summarizer/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	successMessage    = "CSV processed successfully"
)

type SummarizeUseCase interface {
	Summarize(ctx context.Context, in usecase.SummarizeInput) (usecase.SummarizeOutput, error)
}

type summaryResponse struct {
	Message string         `json:"message"`
	Summary domain.Summary `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	uc     SummarizeUseCase
	logger *slog.Logger
}

func NewHandler(uc SummarizeUseCase, logger *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{uc: uc, logger: logger}, nil
}

// Handle processes one upload. Every failure becomes a 400 response carrying
// the error message; the returned Lambda error is always nil.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(req.Headers)
	log := h.logger.With("correlation_id", correlationID)

	out, err := h.uc.Summarize(ctx, usecase.SummarizeInput{
		Body:            req.Body,
		IsBase64Encoded: req.IsBase64Encoded,
	})
	if err != nil {
		logFailure(ctx, log, err)
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: err.Error()}), nil
	}

	log.InfoContext(ctx, "csv summarized",
		"record_id", out.RecordID,
		"rows", out.RowCount,
		"summary_kind", out.Summary.Kind.String(),
	)
	return jsonResponse(http.StatusOK, correlationID, summaryResponse{
		Message: successMessage,
		Summary: out.Summary,
	}), nil
}

func logFailure(ctx context.Context, log *slog.Logger, err error) {
	attrs := []any{"err", err}
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		attrs = append(attrs, "kind", string(ucErr.Kind))
	}
	if status, ok := usecase.UpstreamStatusCode(err); ok {
		attrs = append(attrs, "upstream_status", status)
	}
	log.ErrorContext(ctx, "csv summarize failed", attrs...)
}

func jsonResponse(status int, correlationID string, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusBadRequest
		body, _ = json.Marshal(errorResponse{Error: err.Error()})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}
