package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"csv-summarizer/internal/domain"
)

const (
	DefaultModel = "llama-3.3-70b-versatile"
	maxLoggedRaw = 512
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type SummaryWriter interface {
	SaveSummary(ctx context.Context, summary domain.Summary, rowCount int) (domain.SummaryRecord, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type SummarizeService struct {
	llm    LLMClient
	store  SummaryWriter
	model  string
	logger *slog.Logger
}

type SummarizeInput struct {
	Body            string
	IsBase64Encoded bool
}

type SummarizeOutput struct {
	Summary  domain.Summary
	RecordID string
	RowCount int
}

type Option func(*SummarizeService)

func WithModel(model string) Option {
	return func(s *SummarizeService) {
		if m := strings.TrimSpace(model); m != "" {
			s.model = m
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *SummarizeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSummarizeService(llm LLMClient, store SummaryWriter, opts ...Option) (*SummarizeService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: summary writer must not be nil")
	}
	s := &SummarizeService{
		llm:    llm,
		store:  store,
		model:  DefaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Summarize runs decode, parse, prompt, completion and persist in order and
// stops at the first failure.
func (s *SummarizeService) Summarize(ctx context.Context, in SummarizeInput) (SummarizeOutput, error) {
	data, err := decodeBody(in.Body, in.IsBase64Encoded)
	if err != nil {
		return SummarizeOutput{}, err
	}

	rows, err := parseCSV(ctx, data)
	if err != nil {
		return SummarizeOutput{}, err
	}
	s.logger.DebugContext(ctx, "parsed csv", "rows", len(rows), "bytes", len(data))

	raw, err := s.llm.Chat(ctx, s.model, buildPromptMessages(rows))
	if err != nil {
		return SummarizeOutput{}, newError(ErrorUpstream, "completion request failed", err)
	}

	summary, parseErr := parseSummary(raw)
	if parseErr != nil {
		s.logger.WarnContext(ctx, "failed to parse completion response",
			"err", parseErr,
			"raw", truncate(summary.Raw, maxLoggedRaw),
		)
	}

	record, err := s.store.SaveSummary(ctx, summary, len(rows))
	if err != nil {
		return SummarizeOutput{}, newError(ErrorStorage, "store summary failed", err)
	}

	return SummarizeOutput{
		Summary:  summary,
		RecordID: record.ID,
		RowCount: len(rows),
	}, nil
}

// UpstreamStatusCode reports the HTTP status of a failed completion call, if
// the cause carries one.
func UpstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
