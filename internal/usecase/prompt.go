package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"csv-summarizer/internal/domain"
)

const (
	systemPrompt = "You are a CSV summarizing agent. You must convert provided rows into a json format"
	promptIntro  = "I have a CSV file that I converted into a string format. " +
		"I want you to process the rows and return a summary in a json format."
)

func buildPromptMessages(rows []domain.Row) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(rows)},
	}
}

// buildPrompt serializes each row onto its own line under a fixed
// instruction. It is deterministic for a given row sequence.
func buildPrompt(rows []domain.Row) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		// Row.MarshalJSON only fails if a string cannot be encoded, which
		// encoding/json never reports for string values.
		b, _ := row.MarshalJSON()
		lines = append(lines, string(b))
	}
	return strings.Join([]string{
		promptIntro,
		"CSV ROWS:",
		strings.Join(lines, "\n"),
	}, "\n")
}

// parseSummary decodes the completion text. Empty text counts as {}. Text
// that is not exactly one JSON value yields a fallback summary together with
// the reason, which callers log and otherwise ignore.
func parseSummary(raw string) (domain.Summary, error) {
	if raw == "" {
		return domain.ParsedSummary(map[string]any{}, raw), nil
	}
	if strings.TrimSpace(raw) == "" {
		return domain.FallbackSummary(raw), errors.New("usecase: decode summary: blank content")
	}

	var value any
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	if err := dec.Decode(&value); err != nil {
		return domain.FallbackSummary(raw), fmt.Errorf("usecase: decode summary: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.FallbackSummary(raw), errors.New("usecase: decode summary: multiple JSON values")
		}
		return domain.FallbackSummary(raw), fmt.Errorf("usecase: decode summary trailing data: %w", err)
	}
	return domain.ParsedSummary(value, raw), nil
}
