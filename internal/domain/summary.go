package domain

import "encoding/json"

// FallbackMessage is the error text stored in place of a summary the
// completion API returned as unparsable JSON.
const FallbackMessage = "Failed to parse AI response"

type SummaryKind int

const (
	// SummaryParsed holds the decoded JSON value of the completion.
	SummaryParsed SummaryKind = iota
	// SummaryFallback marks a completion whose text was not valid JSON.
	SummaryFallback
)

func (k SummaryKind) String() string {
	switch k {
	case SummaryParsed:
		return "parsed"
	case SummaryFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Summary is the result of summarizing a set of rows.
type Summary struct {
	Kind  SummaryKind
	Value any
	Raw   string
}

func ParsedSummary(value any, raw string) Summary {
	return Summary{Kind: SummaryParsed, Value: value, Raw: raw}
}

func FallbackSummary(raw string) Summary {
	return Summary{Kind: SummaryFallback, Raw: raw}
}

func (s Summary) IsFallback() bool {
	return s.Kind == SummaryFallback
}

// Payload returns the value returned to callers and persisted.
func (s Summary) Payload() any {
	if s.Kind == SummaryFallback {
		return map[string]any{"error": FallbackMessage}
	}
	return s.Value
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Payload())
}
