package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"csv-summarizer/internal/domain"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	defaultTimeout = 30 * time.Second
	keyParamSuffix = "/completion-api-key"

	maxErrorBody    = 4 << 10
	maxResponseBody = 4 << 20
)

type completionRequest struct {
	Model          string               `json:"model"`
	Messages       []domain.ChatMessage `json:"messages"`
	ResponseFormat responseFormat       `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError is returned when the completion API answers with a non-2xx
// status.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to an OpenAI-compatible chat completion API (OpenAI, Groq)
// and always asks for a JSON object reply.
type Client struct {
	endpoint   string
	httpClient *http.Client
	keys       keySource
}

type settings struct {
	baseURL     string
	httpClient  *http.Client
	staticKey   string
	getter      Getter
	paramPrefix string
}

type Option func(*settings)

func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		if u := strings.TrimSpace(baseURL); u != "" {
			s.baseURL = u
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *settings) {
		s.httpClient = httpClient
	}
}

// WithAPIKey sets the API key directly. It takes precedence over WithParamStore.
func WithAPIKey(key string) Option {
	return func(s *settings) {
		s.staticKey = strings.TrimSpace(key)
	}
}

// WithParamStore reads the API key from {paramPrefix}/completion-api-key.
func WithParamStore(getter Getter, paramPrefix string) Option {
	return func(s *settings) {
		s.getter = getter
		s.paramPrefix = paramPrefix
	}
}

// NewClient creates a Client. Either WithAPIKey or WithParamStore must be
// given.
func NewClient(opts ...Option) (*Client, error) {
	s := settings{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&s)
	}

	var keys keySource = staticKey(s.staticKey)
	if s.staticKey == "" {
		psKey, err := newParamStoreKey(s.getter, s.paramPrefix)
		if err != nil {
			return nil, err
		}
		keys = psKey
	}

	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint:   completionsURL(s.baseURL),
		httpClient: httpClient,
		keys:       keys,
	}, nil
}

func completionsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/chat/completions"
}

// Chat sends messages to the completion endpoint and returns the content of
// the first choice.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}
	key, err := c.keys.apiKey(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(completionRequest{
		Model:          model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	body, err := c.post(ctx, key, payload)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

// post sends payload to the completions endpoint and returns the 2xx body.
func (c *Client) post(ctx context.Context, key string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: c.endpoint, Body: string(snippet)}
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
