package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// keySource yields the bearer key sent with every completion request.
type keySource interface {
	apiKey(ctx context.Context) (string, error)
}

type staticKey string

func (k staticKey) apiKey(context.Context) (string, error) {
	return string(k), nil
}

// paramStoreKey reads the key from an SSM parameter holding {"token":"..."}.
// Only a successful lookup is cached; a failed one is retried on the next call.
type paramStoreKey struct {
	getter Getter
	name   string

	mu     sync.Mutex
	loaded bool
	key    string
}

func newParamStoreKey(getter Getter, prefix string) (*paramStoreKey, error) {
	if getter == nil {
		return nil, errors.New("openai: api key or paramstore getter must be provided")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	return &paramStoreKey{getter: getter, name: prefix + keyParamSuffix}, nil
}

func (p *paramStoreKey) apiKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.key, nil
	}

	raw, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("openai: load api key %q: %w", p.name, err)
	}
	key, err := decodeKeyParameter(raw)
	if err != nil {
		return "", fmt.Errorf("openai: load api key %q: %w", p.name, err)
	}
	p.key, p.loaded = key, true
	return key, nil
}

func decodeKeyParameter(raw string) (string, error) {
	var v struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", fmt.Errorf("parameter is not JSON: %w", err)
	}
	token := strings.TrimSpace(v.Token)
	if token == "" {
		return "", errors.New("token field is empty")
	}
	return token, nil
}
