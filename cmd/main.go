package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"csv-summarizer/handler"
	"csv-summarizer/internal/integrations/openai"
	"csv-summarizer/internal/integrations/paramstore"
	"csv-summarizer/internal/repository"
	"csv-summarizer/internal/usecase"
)

func main() {
	ctx := context.Background()

	// A missing .env is normal inside Lambda.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	summaryTable := envOr("SUMMARY_TABLE", repository.DefaultTableName)
	apiKey := strings.TrimSpace(os.Getenv("API_KEY"))
	paramPrefix := strings.TrimSpace(os.Getenv("PARAM_PREFIX"))
	baseURL := envOr("COMPLETION_BASE_URL", openai.DefaultBaseURL)
	model := envOr("COMPLETION_MODEL", usecase.DefaultModel)
	timeout := envDuration("COMPLETION_TIMEOUT", 30*time.Second)
	paramDecrypt := envBool("PARAM_DECRYPT", true)

	if apiKey == "" && paramPrefix == "" {
		slog.Error("one of API_KEY or PARAM_PREFIX must be set")
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	llmOpts := []openai.Option{
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if apiKey != "" {
		llmOpts = append(llmOpts, openai.WithAPIKey(apiKey))
	} else {
		var psOpts []paramstore.Option
		if !paramDecrypt {
			psOpts = append(psOpts, paramstore.WithoutDecryption())
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg), psOpts...)
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		llmOpts = append(llmOpts, openai.WithParamStore(ssmClient, paramPrefix))
	}
	llmClient, err := openai.NewClient(llmOpts...)
	if err != nil {
		slog.Error("failed to create completion client", "err", err)
		os.Exit(1)
	}

	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), summaryTable)
	if err != nil {
		slog.Error("failed to create summary store", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	svc, err := usecase.NewSummarizeService(llmClient, store, usecase.WithModel(model), usecase.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create summarize service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(svc, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
