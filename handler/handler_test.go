package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"

	"csv-summarizer/internal/domain"
	"csv-summarizer/internal/integrations/openai"
	"csv-summarizer/internal/repository"
	"csv-summarizer/internal/usecase"
)

type stubUseCase struct {
	out usecase.SummarizeOutput
	err error
	in  usecase.SummarizeInput
}

func (s *stubUseCase) Summarize(_ context.Context, in usecase.SummarizeInput) (usecase.SummarizeOutput, error) {
	s.in = in
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/summaries",
		Headers:    map[string]string{"Content-Type": "text/csv"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

type successBody struct {
	Message string         `json:"message"`
	Summary map[string]any `json:"summary"`
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.SummarizeOutput{
		Summary:  domain.ParsedSummary(map[string]any{"summary": "ok"}, `{"summary":"ok"}`),
		RecordID: "rec-1",
		RowCount: 1,
	}}
	h, err := NewHandler(uc, nil)
	require.NoError(t, err)

	event := makeEvent("bmFtZQpBbGljZQo=")
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.SummarizeInput{Body: "bmFtZQpBbGljZQo=", IsBase64Encoded: true}, uc.in)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	out := parseBody[successBody](t, resp.Body)
	require.Equal(t, "CSV processed successfully", out.Message)
	require.Equal(t, map[string]any{"summary": "ok"}, out.Summary)
}

func TestHandle_FallbackSummaryIsSuccess(t *testing.T) {
	uc := &stubUseCase{out: usecase.SummarizeOutput{Summary: domain.FallbackSummary("garbage")}}
	h, err := NewHandler(uc, nil)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent("a\n1\n"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := parseBody[successBody](t, resp.Body)
	require.Equal(t, map[string]any{"error": "Failed to parse AI response"}, out.Summary)
}

func TestHandle_AllErrorsAre400(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
	}{
		{name: "input", err: &usecase.Error{Kind: usecase.ErrorInput, Message: "No File Uploaded"}, msg: "No File Uploaded"},
		{name: "parse", err: &usecase.Error{Kind: usecase.ErrorParse, Message: "parse csv", Err: errors.New("wrong number of fields")}, msg: "parse csv: wrong number of fields"},
		{name: "upstream", err: &usecase.Error{Kind: usecase.ErrorUpstream, Message: "completion request failed", Err: &openai.HTTPStatusError{StatusCode: 429, URL: "u", Body: "b"}}, msg: "completion request failed: openai: unexpected status 429 from u: b"},
		{name: "storage", err: &usecase.Error{Kind: usecase.ErrorStorage, Message: "store summary failed", Err: errors.New("boom")}, msg: "store summary failed: boom"},
		{name: "unexpected", err: errors.New("boom"), msg: "boom"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewHandler(&stubUseCase{err: tc.err}, nil)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent("a\n1\n"))
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.msg, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, err := NewHandler(&stubUseCase{err: errors.New("boom")}, nil)
	require.NoError(t, err)

	event := makeEvent("a\n1\n")
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

// ---------------------------------------------------------------------------
// End to end through the real service, completion client and repository.
// ---------------------------------------------------------------------------

type recordingDynamo struct {
	err    error
	inputs []*dynamodb.PutItemInput
}

func (r *recordingDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	r.inputs = append(r.inputs, in)
	return &dynamodb.PutItemOutput{}, r.err
}

func newPipeline(t *testing.T, completion string, db *recordingDynamo) (*Handler, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []domain.ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Messages[len(req.Messages)-1].Content)

		content, err := json.Marshal(completion)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":` + string(content) + `}}]}`))
	}))
	t.Cleanup(srv.Close)

	llm, err := openai.NewClient(openai.WithAPIKey("gsk-test"), openai.WithBaseURL(srv.URL))
	require.NoError(t, err)
	store, err := repository.New(db, repository.DefaultTableName)
	require.NoError(t, err)
	svc, err := usecase.NewSummarizeService(llm, store)
	require.NoError(t, err)
	h, err := NewHandler(svc, nil)
	require.NoError(t, err)
	return h, &prompts
}

func TestPipeline_SingleRow(t *testing.T) {
	db := &recordingDynamo{}
	h, prompts := newPipeline(t, `{"summary":"1 person, Alice, age 30"}`, db)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte("name,age\nAlice,30\n")))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[successBody](t, resp.Body)
	require.Equal(t, map[string]any{"summary": "1 person, Alice, age 30"}, out.Summary)

	require.Len(t, *prompts, 1)
	require.Contains(t, (*prompts)[0], `{"name":"Alice","age":"30"}`)

	require.Len(t, db.inputs, 1)
	require.Equal(t, "CSV_Summaries", *db.inputs[0].TableName)
	var stored map[string]any
	require.NoError(t, attributevalue.Unmarshal(db.inputs[0].Item["summary"], &stored))
	require.Equal(t, out.Summary, stored)
}

func TestPipeline_UnparsableCompletionIsPersisted(t *testing.T) {
	db := &recordingDynamo{}
	h, _ := newPipeline(t, "Sure! Here is a summary.", db)

	resp, err := h.Handle(context.Background(), makeEvent("name,age\nAlice,30\n"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[successBody](t, resp.Body)
	require.Equal(t, map[string]any{"error": "Failed to parse AI response"}, out.Summary)
	require.Len(t, db.inputs, 1)
}

func TestPipeline_NoBody(t *testing.T) {
	db := &recordingDynamo{}
	h, prompts := newPipeline(t, `{}`, db)

	resp, err := h.Handle(context.Background(), makeEvent(""))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "No File Uploaded", parseBody[errorResponse](t, resp.Body).Error)
	require.Empty(t, *prompts)
	require.Empty(t, db.inputs)
}

func TestPipeline_StorageFailureHidesSummary(t *testing.T) {
	db := &recordingDynamo{err: errors.New("AccessDeniedException")}
	h, _ := newPipeline(t, `{"summary":"computed"}`, db)

	resp, err := h.Handle(context.Background(), makeEvent("name\nAlice\n"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotContains(t, resp.Body, "computed")
	require.Contains(t, parseBody[errorResponse](t, resp.Body).Error, "AccessDeniedException")
}
