package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/brandvisor/internal/domain/providers"
	"github.com/sashabaranov/go-openai"
)

type scriptedAPI struct {
	calls []openai.ChatCompletionRequest
	steps []func() (openai.ChatCompletionResponse, error)
}

func (s *scriptedAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls = append(s.calls, req)
	step := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	return step()
}

func answer(text string) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: text}},
			},
		}, nil
	}
}

func fail(err error) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, err
	}
}

func apiErr(status int) error {
	return &openai.APIError{HTTPStatusCode: status, Message: "nope"}
}

func newTestClient(api chatCompleter) *Client {
	return &Client{api: api, cfg: providers.Config{
		ID: "openai", Kind: providers.KindGenerative, Model: "gpt-4o-mini", CostPerCall: 0.01,
	}}
}

func fastBackoff(t *testing.T) {
	t.Helper()
	old := baseBackoff
	baseBackoff = time.Millisecond
	t.Cleanup(func() { baseBackoff = old })
}

func TestInvoke_Success(t *testing.T) {
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){answer("Acme is great")}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "best x"})

	assert.True(t, res.Success)
	assert.Equal(t, "Acme is great", res.Response)
	assert.Equal(t, 1, res.Attempts)
	assert.InDelta(t, 0.01, res.Cost, 1e-9)

	require.Len(t, api.calls, 1)
	require.Len(t, api.calls[0].Messages, 2, "system steering message included on the first attempt")
	assert.Equal(t, openai.ChatMessageRoleSystem, api.calls[0].Messages[0].Role)
}

func TestInvoke_RetriesTransientThenSucceeds(t *testing.T) {
	fastBackoff(t)
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){
		fail(errors.New("connection reset")),
		fail(apiErr(503)),
		answer("third time lucky"),
	}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.InDelta(t, 0.03, res.Cost, 1e-9, "failed attempts still cost money")
}

func TestInvoke_EmptyResponseRetried(t *testing.T) {
	fastBackoff(t)
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){
		answer("   "),
		answer("real answer"),
	}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.True(t, res.Success)
	assert.Equal(t, "real answer", res.Response)
	assert.Equal(t, 2, res.Attempts)
}

func TestInvoke_AuthNotRetried(t *testing.T) {
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){fail(apiErr(401))}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.False(t, res.Success)
	assert.Equal(t, providers.FailureAuth, res.Failure)
	assert.Len(t, api.calls, 1)
}

func TestInvoke_QuotaNotRetried(t *testing.T) {
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){fail(apiErr(429))}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.False(t, res.Success)
	assert.Equal(t, providers.FailureQuota, res.Failure)
	assert.Len(t, api.calls, 1)
}

func TestInvoke_MalformedRequestDegradesPayload(t *testing.T) {
	fastBackoff(t)
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){
		fail(apiErr(400)),
		answer("degraded worked"),
	}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.True(t, res.Success)
	require.Len(t, api.calls, 2)
	assert.Len(t, api.calls[0].Messages, 2)
	assert.Len(t, api.calls[1].Messages, 1, "degraded retry drops the system message")
	assert.Zero(t, api.calls[1].MaxTokens, "degraded retry drops the token cap")
}

func TestInvoke_MalformedRequestFailsAfterDegradedRetry(t *testing.T) {
	fastBackoff(t)
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){fail(apiErr(400))}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.False(t, res.Success)
	assert.Equal(t, providers.FailureMalformedRequest, res.Failure)
	assert.Len(t, api.calls, 2, "exactly one degraded retry")
}

func TestInvoke_ExhaustsAttemptBudget(t *testing.T) {
	fastBackoff(t)
	api := &scriptedAPI{steps: []func() (openai.ChatCompletionResponse, error){fail(apiErr(500))}}
	res := newTestClient(api).Invoke(context.Background(), providers.Query{Text: "q"})

	assert.False(t, res.Success)
	assert.Equal(t, providers.FailureTransient, res.Failure)
	assert.Equal(t, 3, res.Attempts)
	assert.InDelta(t, 0.03, res.Cost, 1e-9)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want providers.FailureKind
	}{
		{"unauthorized", apiErr(401), providers.FailureAuth},
		{"forbidden", apiErr(403), providers.FailureAuth},
		{"quota", apiErr(429), providers.FailureQuota},
		{"bad request", apiErr(400), providers.FailureMalformedRequest},
		{"server error", apiErr(500), providers.FailureTransient},
		{"network", errors.New("dial tcp: timeout"), providers.FailureTransient},
		{"context deadline", context.DeadlineExceeded, providers.FailureTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err).Kind)
		})
	}
}
