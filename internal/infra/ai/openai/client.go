package openai

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/bryanwahyu/brandvisor/internal/domain/providers"
    "github.com/bryanwahyu/brandvisor/internal/infra/ai/prompt"
    "github.com/sashabaranov/go-openai"
)

const (
    maxTokens   = 2048
    maxAttempts = 3
)

// baseBackoff doubles per retry: 2s before the second attempt, 4s before the
// third, 8s if the budget were ever raised.
var baseBackoff = 2 * time.Second

// chatCompleter is the slice of the go-openai client the adapter needs;
// tests substitute it.
type chatCompleter interface {
    CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client adapts an OpenAI-compatible chat endpoint into the generative
// provider port. Perplexity-style APIs work through BaseURL.
type Client struct {
    api chatCompleter
    cfg providers.Config
}

func NewClient(cfg providers.Config) *Client {
    oc := openai.DefaultConfig(cfg.APIKey)
    if cfg.BaseURL != "" {
        oc.BaseURL = cfg.BaseURL
    }
    return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}
}

func (c *Client) ID() string           { return c.cfg.ID }
func (c *Client) Kind() providers.Kind { return providers.KindGenerative }

// Invoke runs the chat completion with up to 3 attempts. Transient and
// empty-response failures back off and retry; auth and quota failures fail
// immediately; a malformed-request failure retries once with a degraded
// payload (optional fields dropped). Cost accumulates across attempts,
// including failed ones.
func (c *Client) Invoke(ctx context.Context, q providers.Query) providers.Result {
    start := time.Now()
    res := providers.Result{Provider: c.cfg.ID}
    degraded := false

    var last *providers.CallError
    for attempt := 1; attempt <= maxAttempts; attempt++ {
        if attempt > 1 {
            backoff := baseBackoff << (attempt - 2)
            select {
            case <-time.After(backoff):
            case <-ctx.Done():
                res.Failure = providers.FailureTimeout
                res.Err = ctx.Err().Error()
                res.LatencyMS = time.Since(start).Milliseconds()
                return res
            }
        }

        res.Attempts = attempt
        text, cerr := c.complete(ctx, q, degraded)
        res.Cost += c.cfg.CostPerCall
        if cerr == nil {
            res.Success = true
            res.Response = text
            res.LatencyMS = time.Since(start).Milliseconds()
            return res
        }

        last = cerr
        switch cerr.Kind {
        case providers.FailureAuth, providers.FailureQuota, providers.FailureTimeout:
            // fatal per-provider, no retry
            res.Failure = cerr.Kind
            res.Err = cerr.Error()
            res.LatencyMS = time.Since(start).Milliseconds()
            return res
        case providers.FailureMalformedRequest:
            if degraded {
                // already retried with the degraded payload once
                res.Failure = cerr.Kind
                res.Err = cerr.Error()
                res.LatencyMS = time.Since(start).Milliseconds()
                return res
            }
            degraded = true
        }
    }

    res.Failure = last.Kind
    res.Err = last.Error()
    res.LatencyMS = time.Since(start).Milliseconds()
    return res
}

func (c *Client) complete(ctx context.Context, q providers.Query, degraded bool) (string, *providers.CallError) {
    model := c.cfg.Model
    if model == "" {
        model = openai.GPT4oMini
    }

    req := openai.ChatCompletionRequest{
        Model: model,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(q.Text, q.Location)},
        },
    }
    if !degraded {
        // the system steering message and token cap are the optional fields
        // dropped when a provider rejects the request shape
        req.Messages = append([]openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
        }, req.Messages...)
        if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
            req.MaxCompletionTokens = maxTokens
        } else {
            req.MaxTokens = maxTokens
        }
    }

    resp, err := c.api.CreateChatCompletion(ctx, req)
    if err != nil {
        return "", classify(err)
    }
    if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
        return "", providers.NewCallError(providers.FailureEmptyResponse, fmt.Errorf("provider returned no content"))
    }
    return resp.Choices[0].Message.Content, nil
}

// classify maps the provider error envelope onto the failure taxonomy so the
// retry loop stays free of status-code checks.
func classify(err error) *providers.CallError {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) {
        switch apiErr.HTTPStatusCode {
        case 401, 403:
            return providers.NewCallError(providers.FailureAuth, err)
        case 429:
            return providers.NewCallError(providers.FailureQuota, err)
        case 400, 422:
            return providers.NewCallError(providers.FailureMalformedRequest, err)
        }
    }
    if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
        return providers.NewCallError(providers.FailureTimeout, err)
    }
    return providers.NewCallError(providers.FailureTransient, err)
}
