package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/brandvisor/internal/domain/providers"
)

const (
	defaultBaseURL = "https://serpapi.com/search.json"
	maxAttempts    = 2
	// how many organic hits go into a synthesized answer when the engine
	// returned no answer box
	synthesizedHits = 5
)

var retryBackoff = time.Second

// Client adapts a SerpAPI-style search endpoint into the search provider
// port. The engine's answer box is used verbatim when present; otherwise an
// answer block is synthesized from the top organic results so the extractors
// downstream see one response string either way.
type Client struct {
	cfg     providers.Config
	baseURL string
	http    *http.Client
}

func NewClient(cfg providers.Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		baseURL: base,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

func (c *Client) ID() string           { return c.cfg.ID }
func (c *Client) Kind() providers.Kind { return providers.KindSearch }

type answerBox struct {
	Answer  string `json:"answer"`
	Snippet string `json:"snippet"`
	Title   string `json:"title"`
	Link    string `json:"link"`
}

type organicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

type searchResponse struct {
	AnswerBox      *answerBox      `json:"answer_box"`
	OrganicResults []organicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

// Invoke runs the search with one simple retry on transient failure.
func (c *Client) Invoke(ctx context.Context, q providers.Query) providers.Result {
	start := time.Now()
	res := providers.Result{Provider: c.cfg.ID}

	var last *providers.CallError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				res.Failure = providers.FailureTimeout
				res.Err = ctx.Err().Error()
				res.LatencyMS = time.Since(start).Milliseconds()
				return res
			}
		}

		res.Attempts = attempt
		text, cerr := c.search(ctx, q)
		res.Cost += c.cfg.CostPerCall
		if cerr == nil {
			res.Success = true
			res.Response = text
			res.LatencyMS = time.Since(start).Milliseconds()
			return res
		}
		last = cerr
		if !cerr.Kind.Retryable() {
			break
		}
	}

	res.Failure = last.Kind
	res.Err = last.Error()
	res.LatencyMS = time.Since(start).Milliseconds()
	return res
}

func (c *Client) search(ctx context.Context, q providers.Query) (string, *providers.CallError) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("api_key", c.cfg.APIKey)
	if q.Location != "" {
		params.Set("gl", strings.ToLower(q.Location))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", providers.NewCallError(providers.FailureMalformedRequest, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", providers.NewCallError(providers.FailureTimeout, ctx.Err())
		}
		return "", providers.NewCallError(providers.FailureTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", providers.NewCallError(providers.FailureAuth, fmt.Errorf("search engine returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", providers.NewCallError(providers.FailureQuota, fmt.Errorf("search engine returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusBadRequest:
		return "", providers.NewCallError(providers.FailureMalformedRequest, fmt.Errorf("search engine returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", providers.NewCallError(providers.FailureTransient, fmt.Errorf("search engine returned %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", providers.NewCallError(providers.FailureTransient, fmt.Errorf("decoding search response: %w", err))
	}
	if body.Error != "" {
		return "", providers.NewCallError(providers.FailureTransient, fmt.Errorf("search engine error: %s", body.Error))
	}

	text := renderResponse(body)
	if strings.TrimSpace(text) == "" {
		return "", providers.NewCallError(providers.FailureEmptyResponse, fmt.Errorf("search returned no results"))
	}
	return text, nil
}

// renderResponse flattens the engine answer into one response string: the
// answer box when present, then the organic hits as a numbered list so rank
// detection works on search results the same way it does on prose.
func renderResponse(body searchResponse) string {
	var sb strings.Builder
	if ab := body.AnswerBox; ab != nil {
		answer := ab.Answer
		if answer == "" {
			answer = ab.Snippet
		}
		if answer != "" {
			sb.WriteString(answer)
			if ab.Link != "" {
				sb.WriteString(" (")
				sb.WriteString(ab.Link)
				sb.WriteString(")")
			}
			sb.WriteString("\n\n")
		}
	}
	for i, r := range body.OrganicResults {
		if i >= synthesizedHits {
			break
		}
		pos := r.Position
		if pos == 0 {
			pos = i + 1
		}
		fmt.Fprintf(&sb, "%d. %s", pos, r.Title)
		if r.Snippet != "" {
			sb.WriteString(" - ")
			sb.WriteString(r.Snippet)
		}
		if r.Link != "" {
			sb.WriteString(" (")
			sb.WriteString(r.Link)
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
