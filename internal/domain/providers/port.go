package providers

import "context"

// Kind enum: the two provider families we query
type Kind string

const (
	KindGenerative Kind = "generative"
	KindSearch     Kind = "search"
)

// Config is one entry of the provider catalog. It is loaded once from
// config.yaml and never mutated afterwards; adapters and the audit service
// receive it by value.
type Config struct {
	ID          string  `yaml:"id"`
	Kind        Kind    `yaml:"kind"`
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseURL,omitempty"`
	Weight      float64 `yaml:"weight"`
	CostPerCall float64 `yaml:"costPerCall"`
	Enabled     bool    `yaml:"enabled"`
}

// Query is what the audit hands to an adapter: the user query plus the
// target market code (search providers send it, generative ones ignore it).
type Query struct {
	Text     string
	Location string
}

// Result is the normalized output of one adapter invocation, success or not.
// Cost sums every attempt inside the invocation, including failed ones.
type Result struct {
	Provider  string
	Success   bool
	Response  string
	LatencyMS int64
	Cost      float64
	Attempts  int
	Failure   FailureKind
	Err       string
}

// Adapter port (interface per provider family implementation)
type Adapter interface {
	ID() string
	Kind() Kind
	Invoke(ctx context.Context, q Query) Result
}
