package prompt

import "fmt"

// GetSystemPrompt steers the model toward auditable answers: concrete names
// and URLs, no clarifying questions back at us.
func GetSystemPrompt() string {
	return `You are answering a consumer research question. Answer directly and concretely.

Requirements:
- Name specific brands, products and companies; prefer ranked or numbered lists where a ranking is natural.
- Include source URLs for claims when you know them.
- Do not ask clarifying questions; if the question is ambiguous, answer the most common interpretation.
- Keep the answer under 400 words.`
}

// GetUserPrompt builds the user message around the audited query. The market
// code is appended as a hint when present; generative providers have no
// location parameter of their own.
func GetUserPrompt(query, location string) string {
	if location == "" {
		return query
	}
	return fmt.Sprintf("%s (market: %s)", query, location)
}
