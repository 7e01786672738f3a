// Package llm generates chat answers and session titles through a hosted
// chat-completion endpoint.
package llm

import "context"

// Completer sends one user prompt to a chat-completion endpoint and returns
// the generated text. An empty model falls back to the client's default.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}
