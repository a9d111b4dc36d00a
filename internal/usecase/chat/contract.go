package chat

import "context"

// Upstream is the chat-completion backend. Implementations return the
// first completion's text and classify failures with the domain
// sentinels (ErrUpstream, ErrInvalidUpstreamResponse).
type Upstream interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// FeedbackReader serves the latest pose verdict for a session.
type FeedbackReader interface {
	Get(ctx context.Context, sessionID string) (string, bool, error)
}
