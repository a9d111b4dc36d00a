// Package chat proxies user messages to the assistant upstream,
// folding in the latest pose verdict for the session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/logger"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
)

// systemPrompt constrains the assistant to the meditation/exercise
// domain. The refusal instruction stays active even when the keyword
// pre-filter is enabled.
const systemPrompt = "You are a helpful meditation and exercise assistant. " +
	"Respond ONLY with short, 1-line bullet points. Do NOT go off topic. " +
	"Do not accept or answer inappropriate or unrelated questions."

// Service orchestrates one chat turn.
type Service struct {
	upstream Upstream
	feedback FeedbackReader
	filter   *TopicFilter // nil when the pre-filter is disabled
	timeout  time.Duration
}

// New creates a chat service. filter may be nil to disable the keyword
// pre-filter.
func New(upstream Upstream, feedback FeedbackReader, filter *TopicFilter, timeout time.Duration) *Service {
	return &Service{
		upstream: upstream,
		feedback: feedback,
		filter:   filter,
		timeout:  timeout,
	}
}

// Converse runs one chat turn for a session. Empty and filtered
// messages are rejected locally; no upstream call is made for them.
func (s *Service) Converse(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		metrics.ChatRequestsTotal.WithLabelValues("empty").Inc()
		return "", domain.ErrEmptyInput
	}

	if s.filter != nil && !s.filter.Allows(message) {
		metrics.ChatRequestsTotal.WithLabelValues("filtered").Inc()
		return "", domain.ErrOffTopic
	}

	userMessage := s.withFeedbackContext(ctx, sessionID, message)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.upstream.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return "", s.classifyUpstreamError(err)
	}

	metrics.ChatRequestsTotal.WithLabelValues("success").Inc()
	return reply, nil
}

// withFeedbackContext prepends the stored pose verdict, when present,
// to the user message as plain text so the assistant can reference it.
// Feedback read failures degrade to a context-free turn.
func (s *Service) withFeedbackContext(ctx context.Context, sessionID, message string) string {
	feedback, ok, err := s.feedback.Get(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to read pose feedback",
			zap.String("session", sessionID), zap.Error(err))
		return message
	}
	if !ok {
		return message
	}
	return feedback + "\n\n" + message
}

func (s *Service) classifyUpstreamError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidUpstreamResponse):
		metrics.ChatRequestsTotal.WithLabelValues("invalid_response").Inc()
		return err
	case errors.Is(err, domain.ErrUpstream):
		metrics.ChatRequestsTotal.WithLabelValues("upstream_error").Inc()
		return err
	case errors.Is(err, context.DeadlineExceeded):
		// A timeout is a transport failure from the caller's view.
		metrics.ChatRequestsTotal.WithLabelValues("upstream_error").Inc()
		return fmt.Errorf("upstream timed out after %s: %w", s.timeout, domain.ErrUpstream)
	default:
		metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("chat turn: %w", err)
	}
}
