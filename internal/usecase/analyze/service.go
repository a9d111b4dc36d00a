// Package analyze turns an uploaded photo into a pose verdict.
package analyze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	// Decoders for the upload validity check.
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/logger"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
)

// Service runs the analysis pipeline: decode guard, landmark
// extraction, nearest-reference match, feedback write.
type Service struct {
	extractor Extractor
	catalog   CatalogReader
	feedback  FeedbackWriter
	threshold float64
	timeout   time.Duration
}

// New creates an analysis service.
func New(extractor Extractor, catalog CatalogReader, feedback FeedbackWriter, threshold float64, timeout time.Duration) *Service {
	return &Service{
		extractor: extractor,
		catalog:   catalog,
		feedback:  feedback,
		threshold: threshold,
		timeout:   timeout,
	}
}

// Analyze matches the uploaded image against the reference catalog and
// records the verdict as feedback for the session. The feedback write
// completes before Analyze returns, so a later chat call from the same
// session observes it.
func (s *Service) Analyze(ctx context.Context, sessionID string, upload []byte) (domain.MatchResult, error) {
	// The decode guard runs first: the extractor is never invoked for
	// bytes that are not a raster image.
	if _, _, err := image.DecodeConfig(bytes.NewReader(upload)); err != nil {
		metrics.PoseAnalysesTotal.WithLabelValues("invalid_image").Inc()
		return domain.MatchResult{}, fmt.Errorf("decode upload: %w", domain.ErrInvalidImage)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vector, err := s.extractor.Extract(ctx, upload)
	if err != nil {
		return domain.MatchResult{}, s.classifyExtractError(err)
	}
	if err := vector.Validate(); err != nil {
		metrics.PoseAnalysesTotal.WithLabelValues("error").Inc()
		return domain.MatchResult{}, err
	}

	result, err := Match(vector, s.catalog.Snapshot(), s.threshold)
	if err != nil {
		metrics.PoseAnalysesTotal.WithLabelValues("no_reference").Inc()
		return domain.MatchResult{}, err
	}

	metrics.PoseMatchDistance.Observe(result.Distance)
	if result.Correct {
		metrics.PoseAnalysesTotal.WithLabelValues("correct").Inc()
	} else {
		metrics.PoseAnalysesTotal.WithLabelValues("incorrect").Inc()
	}

	if err := s.feedback.Put(ctx, sessionID, FeedbackText(result)); err != nil {
		// The verdict still stands; the next chat turn just won't see it.
		logger.FromContext(ctx).Warn("Failed to store pose feedback",
			zap.String("session", sessionID), zap.Error(err))
	}

	return result, nil
}

// classifyExtractError keeps "no pose" a normal outcome and folds
// everything else into the internal bucket, mapping a deadline hit to
// a descriptive cause.
func (s *Service) classifyExtractError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoPoseDetected):
		metrics.PoseAnalysesTotal.WithLabelValues("no_pose").Inc()
		return err
	case errors.Is(err, context.DeadlineExceeded):
		metrics.PoseAnalysesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("pose analysis timed out after %s: %w", s.timeout, err)
	default:
		metrics.PoseAnalysesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("extract landmarks: %w", err)
	}
}

// FeedbackText renders a verdict as the plain-text context the chat
// service folds into the next turn.
func FeedbackText(r domain.MatchResult) string {
	if r.Correct {
		return fmt.Sprintf(
			"The user's last exercise photo matched reference pose %d (distance %.3f) and was judged correct.",
			r.ReferenceID, r.Distance)
	}
	return fmt.Sprintf(
		"The user's last exercise photo was closest to reference pose %d (distance %.3f) but was judged incorrect.",
		r.ReferenceID, r.Distance)
}
