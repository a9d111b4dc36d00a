package analyze

import (
	"context"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
)

// Extractor produces a landmark vector from image bytes.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (domain.Vector, error)
}

// CatalogReader serves the current immutable reference set.
type CatalogReader interface {
	Snapshot() []domain.ReferencePose
}

// FeedbackWriter records the latest verdict for a session.
type FeedbackWriter interface {
	Put(ctx context.Context, sessionID, text string) error
}
