package domain

import "context"

// Extractor is the shared pose-landmark extraction contract between
// layers. Implementations wrap an external pose-estimation model:
// image bytes in, ordered landmark vector out. Stateless with respect
// to call history and safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Vector, error)
}

// HealthChecker verifies extractor backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
