package health

import "context"

// StorePinger checks feedback/cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ExtractorChecker checks pose extractor backend availability.
type ExtractorChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogReader reports how many reference poses are loaded.
type CatalogReader interface {
	Size() int
}
