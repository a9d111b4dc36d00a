package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// ReferencePoses is the loaded catalog size; zero means pose
	// analysis is degraded to "no reference available".
	ReferencePoses int
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	extractor ExtractorChecker
	catalog   CatalogReader
}

// New creates a Service. store and extractor can be nil when the
// corresponding driver has no remote backend to check.
func New(store StorePinger, extractor ExtractorChecker, catalog CatalogReader) *Service {
	return &Service{store: store, extractor: extractor, catalog: catalog}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = CheckError
		} else {
			checks["store"] = CheckOK
		}
	}

	if s.extractor != nil {
		if err := s.extractor.HealthCheck(ctx); err != nil {
			checks["extractor"] = CheckError
		} else {
			checks["extractor"] = CheckOK
		}
	}

	report := Report{Status: Healthy, Checks: checks}
	if s.catalog != nil {
		report.ReferencePoses = s.catalog.Size()
		if report.ReferencePoses == 0 {
			checks["catalog"] = CheckError
		} else {
			checks["catalog"] = CheckOK
		}
	}

	for _, v := range checks {
		if v == CheckError {
			report.Status = Degraded
			break
		}
	}

	return report
}
