package domain

// ReferencePose is one entry of the reference catalog: a numbered
// image with its precomputed landmark vector. Immutable after load.
type ReferencePose struct {
	ID        int
	ImageFile string
	Vector    Vector
}

// MatchResult is the outcome of comparing a user vector against the
// catalog.
type MatchResult struct {
	ReferenceID int
	Distance    float64
	Correct     bool
	// ImageFile names the nearest reference image for display. Set
	// only when the verdict is incorrect.
	ImageFile string
}
