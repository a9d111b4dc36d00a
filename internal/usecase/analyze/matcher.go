package analyze

import (
	"math"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
)

// Match finds the reference pose nearest to the user vector by L2
// distance over the flattened landmark coordinates and thresholds the
// distance into a verdict. references must be sorted by ascending id;
// because only a strictly smaller distance displaces the best entry,
// equal distances resolve to the lowest id. Never mutates references.
func Match(user domain.Vector, references []domain.ReferencePose, threshold float64) (domain.MatchResult, error) {
	if len(references) == 0 {
		return domain.MatchResult{}, domain.ErrNoReferenceAvailable
	}

	flat := user.Flatten()

	best := 0
	bestDist := math.Inf(1)
	for i, ref := range references {
		d := euclidean(flat, ref.Vector.Flatten())
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	nearest := references[best]
	result := domain.MatchResult{
		ReferenceID: nearest.ID,
		Distance:    bestDist,
		Correct:     bestDist < threshold,
	}
	// Show the nearest reference only when the user got it wrong.
	if !result.Correct {
		result.ImageFile = nearest.ImageFile
	}
	return result, nil
}

// euclidean computes the L2 norm of a-b. Equal lengths are the
// caller's responsibility; vectors are validated on extraction.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
