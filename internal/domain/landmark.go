package domain

import "fmt"

// NumLandmarks is the number of body keypoints produced by the pose
// model: one entry per tracked joint, fixed by the extractor
// configuration. Vectors of any other length are not comparable.
const NumLandmarks = 33

// Landmark is a single body keypoint in normalized image-relative
// coordinates.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector is the ordered set of landmarks for one image.
type Vector []Landmark

// Validate checks that the vector has exactly NumLandmarks entries.
func (v Vector) Validate() error {
	if len(v) != NumLandmarks {
		return fmt.Errorf("got %d landmarks, want %d: %w", len(v), NumLandmarks, ErrVectorDimMismatch)
	}
	return nil
}

// Flatten returns the vector as a flat coordinate slice (x0, y0, z0,
// x1, ...) for distance computation.
func (v Vector) Flatten() []float64 {
	flat := make([]float64, 0, len(v)*3)
	for _, lm := range v {
		flat = append(flat, lm.X, lm.Y, lm.Z)
	}
	return flat
}
