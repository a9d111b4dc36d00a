// Package gemini is an alternative pose-landmark extractor that
// prompts a Gemini vision model into strict landmark JSON.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
)

const extractPrompt = "Locate the single most prominent person in the image and return the 33 " +
	"standard body pose landmarks (nose, eyes, ears, shoulders, elbows, wrists, hips, knees, " +
	"ankles, heels, foot tips and hand points) in order, as normalized image-relative " +
	"coordinates. If no person or pose is visible, return an empty landmarks list."

// Extractor implements domain.Extractor on top of a Gemini vision model.
type Extractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// Config holds the Gemini extractor settings.
type Config struct {
	APIKey string
	Model  string
	Logger *zap.Logger
}

// NewExtractor creates a Gemini-backed extractor.
func NewExtractor(ctx context.Context, cfg *Config) (*Extractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.0)
	model.SetTopK(1)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = landmarksSchema()

	return &Extractor{client: client, model: model, logger: cfg.Logger}, nil
}

// Close releases the underlying client.
func (e *Extractor) Close() error {
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("close gemini client: %w", err)
	}
	return nil
}

// Extract implements domain.Extractor.
func (e *Extractor) Extract(ctx context.Context, image []byte) (domain.Vector, error) {
	parts := []genai.Part{
		genai.Text(extractPrompt),
		genai.ImageData(imageFormat(image), image),
	}

	start := time.Now()

	resp, err := e.model.GenerateContent(ctx, parts...)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractorRequestsTotal.WithLabelValues("gemini", "error").Inc()
		return nil, fmt.Errorf("gemini generate: %v: %w", err, domain.ErrExtractorUnavailable)
	}

	vec, err := parseLandmarks(responseText(resp))
	if err != nil {
		metrics.ExtractorRequestsTotal.WithLabelValues("gemini", "error").Inc()
		return nil, err
	}
	if vec == nil {
		metrics.ExtractorRequestsTotal.WithLabelValues("gemini", "no_pose").Inc()
		return nil, domain.ErrNoPoseDetected
	}

	metrics.ExtractorRequestsTotal.WithLabelValues("gemini", "success").Inc()
	metrics.ExtractorRequestDuration.WithLabelValues("gemini").Observe(duration.Seconds())
	return vec, nil
}

// landmarksSchema constrains the model output to the landmark JSON the
// parser expects.
func landmarksSchema() *genai.Schema {
	coord := &genai.Schema{Type: genai.TypeNumber}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"landmarks": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"x": coord,
						"y": coord,
						"z": coord,
					},
					Required: []string{"x", "y", "z"},
				},
			},
		},
		Required: []string{"landmarks"},
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return b.String()
}

// parseLandmarks decodes the model's landmark JSON. Returns (nil, nil)
// for an explicit empty landmark list, meaning no pose was found.
func parseLandmarks(text string) (domain.Vector, error) {
	// Strip markdown fences in case the model adds them despite the
	// response MIME type.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var parsed struct {
		Landmarks []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
			Z float64 `json:"z"`
		} `json:"landmarks"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse gemini landmarks: %v: %w", err, domain.ErrExtractorUnavailable)
	}

	if len(parsed.Landmarks) == 0 {
		return nil, nil
	}

	vec := make(domain.Vector, len(parsed.Landmarks))
	for i, lm := range parsed.Landmarks {
		vec[i] = domain.Landmark{X: lm.X, Y: lm.Y, Z: lm.Z}
	}
	if err := vec.Validate(); err != nil {
		return nil, fmt.Errorf("gemini landmarks: %w", err)
	}
	return vec, nil
}

// imageFormat sniffs the format label genai.ImageData expects.
func imageFormat(image []byte) string {
	if http.DetectContentType(image) == "image/png" {
		return "png"
	}
	return "jpeg"
}
