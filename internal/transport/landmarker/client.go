// Package landmarker is the client for the pose-landmark sidecar: the
// external pose-estimation model exposed as image-in, landmarks-out
// over HTTP.
package landmarker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
)

// Client calls the pose-landmark sidecar.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds the sidecar connection settings.
type Config struct {
	BaseURL string
	Logger  *zap.Logger
}

// NewClient creates a sidecar client. Request deadlines come from the
// caller's context.
func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		logger:  cfg.Logger,
	}
}

// landmarksResponse mirrors the sidecar's JSON response. An empty
// landmark list means the model found no pose in the image.
type landmarksResponse struct {
	Landmarks []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"landmarks"`
}

// Extract implements domain.Extractor.
func (c *Client) Extract(ctx context.Context, image []byte) (domain.Vector, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/landmarks", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build landmark request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()

	res, err := c.http.Do(req)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "error").Inc()
		return nil, fmt.Errorf("landmarker request: %v: %w", err, domain.ErrExtractorUnavailable)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("landmarker status %d: %s: %w", res.StatusCode, string(body), domain.ErrExtractorUnavailable)
	}

	// The sidecar signals "no pose" either as 204 (or an empty body) or
	// as an empty landmark list.
	if res.StatusCode == http.StatusNoContent {
		metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "no_pose").Inc()
		return nil, domain.ErrNoPoseDetected
	}

	var parsed landmarksResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		if errors.Is(err, io.EOF) {
			metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "no_pose").Inc()
			return nil, domain.ErrNoPoseDetected
		}
		metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "error").Inc()
		return nil, fmt.Errorf("decode landmark response: %v: %w", err, domain.ErrExtractorUnavailable)
	}

	if len(parsed.Landmarks) == 0 {
		metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "no_pose").Inc()
		return nil, domain.ErrNoPoseDetected
	}

	metrics.ExtractorRequestsTotal.WithLabelValues("landmarker", "success").Inc()
	metrics.ExtractorRequestDuration.WithLabelValues("landmarker").Observe(duration.Seconds())

	vec := make(domain.Vector, len(parsed.Landmarks))
	for i, lm := range parsed.Landmarks {
		vec[i] = domain.Landmark{X: lm.X, Y: lm.Y, Z: lm.Z}
	}
	if err := vec.Validate(); err != nil {
		return nil, fmt.Errorf("landmarker response: %w", err)
	}
	return vec, nil
}

// HealthCheck probes the sidecar's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("landmarker health: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("landmarker health status %d", res.StatusCode)
	}
	return nil
}
