// Package chi is the HTTP surface: two compatibility endpoints
// (POST /chat, POST /analyze_pose) plus health, metrics, and the
// reference image mount.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/logger"
	healthuc "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/usecase/health"
)

// maxUploadBytes bounds pose photo uploads.
const maxUploadBytes = 10 << 20

// User-facing messages for the error taxonomy. Every taxonomy outcome
// is a normal JSON response, not a 5xx: the frontend always renders a
// structured result.
const (
	msgEmptyInput      = "error: please enter a message"
	msgOffTopic        = "I can only help with meditation and exercise topics. Please ask me something in that area."
	msgInvalidResponse = "error: invalid response from assistant"
	msgGenericChat     = "error: something went wrong, please try again"

	msgCorrectPose    = "Correct pose! Great job."
	msgIncorrectPose  = "Pose needs adjustment. Compare with the reference pose shown."
	msgInvalidImage   = "Could not read that image. Please upload a valid photo."
	msgNoPose         = "No pose detected. Try a clearer, full-body photo."
	msgNoReferences   = "Pose checking is temporarily unavailable. Please try again later."
	msgGenericPose    = "Something went wrong analyzing your pose. Please try again."
	msgUploadTooLarge = "error: uploaded file is too large"
)

// ChatService runs one chat turn.
type ChatService interface {
	Converse(ctx context.Context, sessionID, message string) (string, error)
}

// AnalyzeService runs the pose analysis pipeline.
type AnalyzeService interface {
	Analyze(ctx context.Context, sessionID string, upload []byte) (domain.MatchResult, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server implements the HTTP API.
type Server struct {
	chat       ChatService
	analyze    AnalyzeService
	health     HealthService
	posesDir   string
	publicPath string
	logger     *zap.Logger
}

// NewServer creates an HTTP API server. posesDir is served read-only
// under publicPath so incorrect verdicts can show the nearest
// reference image.
func NewServer(
	chat ChatService,
	analyze AnalyzeService,
	health HealthService,
	posesDir string,
	publicPath string,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:       chat,
		analyze:    analyze,
		health:     health,
		posesDir:   posesDir,
		publicPath: publicPath,
		logger:     logger,
	}
}

// Routes registers all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/chat", s.handleChat)
	r.Post("/analyze_pose", s.handleAnalyzePose)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, s.publicPath+"/*",
		http.StripPrefix(s.publicPath+"/", http.FileServer(http.Dir(s.posesDir))))
}

// chatRequest mirrors the frontend's chat payload.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse carries both replies and taxonomy error text.
type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Response: "error: invalid request"})
		return
	}

	sessionID, _ := SessionFromContext(r.Context())

	reply, err := s.chat.Converse(r.Context(), sessionID, req.Message)
	if err != nil {
		writeJSON(w, http.StatusOK, chatResponse{Response: s.chatErrorMessage(r.Context(), err)})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// chatErrorMessage maps the chat error taxonomy to user-facing text.
// The "network error" prefix distinguishes retryable transport
// failures from everything else.
func (s *Server) chatErrorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return msgEmptyInput
	case errors.Is(err, domain.ErrOffTopic):
		return msgOffTopic
	case errors.Is(err, domain.ErrUpstream):
		return "network error: " + err.Error()
	case errors.Is(err, domain.ErrInvalidUpstreamResponse):
		logger.FromContext(ctx).Error("Invalid chat upstream response", zap.Error(err))
		return msgInvalidResponse
	default:
		logger.FromContext(ctx).Error("Chat turn failed", zap.Error(err))
		return msgGenericChat
	}
}

// analyzeResponse mirrors the frontend's pose analysis payload.
type analyzeResponse struct {
	Result   string  `json:"result"`
	ImageURL *string `json:"image_url"`
}

func (s *Server) handleAnalyzePose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, analyzeResponse{Result: msgUploadTooLarge})
			return
		}
		writeJSON(w, http.StatusBadRequest, analyzeResponse{Result: "error: missing file upload"})
		return
	}
	defer file.Close()

	upload, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, analyzeResponse{Result: "error: could not read upload"})
		return
	}

	sessionID, _ := SessionFromContext(r.Context())

	result, err := s.analyze.Analyze(r.Context(), sessionID, upload)
	if err != nil {
		writeJSON(w, http.StatusOK, analyzeResponse{Result: s.analyzeErrorMessage(r.Context(), err)})
		return
	}

	resp := analyzeResponse{Result: msgCorrectPose}
	if !result.Correct {
		url := path.Join(s.publicPath, result.ImageFile)
		resp = analyzeResponse{Result: msgIncorrectPose, ImageURL: &url}
	}
	writeJSON(w, http.StatusOK, resp)
}

// analyzeErrorMessage maps the analysis error taxonomy to user-facing
// text. Only unclassified failures are logged at error level;
// "no pose" and "invalid image" are normal outcomes.
func (s *Server) analyzeErrorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidImage):
		return msgInvalidImage
	case errors.Is(err, domain.ErrNoPoseDetected):
		return msgNoPose
	case errors.Is(err, domain.ErrNoReferenceAvailable):
		return msgNoReferences
	default:
		logger.FromContext(ctx).Error("Pose analysis failed", zap.Error(err))
		return msgGenericPose
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":          report.Status,
		"checks":          report.Checks,
		"reference_poses": report.ReferencePoses,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
