package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	healthuc "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/usecase/health"
)

// --- Mocks ---

type mockChat struct {
	reply       string
	err         error
	lastSession string
	lastMessage string
}

func (m *mockChat) Converse(_ context.Context, sessionID, message string) (string, error) {
	m.lastSession = sessionID
	m.lastMessage = message
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockAnalyze struct {
	result      domain.MatchResult
	err         error
	lastSession string
	lastUpload  []byte
}

func (m *mockAnalyze) Analyze(_ context.Context, sessionID string, upload []byte) (domain.MatchResult, error) {
	m.lastSession = sessionID
	m.lastUpload = upload
	if m.err != nil {
		return domain.MatchResult{}, m.err
	}
	return m.result, nil
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(chat *mockChat, analyze *mockAnalyze, health *mockHealth) http.Handler {
	if health == nil {
		health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	s := NewServer(chat, analyze, health, "testdata", "/poses", zap.NewNop())
	r := chirouter.NewRouter()
	r.Use(SessionMiddleware("session_id", "/poses"))
	s.Routes(r)
	return r
}

func postChat(t *testing.T, h http.Handler, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, chatResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp chatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return rr, resp
}

func postPose(t *testing.T, h http.Handler, fileContents []byte) (*httptest.ResponseRecorder, analyzeResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pose.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(fileContents); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/analyze_pose", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp analyzeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return rr, resp
}

// --- Tests ---

func TestChat_Success(t *testing.T) {
	chat := &mockChat{reply: "- Try a short walk"}
	h := newTestRouter(chat, &mockAnalyze{}, nil)

	rr, resp := postChat(t, h, `{"message":"I feel stressed"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if resp.Response != "- Try a short walk" {
		t.Errorf("response = %q", resp.Response)
	}
	if chat.lastMessage != "I feel stressed" {
		t.Errorf("message = %q", chat.lastMessage)
	}
	if chat.lastSession == "" {
		t.Error("handler must thread a session id")
	}
}

func TestChat_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{"empty input", domain.ErrEmptyInput, msgEmptyInput},
		{"off topic", domain.ErrOffTopic, msgOffTopic},
		{"network", fmt.Errorf("chat API error 502: boom: %w", domain.ErrUpstream), "network error: "},
		{"invalid response", domain.ErrInvalidUpstreamResponse, msgInvalidResponse},
		{"internal", fmt.Errorf("some bug"), msgGenericChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockChat{err: tt.err}, &mockAnalyze{}, nil)

			rr, resp := postChat(t, h, `{"message":"hello"}`)
			// Taxonomy outcomes are structured 200s, never 5xx.
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if !strings.HasPrefix(resp.Response, tt.wantPrefix) {
				t.Errorf("response = %q, want prefix %q", resp.Response, tt.wantPrefix)
			}
		})
	}
}

func TestChat_NetworkErrorCarriesCause(t *testing.T) {
	h := newTestRouter(&mockChat{err: fmt.Errorf("chat API error 504: gateway timeout: %w", domain.ErrUpstream)}, &mockAnalyze{}, nil)

	_, resp := postChat(t, h, `{"message":"hello"}`)
	if !strings.Contains(resp.Response, "gateway timeout") {
		t.Errorf("cause missing from %q", resp.Response)
	}
}

func TestChat_MalformedJSON(t *testing.T) {
	h := newTestRouter(&mockChat{}, &mockAnalyze{}, nil)

	rr, _ := postChat(t, h, `{"message":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAnalyzePose_CorrectVerdict(t *testing.T) {
	analyze := &mockAnalyze{result: domain.MatchResult{ReferenceID: 1, Distance: 0.02, Correct: true}}
	h := newTestRouter(&mockChat{}, analyze, nil)

	rr, resp := postPose(t, h, []byte("img-bytes"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if resp.Result != msgCorrectPose {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.ImageURL != nil {
		t.Errorf("correct verdict must not carry an image URL, got %q", *resp.ImageURL)
	}
	if string(analyze.lastUpload) != "img-bytes" {
		t.Errorf("upload not passed through: %q", analyze.lastUpload)
	}
}

func TestAnalyzePose_IncorrectVerdictHasImageURL(t *testing.T) {
	analyze := &mockAnalyze{result: domain.MatchResult{
		ReferenceID: 3, Distance: 0.4, Correct: false, ImageFile: "3.jpg",
	}}
	h := newTestRouter(&mockChat{}, analyze, nil)

	_, resp := postPose(t, h, []byte("img"))
	if resp.Result != msgIncorrectPose {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.ImageURL == nil || *resp.ImageURL != "/poses/3.jpg" {
		t.Errorf("image_url = %v, want /poses/3.jpg", resp.ImageURL)
	}
}

func TestAnalyzePose_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid image", domain.ErrInvalidImage, msgInvalidImage},
		{"no pose", domain.ErrNoPoseDetected, msgNoPose},
		{"no references", domain.ErrNoReferenceAvailable, msgNoReferences},
		{"internal", fmt.Errorf("model crashed"), msgGenericPose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockChat{}, &mockAnalyze{err: tt.err}, nil)

			rr, resp := postPose(t, h, []byte("img"))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if resp.Result != tt.want {
				t.Errorf("result = %q, want %q", resp.Result, tt.want)
			}
			if resp.ImageURL != nil {
				t.Error("taxonomy outcomes carry no image URL")
			}
		})
	}
}

func TestAnalyzePose_UploadTooLarge(t *testing.T) {
	h := newTestRouter(&mockChat{}, &mockAnalyze{}, nil)

	rr, resp := postPose(t, h, bytes.Repeat([]byte{0xAB}, maxUploadBytes+1))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	if resp.Result != msgUploadTooLarge {
		t.Errorf("result = %q, want %q", resp.Result, msgUploadTooLarge)
	}
}

func TestAnalyzePose_MissingFile(t *testing.T) {
	h := newTestRouter(&mockChat{}, &mockAnalyze{}, nil)

	req := httptest.NewRequest("POST", "/analyze_pose", strings.NewReader("no multipart"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		report     healthuc.Report
		wantStatus int
	}{
		{"healthy", healthuc.Report{Status: healthuc.Healthy, ReferencePoses: 4}, http.StatusOK},
		{"degraded", healthuc.Report{Status: healthuc.Degraded}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockChat{}, &mockAnalyze{}, &mockHealth{report: tt.report})

			req := httptest.NewRequest("GET", "/health", http.NoBody)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	chat := &mockChat{reply: "ok"}
	h := newTestRouter(chat, &mockAnalyze{}, nil)

	// First request mints a cookie.
	rr, _ := postChat(t, h, `{"message":"hi"}`)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "session_id" {
		t.Fatalf("expected a session_id cookie, got %v", cookies)
	}
	minted := chat.lastSession

	// Second request with the cookie keeps the same session id.
	rr2, _ := postChat(t, h, `{"message":"hi again"}`, cookies[0])
	if chat.lastSession != minted {
		t.Errorf("session changed: %q vs %q", chat.lastSession, minted)
	}
	if len(rr2.Result().Cookies()) != 0 {
		t.Error("no new cookie should be minted when one is presented")
	}
}

func TestSessionMiddleware_ExemptPaths(t *testing.T) {
	h := newTestRouter(&mockChat{}, &mockAnalyze{}, nil)

	for _, path := range []string{"/health", "/metrics", "/poses/1.jpg"} {
		req := httptest.NewRequest("GET", path, http.NoBody)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if len(rr.Result().Cookies()) != 0 {
			t.Errorf("%s must not mint session cookies", path)
		}
	}
}

func TestSessionMiddleware_ExemptsConfiguredStaticMount(t *testing.T) {
	s := NewServer(&mockChat{}, &mockAnalyze{},
		&mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		"testdata", "/reference-images", zap.NewNop())
	r := chirouter.NewRouter()
	r.Use(SessionMiddleware("session_id", "/reference-images"))
	s.Routes(r)

	req := httptest.NewRequest("GET", "/reference-images/1.jpg", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if len(rr.Result().Cookies()) != 0 {
		t.Error("static image requests must not mint session cookies")
	}
}
