package http

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
	"time"

	"event-feedback-service/internal/app"
	"event-feedback-service/internal/domain"
	"event-feedback-service/internal/infra/memory"
	"event-feedback-service/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestCreateEventAndSubmit(t *testing.T) {
	router := NewRouter(newTestService(t), nil)

	rec := do(t, router, "POST", "/v1/events", `{"eventType":"conference","anonymousMode":false}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var created struct {
		EventID   string            `json:"eventId"`
		Questions []domain.Question `json:"questions"`
	}
	decode(t, rec, &created)
	if created.EventID == "" || len(created.Questions) != 2 {
		t.Fatalf("unexpected create response %+v", created)
	}

	path := "/v1/events/" + created.EventID
	rec = do(t, router, "PUT", path+"/responses/alice", `{"ratings":{"0":4},"textResponses":{"1":"  more coffee  "}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, router, "PUT", path+"/responses/bob", `{"ratings":{"0":9}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid rating, got %d", rec.Code)
	}

	rec = do(t, router, "GET", path+"/results", "")
	var dash domain.Dashboard
	decode(t, rec, &dash)
	if dash.Aggregation.TotalResponses != 1 || dash.Aggregation.TextAnswers[0] != "more coffee" {
		t.Fatalf("unexpected aggregation %+v", dash.Aggregation)
	}

	rec = do(t, router, "GET", path+"/export.csv", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "feedback-conference-") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.HasSuffix(rec.Body.String(), "\nalice,4,\"more coffee\"") {
		t.Fatalf("unexpected csv body %q", rec.Body.String())
	}

	rec = do(t, router, "DELETE", path+"/responses", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on clear, got %d", rec.Code)
	}
}

func TestUnknownEventIs404(t *testing.T) {
	router := NewRouter(newTestService(t), nil)
	rec := do(t, router, "GET", "/v1/events/nope/questions", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCollectionClosedIs409(t *testing.T) {
	router := NewRouter(newTestService(t), nil)
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	rec := do(t, router, "PUT", "/v1/events/event-1/editable-until", `{"editableUntil":"`+past+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(t, router, "PUT", "/v1/events/event-1/responses/u1", `{"ratings":{"0":3}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestUploadGenerateApply(t *testing.T) {
	router := NewRouter(newTestService(t), nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "agenda.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("Opening keynote, then hands-on labs."))
	mw.Close()

	req := httptest.NewRequest("POST", "/v1/events/event-1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, router, "POST", "/v1/events/event-1/generate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, router, "GET", "/v1/events/event-1/candidates", "")
	var status domain.GenerationStatus
	decode(t, rec, &status)
	if status.CandidateCount != 3 || status.UploadedChars == 0 {
		t.Fatalf("unexpected generation status %+v", status)
	}

	rec = do(t, router, "POST", "/v1/events/event-1/apply", `{"policy":"shuffle"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown policy, got %d", rec.Code)
	}
	rec = do(t, router, "POST", "/v1/events/event-1/apply", `{"policy":"merge"}`)
	var applied struct {
		Questions []domain.Question `json:"questions"`
	}
	decode(t, rec, &applied)
	if len(applied.Questions) != 5 {
		t.Fatalf("expected 2 + 3 questions, got %d", len(applied.Questions))
	}

	rec = do(t, router, "POST", "/v1/events/event-1/apply", `{"policy":"replace"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without pending candidates, got %d", rec.Code)
	}
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	router := NewRouter(newTestService(t), nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "slides.pptx")
	fw.Write([]byte("binary"))
	mw.Close()

	req := httptest.NewRequest("POST", "/v1/events/event-1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestPresenterEndpoints(t *testing.T) {
	router := NewRouter(newTestService(t), nil)

	rec := do(t, router, "POST", "/v1/events/event-1/presenter", `{"action":"insights"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(t, router, "GET", "/v1/events/event-1/presenter", "")
	var view struct {
		View string `json:"view"`
	}
	decode(t, rec, &view)
	if view.View != "insights" {
		t.Fatalf("expected insights, got %q", view.View)
	}
	rec = do(t, router, "POST", "/v1/events/event-1/presenter", `{"action":"sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown view, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)
	service := app.NewFeedbackService(memory.NewFeedbackStore(), memory.NewSessionStore(), testTemplates(), app.WithMetrics(m))
	if _, _, err := service.InitializeFeedback(context.Background(), "event-1", app.InitRequest{EventType: "conference"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	router := NewRouter(service, reg)

	do(t, router, "PUT", "/v1/events/event-1/responses/u1", `{"ratings":{"0":5}}`)
	rec := do(t, router, "GET", "/metrics", "")
	if !strings.Contains(rec.Body.String(), `feedback_submissions_total{outcome="accepted"} 1`) {
		t.Fatalf("expected submission counter in metrics output:\n%s", rec.Body)
	}
}

func newTestService(t *testing.T) *app.FeedbackService {
	t.Helper()
	service := app.NewFeedbackService(memory.NewFeedbackStore(), memory.NewSessionStore(), testTemplates())
	if _, _, err := service.InitializeFeedback(context.Background(), "event-1", app.InitRequest{EventType: "conference"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	return service
}

func testTemplates() *memory.TemplateRepository {
	return memory.NewTemplateRepository(memory.NewStaticTemplateLoader(map[string][]domain.Question{
		"conference": {
			{Text: "How was the event?", Kind: domain.KindRating},
			{Text: "What should change?", Kind: domain.KindText},
		},
	}), time.Minute)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestStatusForGenerationErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: not json", domain.ErrInvalidResponseFormat), http.StatusUnprocessableEntity},
		{domain.ErrNoValidQuestions, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: upstream 503", domain.ErrGenerationFailed), http.StatusBadGateway},
		{domain.ErrGenerationInFlight, http.StatusConflict},
		{domain.ErrInvalidRespondent, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
