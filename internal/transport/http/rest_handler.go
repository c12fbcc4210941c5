package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"event-feedback-service/internal/app"
	"event-feedback-service/internal/domain"
	"event-feedback-service/internal/extract"
	"event-feedback-service/internal/generation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxUploadBytes bounds multipart uploads; extraction keeps far less anyway.
const maxUploadBytes = 10 << 20

// RESTHandler exposes the host-facing feedback operations.
type RESTHandler struct {
	service *app.FeedbackService
}

func NewRESTHandler(service *app.FeedbackService) *RESTHandler {
	return &RESTHandler{service: service}
}

type initRequest struct {
	EventType     string            `json:"eventType"`
	Questions     []domain.Question `json:"questions"`
	AnonymousMode *bool             `json:"anonymousMode"`
	EditableUntil *time.Time        `json:"editableUntil"`
}

type initResponse struct {
	EventID   string               `json:"eventId"`
	Settings  domain.EventSettings `json:"settings"`
	Questions []domain.Question    `json:"questions"`
}

type questionsBody struct {
	Questions []domain.Question `json:"questions"`
}

type settingsPatch struct {
	AnonymousMode    *bool      `json:"anonymousMode"`
	CollectionActive *bool      `json:"collectionActive"`
	EditableUntil    *time.Time `json:"editableUntil"`
}

type editableUntilBody struct {
	// EditableUntil null removes the deadline.
	EditableUntil *time.Time `json:"editableUntil"`
}

type generateRequest struct {
	Description string `json:"description"`
}

type applyRequest struct {
	Policy string `json:"policy"`
}

type submissionBody struct {
	Ratings       map[int]int    `json:"ratings"`
	TextResponses map[int]string `json:"textResponses"`
}

type presenterBody struct {
	Action string `json:"action"`
}

type viewResponse struct {
	View domain.PresenterView `json:"view"`
}

// CreateEvent handles POST /v1/events: a new event id plus initialization.
func (h *RESTHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	h.initialize(w, r, uuid.NewString(), http.StatusCreated)
}

// Initialize handles POST /v1/events/{eventId}/init.
func (h *RESTHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	h.initialize(w, r, mux.Vars(r)["eventId"], http.StatusOK)
}

func (h *RESTHandler) initialize(w http.ResponseWriter, r *http.Request, eventID string, status int) {
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params := app.InitRequest{
		EventType:     req.EventType,
		Questions:     req.Questions,
		AnonymousMode: req.AnonymousMode,
	}
	if req.EditableUntil != nil {
		params.EditableUntil = *req.EditableUntil
	}
	settings, questions, err := h.service.InitializeFeedback(r.Context(), eventID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, initResponse{EventID: eventID, Settings: settings, Questions: questions})
}

func (h *RESTHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEvent(r.Context(), mux.Vars(r)["eventId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.Questions(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsBody{Questions: qs})
}

func (h *RESTHandler) PutQuestions(w http.ResponseWriter, r *http.Request) {
	var body questionsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	qs, err := h.service.UpdateQuestions(r.Context(), mux.Vars(r)["eventId"], body.Questions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsBody{Questions: qs})
}

func (h *RESTHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *RESTHandler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsPatch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), mux.Vars(r)["eventId"], app.SettingsPatch{
		AnonymousMode:    body.AnonymousMode,
		CollectionActive: body.CollectionActive,
		EditableUntil:    body.EditableUntil,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *RESTHandler) PutEditableUntil(w http.ResponseWriter, r *http.Request) {
	var body editableUntilBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var until time.Time
	if body.EditableUntil != nil {
		until = *body.EditableUntil
	}
	settings, err := h.service.SetEditableUntil(r.Context(), mux.Vars(r)["eventId"], until)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Upload handles POST /v1/events/{eventId}/upload with a multipart "file" field.
func (h *RESTHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	if !extract.Supported(header.Filename) {
		writeServiceError(w, fmt.Errorf("%w: %s, please upload a .txt or .pdf file", domain.ErrUnsupportedFormat, header.Filename))
		return
	}
	n, err := h.service.UploadMaterial(r.Context(), mux.Vars(r)["eventId"], header.Filename, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fileName": header.Filename, "uploadedChars": n})
}

func (h *RESTHandler) Generate(w http.ResponseWriter, r *http.Request) {
	// an empty body generates from the uploaded material
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	batch, err := h.service.GenerateQuestions(r.Context(), mux.Vars(r)["eventId"], req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": batch.Questions, "candidateCount": len(batch.Questions)})
}

func (h *RESTHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GenerationStatus(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *RESTHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	policy, err := generation.ParsePolicy(req.Policy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	qs, err := h.service.ApplyCandidates(r.Context(), mux.Vars(r)["eventId"], policy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsBody{Questions: qs})
}

func (h *RESTHandler) ClearResponses(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearFeedback(r.Context(), mux.Vars(r)["eventId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutResponse handles PUT /v1/events/{eventId}/responses/{respondentId}; a repeat PUT replaces the response.
func (h *RESTHandler) PutResponse(w http.ResponseWriter, r *http.Request) {
	var body submissionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	vars := mux.Vars(r)
	resp, err := h.service.SubmitResponse(r.Context(), vars["eventId"], vars["respondentId"], app.Submission{
		Ratings:     body.Ratings,
		TextAnswers: body.TextResponses,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RESTHandler) Results(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Results(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *RESTHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	name, body, err := h.service.ExportCSV(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (h *RESTHandler) GetPresenter(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.PresenterView(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: view})
}

func (h *RESTHandler) NavigatePresenter(w http.ResponseWriter, r *http.Request) {
	var body presenterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.service.NavigatePresenter(r.Context(), mux.Vars(r)["eventId"], body.Action)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: view})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed status=%d: %v", status, err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEventNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGenerationInFlight),
		errors.Is(err, domain.ErrNoPendingCandidates),
		errors.Is(err, domain.ErrCollectionClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtractionFailed),
		errors.Is(err, domain.ErrInvalidResponseFormat),
		errors.Is(err, domain.ErrNoValidQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrKindMismatch),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrUnknownPolicy),
		errors.Is(err, domain.ErrNoSourceText),
		errors.Is(err, domain.ErrInvalidView),
		errors.Is(err, domain.ErrMissingRespondent),
		errors.Is(err, domain.ErrInvalidRespondent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
