package http

import (
	"net/http"
	"os"

	"event-feedback-service/internal/app"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the REST API, the live websocket and the operational endpoints.
// A nil gatherer leaves /metrics unmounted.
func NewRouter(service *app.FeedbackService, gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	rest := NewRESTHandler(service)
	ws := NewWSHandler(service)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	r.HandleFunc("/ws", ws.ServeWS).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/events", rest.CreateEvent).Methods("POST", "OPTIONS")
	v1.HandleFunc("/events/{eventId}", rest.DeleteEvent).Methods("DELETE", "OPTIONS")

	ev := v1.PathPrefix("/events/{eventId}").Subrouter()
	ev.HandleFunc("/init", rest.Initialize).Methods("POST", "OPTIONS")
	ev.HandleFunc("/questions", rest.GetQuestions).Methods("GET", "OPTIONS")
	ev.HandleFunc("/questions", rest.PutQuestions).Methods("PUT", "OPTIONS")
	ev.HandleFunc("/settings", rest.GetSettings).Methods("GET", "OPTIONS")
	ev.HandleFunc("/settings", rest.PatchSettings).Methods("PATCH", "OPTIONS")
	ev.HandleFunc("/editable-until", rest.PutEditableUntil).Methods("PUT", "OPTIONS")
	ev.HandleFunc("/upload", rest.Upload).Methods("POST", "OPTIONS")
	ev.HandleFunc("/generate", rest.Generate).Methods("POST", "OPTIONS")
	ev.HandleFunc("/candidates", rest.Candidates).Methods("GET", "OPTIONS")
	ev.HandleFunc("/apply", rest.Apply).Methods("POST", "OPTIONS")
	ev.HandleFunc("/responses", rest.ClearResponses).Methods("DELETE", "OPTIONS")
	ev.HandleFunc("/responses/{respondentId}", rest.PutResponse).Methods("PUT", "OPTIONS")
	ev.HandleFunc("/results", rest.Results).Methods("GET", "OPTIONS")
	ev.HandleFunc("/export.csv", rest.ExportCSV).Methods("GET", "OPTIONS")
	ev.HandleFunc("/presenter", rest.GetPresenter).Methods("GET", "OPTIONS")
	ev.HandleFunc("/presenter", rest.NavigatePresenter).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
