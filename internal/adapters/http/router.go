// Package httpadapter exposes the ingestion and evaluation surface over HTTP.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
	"github.com/uxlab/synthetic-merchant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingestor    ports.TranscriptIngestor
	evaluator   ports.FeatureEvaluator
	transcripts ports.TranscriptReader
	personas    ports.PersonaRegistry
	metrics     *metrics.APIMetrics

	maxUploadBytes int64
}

func NewRouter(
	ingestor ports.TranscriptIngestor,
	evaluator ports.FeatureEvaluator,
	transcripts ports.TranscriptReader,
	personas ports.PersonaRegistry,
	m *metrics.APIMetrics,
	maxUploadBytes int64,
) *Router {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &Router{
		ingestor:       ingestor,
		evaluator:      evaluator,
		transcripts:    transcripts,
		personas:       personas,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return rt.metrics.Middleware(serviceName, next)
	})

	r.Get("/healthz", rt.healthz)
	r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/transcripts", rt.uploadTranscript)
		r.Get("/transcripts/{transcriptID}", rt.getTranscriptByID)
		r.Post("/evaluate", rt.evaluateFeature)
		r.Get("/personas", rt.listPersonas)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	transcript, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, transcript)
}

func (rt *Router) getTranscriptByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transcript id is required"})
		return
	}

	transcript, err := rt.transcripts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

type evaluateRequest struct {
	Description  string   `json:"description"`
	ImageSummary string   `json:"image_summary"`
	PersonaIDs   []string `json:"persona_ids"`
	FlowType     string   `json:"flow_type"`
}

func (rt *Router) evaluateFeature(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	report, err := rt.evaluator.Evaluate(r.Context(), domain.FeatureRequest{
		Description:  req.Description,
		ImageSummary: req.ImageSummary,
		PersonaIDs:   req.PersonaIDs,
		FlowType:     domain.ParseFlowType(req.FlowType),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordEvaluation(serviceName, report.Grounded, time.Since(start))
	rt.metrics.RecordRetrieval(serviceName, report.ContextChunks)
	for _, record := range report.Records {
		rt.metrics.RecordPersonaOutcome(serviceName, record.Failed)
		if !record.Failed {
			rt.metrics.RecordScore(serviceName, record.Score)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) listPersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"personas": rt.personas.All()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
