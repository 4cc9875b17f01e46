package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/observability/metrics"
)

type ingestorFake struct {
	transcript *domain.Transcript
	err        error

	filename string
	mimeType string
	body     []byte
}

func (f *ingestorFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Transcript, error) {
	f.filename = filename
	f.mimeType = mimeType
	f.body, _ = io.ReadAll(body)
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type evaluatorFake struct {
	report *domain.AggregateReport
	err    error

	gotReq domain.FeatureRequest
}

func (f *evaluatorFake) Evaluate(_ context.Context, req domain.FeatureRequest) (*domain.AggregateReport, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type readerFake struct {
	transcript *domain.Transcript
	err        error
}

func (f *readerFake) GetByID(context.Context, string) (*domain.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type registryFake struct {
	personas []domain.Persona
}

func (f *registryFake) Get(id string) (domain.Persona, bool) {
	for _, p := range f.personas {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Persona{}, false
}

func (f *registryFake) All() []domain.Persona { return f.personas }

type routerDeps struct {
	ingestor  *ingestorFake
	evaluator *evaluatorFake
	reader    *readerFake
	registry  *registryFake
}

func newTestRouter(t *testing.T, deps routerDeps) http.Handler {
	t.Helper()
	if deps.ingestor == nil {
		deps.ingestor = &ingestorFake{}
	}
	if deps.evaluator == nil {
		deps.evaluator = &evaluatorFake{}
	}
	if deps.reader == nil {
		deps.reader = &readerFake{}
	}
	if deps.registry == nil {
		deps.registry = &registryFake{}
	}
	return NewRouter(deps.ingestor, deps.evaluator, deps.reader, deps.registry, metrics.NewAPIMetrics("api"), 0).Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(t, routerDeps{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadTranscriptAccepted(t *testing.T) {
	ingestor := &ingestorFake{transcript: &domain.Transcript{ID: "tr-1", Status: domain.StatusUploaded}}
	handler := newTestRouter(t, routerDeps{ingestor: ingestor})

	body, contentType := multipartBody(t, "file", "call.txt", "merchant dialogue")
	req := httptest.NewRequest(http.MethodPost, "/v1/transcripts", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if ingestor.filename != "call.txt" || string(ingestor.body) != "merchant dialogue" {
		t.Fatalf("upload not forwarded: filename=%q body=%q", ingestor.filename, ingestor.body)
	}

	var got domain.Transcript
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "tr-1" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestUploadTranscriptMissingFileField(t *testing.T) {
	handler := newTestRouter(t, routerDeps{})

	body, contentType := multipartBody(t, "document", "call.txt", "content")
	req := httptest.NewRequest(http.MethodPost, "/v1/transcripts", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "multipart field 'file' is required") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUploadTranscriptMapsIngestError(t *testing.T) {
	ingestor := &ingestorFake{err: domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("unsupported type"))}
	handler := newTestRouter(t, routerDeps{ingestor: ingestor})

	body, contentType := multipartBody(t, "file", "call.bin", "content")
	req := httptest.NewRequest(http.MethodPost, "/v1/transcripts", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetTranscriptNotFound(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrTranscriptNotFound, "get transcript", errors.New("id tr-404"))}
	handler := newTestRouter(t, routerDeps{reader: reader})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transcripts/tr-404", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetTranscriptOK(t *testing.T) {
	reader := &readerFake{transcript: &domain.Transcript{ID: "tr-1", Status: domain.StatusIndexed, ChunkCount: 3}}
	handler := newTestRouter(t, routerDeps{reader: reader})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transcripts/tr-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.Transcript
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != domain.StatusIndexed || got.ChunkCount != 3 {
		t.Fatalf("unexpected transcript: %+v", got)
	}
}

func TestEvaluateSuccess(t *testing.T) {
	evaluator := &evaluatorFake{report: &domain.AggregateReport{
		FeatureName: "Bulk refunds",
		Grounded:    true,
		Records: []domain.FeedbackRecord{
			{PersonaID: "p1", Narrative: "fine", Score: 4.0, Rating: "Very Good"},
			{PersonaID: "p2", Failed: true, FailureReason: "timeout"},
		},
		Stats:         domain.ScoreStats{HasMean: true, Mean: 4.0, Scored: 1, Failed: 1},
		ContextChunks: 2,
	}}
	handler := newTestRouter(t, routerDeps{evaluator: evaluator})

	payload := `{"description": "Bulk refunds", "persona_ids": ["p1", "p2"], "flow_type": "payment"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if evaluator.gotReq.FlowType != domain.FlowPayment {
		t.Fatalf("flow type not parsed: %+v", evaluator.gotReq)
	}
	var got domain.AggregateReport
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.FeatureName != "Bulk refunds" || len(got.Records) != 2 || got.ContextChunks != 2 {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestEvaluateInvalidJSON(t *testing.T) {
	handler := newTestRouter(t, routerDeps{})

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEvaluateMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "evaluate", errors.New("empty description")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrTemporary, "ollama generate", errors.New("circuit open")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrEmbedding, "embed", errors.New("bad upstream")), http.StatusBadGateway},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestRouter(t, routerDeps{evaluator: &evaluatorFake{err: tc.err}})

		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(`{"description": "x", "persona_ids": ["p"]}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestListPersonas(t *testing.T) {
	registry := &registryFake{personas: []domain.Persona{
		{ID: "internet_first_entrepreneur", Name: "Internet First Entrepreneur"},
		{ID: "hybrid_emerging_business", Name: "Hybrid Emerging Business"},
	}}
	handler := newTestRouter(t, routerDeps{registry: registry})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/personas", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Personas []domain.Persona `json:"personas"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Personas) != 2 || got.Personas[0].ID != "internet_first_entrepreneur" {
		t.Fatalf("unexpected personas: %+v", got.Personas)
	}
}

func TestRequestIDHeaderPropagated(t *testing.T) {
	handler := newTestRouter(t, routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	handler := newTestRouter(t, routerDeps{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id header")
	}
}
