package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"text/template"
	"time"

	"github.com/go-chi/chi/v5"

	"peerprep/interview/internal/cache"
	"peerprep/interview/internal/coderun"
	"peerprep/interview/internal/documents"
	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/store"
)

type mockProvider struct {
	generateContentFn func(ctx context.Context, prompt string, requestID string, detailLevel string) (*models.GenerationResponse, error)
}

func (m *mockProvider) GenerateContent(ctx context.Context, prompt string, requestID string, detailLevel string) (*models.GenerationResponse, error) {
	if m.generateContentFn == nil {
		return &models.GenerationResponse{}, nil
	}
	return m.generateContentFn(ctx, prompt, requestID, detailLevel)
}

func (m *mockProvider) GetProviderName() string { return "mock" }

type mockPromptManager struct {
	getTemplatesFn func() map[string]map[string]*template.Template
}

func (m *mockPromptManager) BuildPrompt(mode, level string, data interface{}) (string, error) {
	return "mock prompt", nil
}

func (m *mockPromptManager) GetTemplates() map[string]map[string]*template.Template {
	if m.getTemplatesFn == nil {
		return map[string]map[string]*template.Template{
			"evaluate": {
				"medium": template.Must(template.New("test").Parse("test")),
			},
		}
	}
	return m.getTemplatesFn()
}

// fakeQuestions returns cfg.QuestionCount questions, all sharing testCases.
type fakeQuestions struct {
	mode      models.AnswerMode
	testCases []models.TestCase
}

func (f *fakeQuestions) Generate(ctx context.Context, doc models.Document, cfg models.SessionConfig) ([]models.Question, error) {
	mode := f.mode
	if mode == "" {
		mode = models.ModeText
	}
	qs := make([]models.Question, cfg.QuestionCount)
	for i := range qs {
		qs[i] = models.Question{
			ID:         fmt.Sprintf("q%d", i+1),
			Text:       fmt.Sprintf("Explain concept %d.", i+1),
			Type:       models.QuestionConceptual,
			Topic:      "graphs",
			Difficulty: cfg.Difficulty,
			Mode:       mode,
			TestCases:  f.testCases,
		}
	}
	return qs, nil
}

type fakeEvaluator struct {
	mu       sync.Mutex
	requests []models.EvaluationRequest
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.Evaluation, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return &models.Evaluation{
		Score:                  8,
		Feedback:               "solid answer",
		ConversationalResponse: "Nice work.",
		Strengths:              []string{"clear"},
		Action:                 models.ActionNextQuestion,
	}, nil
}

func (f *fakeEvaluator) answers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Answer.Text
	}
	return out
}

type fakeStore struct {
	mu    sync.Mutex
	saved []models.InterviewSession
}

func (f *fakeStore) Save(ctx context.Context, userID string, session models.InterviewSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, session)
	return session.ID, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeHistory struct {
	records []models.SessionRecord
	err     error
	limit   int
}

func (f *fakeHistory) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeHistory) ListByUser(ctx context.Context, userID string, limit int) ([]models.SessionRecord, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []models.SessionRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCache struct {
	mu    sync.Mutex
	snaps map[string]models.Snapshot
}

func newFakeCache() *fakeCache { return &fakeCache{snaps: map[string]models.Snapshot{}} }

func (f *fakeCache) Put(ctx context.Context, snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.ID] = snap
	return nil
}

func (f *fakeCache) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &snap, nil
}

type fakeRunner struct {
	out coderun.Output
	err error
}

func (f *fakeRunner) Run(ctx context.Context, p coderun.Program) (coderun.Output, error) {
	return f.out, f.err
}

type testEnv struct {
	router    *chi.Mux
	handler   *InterviewHandler
	registry  *interview.Registry
	docs      *documents.MemoryRepository
	evaluator *fakeEvaluator
	store     *fakeStore
	history   *fakeHistory
	cache     *fakeCache
}

type envOption func(*InterviewDeps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		registry:  interview.NewRegistry(nil),
		docs:      documents.NewMemoryRepository(),
		evaluator: &fakeEvaluator{},
		store:     &fakeStore{},
		history:   &fakeHistory{},
		cache:     newFakeCache(),
	}
	deps := InterviewDeps{
		Registry:  env.registry,
		Documents: env.docs,
		Questions: &fakeQuestions{},
		Evaluator: env.evaluator,
		Store:     env.store,
		History:   env.history,
		Snapshots: env.cache,
		Config:    interview.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.handler = NewInterviewHandler(deps)
	documentHandler := NewDocumentHandler(env.docs, nil)

	r := chi.NewRouter()
	r.Use(headerAuth)
	r.With(middleware.ValidateRequest[*models.CreateDocumentRequest]()).Post("/documents", documentHandler.CreateDocumentHandler)
	r.Get("/documents/{id}", documentHandler.GetDocumentHandler)
	r.Get("/sessions", env.handler.ListSessionsHandler)
	r.With(middleware.ValidateRequest[*models.StartSessionRequest]()).Post("/sessions", env.handler.StartSessionHandler)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", env.handler.GetSessionHandler)
		r.Get("/report", env.handler.ReportHandler)
		r.Get("/ws", env.handler.LiveSessionHandler)
		r.With(middleware.ValidateRequest[*models.SubmitAnswerRequest]()).Post("/answers", env.handler.SubmitAnswerHandler)
		r.With(middleware.ValidateRequest[*models.SubmitCodeRequest]()).Post("/code", env.handler.SubmitCodeHandler)
		r.Post("/skip", env.handler.SkipHandler)
		r.Post("/pause", env.handler.PauseHandler)
		r.Post("/resume", env.handler.ResumeHandler)
		r.Post("/end", env.handler.EndHandler)
		r.Post("/retry", env.handler.RetryHandler)
	})
	env.router = r

	t.Cleanup(env.registry.CloseAll)
	return env
}

// headerAuth stands in for the JWT middleware.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), r.Header.Get("X-User"))))
	})
}

func (e *testEnv) do(t *testing.T, method, target, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("X-User", user)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createDocument(t *testing.T, user string) models.Document {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/documents", user, models.CreateDocumentRequest{Title: "Graphs", Text: "BFS visits nodes level by level."})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create document: status %d body %s", rec.Code, rec.Body.String())
	}
	var doc models.Document
	decode(t, rec, &doc)
	return doc
}

func (e *testEnv) startSession(t *testing.T, user, documentID string, count int) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/sessions", user, models.StartSessionRequest{
		DocumentID: documentID,
		Config:     models.SessionConfig{QuestionCount: count},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp models.StartSessionResponse
	decode(t, rec, &resp)
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	return resp.SessionID
}

// waitPhase polls the live session until it reaches phase.
func (e *testEnv) waitPhase(t *testing.T, id string, phase models.Phase) models.Snapshot {
	t.Helper()
	orch, ok := e.registry.Get(id)
	if !ok {
		t.Fatalf("session %s is not live", id)
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap := orch.Snapshot()
		if snap.Phase == phase {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("session stuck in %s, want %s", snap.Phase, phase)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	decode(t, rec, &resp)
	return resp.Code
}
