package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"peerprep/interview/internal/cache"
	"peerprep/interview/internal/coderun"
	"peerprep/interview/internal/documents"
	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/report"
	"peerprep/interview/internal/store"
	"peerprep/interview/internal/utils"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	// grading runs every test case, so it gets more room than an intent
	codeGradeTimeout = 50 * time.Second
)

// SessionHistory reads finished sessions.
type SessionHistory interface {
	Get(ctx context.Context, id string) (*models.SessionRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SessionRecord, error)
}

// SnapshotCache mirrors live snapshots so other instances can serve reads.
type SnapshotCache interface {
	Put(ctx context.Context, snap models.Snapshot) error
	Get(ctx context.Context, sessionID string) (*models.Snapshot, error)
}

// InterviewDeps wires an InterviewHandler. History, Snapshots and Runner may
// be nil.
type InterviewDeps struct {
	Registry  *interview.Registry
	Documents documents.Repository
	Questions interview.QuestionSource
	Evaluator interview.Evaluator
	Store     interview.SessionStore
	History   SessionHistory
	Snapshots SnapshotCache
	Runner    coderun.Runner
	Observer  interview.Observer
	Config    interview.Config
	Logger    *zap.Logger
}

type InterviewHandler struct {
	registry  *interview.Registry
	documents documents.Repository
	questions interview.QuestionSource
	evaluator interview.Evaluator
	store     interview.SessionStore
	history   SessionHistory
	snapshots SnapshotCache
	runner    coderun.Runner
	observer  interview.Observer
	config    interview.Config
	logger    *zap.Logger

	// session id -> *speech.Remote of the connected browser
	remotes sync.Map
}

func NewInterviewHandler(deps InterviewDeps) *InterviewHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterviewHandler{
		registry:  deps.Registry,
		documents: deps.Documents,
		questions: deps.Questions,
		evaluator: deps.Evaluator,
		store:     deps.Store,
		history:   deps.History,
		snapshots: deps.Snapshots,
		runner:    deps.Runner,
		observer:  deps.Observer,
		config:    deps.Config,
		logger:    logger,
	}
}

func (h *InterviewHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.StartSessionRequest](r)
	userID := middleware.UserIDFromContext(r.Context())

	doc, err := h.documents.Get(r.Context(), req.DocumentID)
	if errors.Is(err, documents.ErrNotFound) || (err == nil && doc.UserID != userID) {
		utils.Error(w, http.StatusNotFound, "document_not_found", "document not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load document", zap.String("document_id", req.DocumentID), zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "failed to load document")
		return
	}

	sessionID := uuid.NewString()
	orch, err := interview.New(interview.Params{
		SessionID: sessionID,
		UserID:    userID,
		Document:  *doc,
		Config:    req.Config,
	}, interview.Dependencies{
		Questions: h.questions,
		Evaluator: h.evaluator,
		Store:     h.store,
		Observer:  h.observer,
		Logger:    h.logger,
	}, h.config)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	if err := h.registry.Add(orch); err != nil {
		orch.Close()
		utils.Error(w, http.StatusConflict, "session_exists", err.Error())
		return
	}
	h.mirror(orch)

	if err := orch.Start(r.Context()); err != nil {
		h.registry.Remove(sessionID)
		h.writeIntentError(w, sessionID, err)
		return
	}

	h.logger.Info("interview session started",
		zap.String("session_id", sessionID),
		zap.String("document_id", doc.ID),
		zap.String("difficulty", string(req.Config.Difficulty)),
	)
	utils.JSON(w, http.StatusCreated, models.StartSessionResponse{
		SessionID: sessionID,
		Snapshot:  orch.Snapshot(),
	})
}

// mirror copies every snapshot of a live session into the cache until the
// session finishes. Completed sessions are served from the store.
func (h *InterviewHandler) mirror(orch *interview.Orchestrator) {
	if h.snapshots == nil {
		return
	}
	updates, unsubscribe := orch.Subscribe()
	go func() {
		defer unsubscribe()
		for snap := range updates {
			if snap.Phase == models.PhaseCompleted {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := h.snapshots.Put(ctx, snap); err != nil {
				h.logger.Warn("snapshot cache write failed", zap.String("session_id", snap.ID), zap.Error(err))
			}
			cancel()
		}
	}()
}

func (h *InterviewHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.UserIDFromContext(r.Context())

	if orch, ok := h.registry.Get(id); ok {
		if orch.UserID() != userID {
			utils.Error(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		utils.JSON(w, http.StatusOK, orch.Snapshot())
		return
	}

	if h.snapshots != nil {
		snap, err := h.snapshots.Get(r.Context(), id)
		switch {
		case err == nil && snap.UserID == userID:
			utils.JSON(w, http.StatusOK, snap)
			return
		case err != nil && !errors.Is(err, cache.ErrMiss):
			h.logger.Warn("snapshot cache read failed", zap.String("session_id", id), zap.Error(err))
		}
	}

	record, ok := h.loadRecord(w, r, id)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, models.Snapshot{InterviewSession: record.Session})
}

// loadRecord fetches a finished session owned by the caller, writing the
// error response itself when it returns false.
func (h *InterviewHandler) loadRecord(w http.ResponseWriter, r *http.Request, id string) (*models.SessionRecord, bool) {
	if h.history == nil {
		utils.Error(w, http.StatusNotFound, "session_not_found", "session not found")
		return nil, false
	}
	record, err := h.history.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && record.UserID != middleware.UserIDFromContext(r.Context())) {
		utils.Error(w, http.StatusNotFound, "session_not_found", "session not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return nil, false
	}
	return record, true
}

// live returns the caller's running session or writes a 404.
func (h *InterviewHandler) live(w http.ResponseWriter, r *http.Request) (*interview.Orchestrator, bool) {
	id := chi.URLParam(r, "id")
	orch, ok := h.registry.Get(id)
	if !ok || orch.UserID() != middleware.UserIDFromContext(r.Context()) {
		utils.Error(w, http.StatusNotFound, "session_not_found", "no live session with this id")
		return nil, false
	}
	return orch, true
}

func (h *InterviewHandler) intent(fn func(o *interview.Orchestrator, ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, ok := h.live(w, r)
		if !ok {
			return
		}
		if err := fn(orch, r.Context()); err != nil {
			h.writeIntentError(w, orch.ID(), err)
			return
		}
		utils.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

func (h *InterviewHandler) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SubmitAnswerRequest](r)
	h.intent(func(o *interview.Orchestrator, ctx context.Context) error {
		return o.SubmitAnswer(ctx, req.Text)
	})(w, r)
}

func (h *InterviewHandler) SkipHandler(w http.ResponseWriter, r *http.Request) {
	h.intent((*interview.Orchestrator).Skip)(w, r)
}

func (h *InterviewHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.intent((*interview.Orchestrator).Pause)(w, r)
}

func (h *InterviewHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	h.intent((*interview.Orchestrator).Resume)(w, r)
}

func (h *InterviewHandler) EndHandler(w http.ResponseWriter, r *http.Request) {
	h.intent((*interview.Orchestrator).End)(w, r)
}

func (h *InterviewHandler) RetryHandler(w http.ResponseWriter, r *http.Request) {
	h.intent((*interview.Orchestrator).Retry)(w, r)
}

// SubmitCodeHandler runs the code against the current question's test cases
// and submits the result summary as the answer.
func (h *InterviewHandler) SubmitCodeHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SubmitCodeRequest](r)
	orch, ok := h.live(w, r)
	if !ok {
		return
	}
	if h.runner == nil {
		utils.Error(w, http.StatusServiceUnavailable, "sandbox_unavailable", "code execution is not configured")
		return
	}

	snap := orch.Snapshot()
	if snap.Phase != models.PhaseAsking {
		h.writeIntentError(w, orch.ID(), interview.ErrWrongPhase)
		return
	}
	var testCases []models.TestCase
	if i := snap.CurrentQuestionIndex; i >= 0 && i < len(snap.Questions) {
		testCases = snap.Questions[i].TestCases
	}

	// outlive the server-wide write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(codeGradeTimeout + 10*time.Second))
	ctx, cancel := context.WithTimeout(r.Context(), codeGradeTimeout)
	defer cancel()
	summary, err := coderun.Grade(ctx, h.runner, req.Language, req.Code, testCases)
	switch {
	case errors.Is(err, coderun.ErrSandboxUnavailable):
		utils.Error(w, http.StatusServiceUnavailable, "sandbox_unavailable", "code sandbox is unavailable, try again later")
		return
	case errors.Is(err, coderun.ErrUnsupportedLanguage):
		utils.Error(w, http.StatusBadRequest, "unsupported_language", err.Error())
		return
	case err != nil:
		h.writeIntentError(w, orch.ID(), err)
		return
	}

	h.logger.Info("code graded",
		zap.String("session_id", orch.ID()),
		zap.String("language", summary.Language),
		zap.Int("passed", summary.Passed),
		zap.Int("total", summary.Total),
	)
	if err := orch.SubmitAnswer(r.Context(), summary.AnswerText()); err != nil {
		h.writeIntentError(w, orch.ID(), err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"grading":  summary,
		"snapshot": orch.Snapshot(),
	})
}

func (h *InterviewHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.UserIDFromContext(r.Context())

	if orch, ok := h.registry.Get(id); ok && orch.UserID() == userID {
		snap := orch.Snapshot()
		if snap.Phase != models.PhaseCompleted {
			utils.Error(w, http.StatusConflict, "session_in_progress", "report is available once the interview completes")
			return
		}
		utils.JSON(w, http.StatusOK, report.Build(snap.InterviewSession))
		return
	}

	record, ok := h.loadRecord(w, r, id)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, report.Build(record.Session))
}

func (h *InterviewHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.Error(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	summaries := []models.SessionSummary{}
	if h.history != nil {
		records, err := h.history.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
		if err != nil {
			h.logger.Error("failed to list sessions", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
			return
		}
		for _, rec := range records {
			summaries = append(summaries, rec.Summary())
		}
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
}

// writeIntentError maps orchestrator errors onto HTTP responses.
func (h *InterviewHandler) writeIntentError(w http.ResponseWriter, sessionID string, err error) {
	status, code := intentErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("intent failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	utils.Error(w, status, code, err.Error())
}

func intentErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, interview.ErrEmptyAnswer):
		return http.StatusBadRequest, "empty_answer"
	case errors.Is(err, interview.ErrWrongPhase):
		return http.StatusConflict, "invalid_phase"
	case errors.Is(err, interview.ErrNoListener):
		return http.StatusConflict, "speech_unavailable"
	case errors.Is(err, interview.ErrClosed):
		return http.StatusGone, "session_closed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
