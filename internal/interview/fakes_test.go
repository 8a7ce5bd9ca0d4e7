package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"peerprep/interview/internal/models"
)

func makeQuestions(n int, mode models.AnswerMode) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:         fmt.Sprintf("q%d", i+1),
			Text:       fmt.Sprintf("Question number %d?", i+1),
			Type:       models.QuestionConceptual,
			Topic:      "topic",
			Difficulty: models.DifficultyMedium,
			Mode:       mode,
		}
	}
	return qs
}

type fakeSource struct {
	mu        sync.Mutex
	questions []models.Question
	errs      []error
	calls     int
}

func (f *fakeSource) Generate(ctx context.Context, doc models.Document, cfg models.SessionConfig) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]models.Question(nil), f.questions...), nil
}

type evalStep struct {
	eval *models.Evaluation
	err  error
}

func scored(score float64, action models.Action) evalStep {
	return evalStep{eval: &models.Evaluation{
		Score:                  score,
		Feedback:               "feedback",
		ConversationalResponse: fmt.Sprintf("Scored %.0f.", score),
		Action:                 action,
	}}
}

func failed() evalStep { return evalStep{err: errors.New("llm down")} }

type scriptedEvaluator struct {
	mu       sync.Mutex
	script   []evalStep
	fallback evalStep
	requests []models.EvaluationRequest
	gate     chan struct{}
}

func (e *scriptedEvaluator) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.Evaluation, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	step := e.fallback
	if len(e.script) > 0 {
		step = e.script[0]
		e.script = e.script[1:]
	}
	gate := e.gate
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.eval != nil {
		copied := *step.eval
		return &copied, step.err
	}
	return nil, step.err
}

func (e *scriptedEvaluator) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func (e *scriptedEvaluator) request(i int) models.EvaluationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[i]
}

// fakeSpeaker completes utterances immediately unless manual is set.
type fakeSpeaker struct {
	mu      sync.Mutex
	manual  bool
	never   bool
	spoken  []string
	pending []chan error
	stops   int
}

func (s *fakeSpeaker) Speak(text string) <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	ch := make(chan error, 1)
	switch {
	case s.never:
	case s.manual:
		s.pending = append(s.pending, ch)
	default:
		ch <- nil
	}
	return ch
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

// finish resolves the oldest pending utterance.
func (s *fakeSpeaker) finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return false
	}
	ch := s.pending[0]
	s.pending = s.pending[1:]
	ch <- nil
	return true
}

func (s *fakeSpeaker) spokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spoken)
}

type fakeListener struct {
	mu     sync.Mutex
	err    error
	starts int
	stops  int
}

func (l *fakeListener) StartListening() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.starts++
	return nil
}

func (l *fakeListener) StopListening() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
}

func (l *fakeListener) startCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

type memStore struct {
	mu    sync.Mutex
	saved []models.InterviewSession
}

func (m *memStore) Save(ctx context.Context, userID string, s models.InterviewSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return s.ID, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *memStore) last() models.InterviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]models.Phase
	outcomes    []string
	followUps   int
}

func (r *recordingObserver) PhaseChanged(from, to models.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]models.Phase{from, to})
}

func (r *recordingObserver) EvaluationFinished(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingObserver) DifficultyChanged(models.Difficulty, models.Difficulty) {}

func (r *recordingObserver) FollowUpAsked() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followUps++
}

func (r *recordingObserver) phases() []models.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Phase, 0, len(r.transitions))
	for _, t := range r.transitions {
		out = append(out, t[1])
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SpeechTimeout = 200 * time.Millisecond
	cfg.SilenceTimeout = 40 * time.Millisecond
	cfg.EvaluationTimeout = 2 * time.Second
	cfg.GenerationTimeout = 2 * time.Second
	cfg.SaveTimeout = time.Second
	return cfg
}

type harness struct {
	o        *Orchestrator
	source   *fakeSource
	eval     *scriptedEvaluator
	store    *memStore
	observer *recordingObserver
}

func newHarness(t *testing.T, questions []models.Question, eval *scriptedEvaluator, mutate func(*Dependencies, *Config)) *harness {
	t.Helper()
	h := &harness{
		source:   &fakeSource{questions: questions},
		eval:     eval,
		store:    &memStore{},
		observer: &recordingObserver{},
	}
	deps := Dependencies{
		Questions: h.source,
		Evaluator: h.eval,
		Store:     h.store,
		Observer:  h.observer,
	}
	cfg := testConfig()
	if mutate != nil {
		mutate(&deps, &cfg)
	}
	o, err := New(Params{
		SessionID: "s-1",
		UserID:    "u-1",
		Document:  models.Document{ID: "d-1", Text: "study material"},
		Config:    models.SessionConfig{Difficulty: models.DifficultyMedium, QuestionCount: len(questions)},
	}, deps, cfg)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	h.o = o
	return h
}

func (h *harness) waitFor(t *testing.T, cond func(models.Snapshot) bool, msg string) models.Snapshot {
	t.Helper()
	var snap models.Snapshot
	require.Eventually(t, func() bool {
		snap = h.o.Snapshot()
		return cond(snap)
	}, 2*time.Second, 5*time.Millisecond, msg)
	return snap
}

func (h *harness) waitAsking(t *testing.T, index int) models.Snapshot {
	t.Helper()
	return h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseAsking && s.CurrentQuestionIndex == index && !s.Speaking
	}, fmt.Sprintf("expected asking question %d", index))
}

func (h *harness) waitPhase(t *testing.T, phase models.Phase) models.Snapshot {
	t.Helper()
	return h.waitFor(t, func(s models.Snapshot) bool { return s.Phase == phase }, "expected phase "+string(phase))
}

func (h *harness) started(t *testing.T) {
	t.Helper()
	require.NoError(t, h.o.Start(context.Background()))
	h.waitAsking(t, 0)
}
