package interview

import (
	"context"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/models"
)

// QuestionSource turns a document into the ordered question list of a session.
type QuestionSource interface {
	Generate(ctx context.Context, doc models.Document, cfg models.SessionConfig) ([]models.Question, error)
}

// Evaluator grades one submission. Any error makes the orchestrator fall back.
type Evaluator interface {
	Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.Evaluation, error)
}

// SessionStore persists a finished session.
type SessionStore interface {
	Save(ctx context.Context, userID string, session models.InterviewSession) (string, error)
}

// Speaker plays one utterance at a time. Speak cancels any utterance in
// progress and returns a channel that receives exactly one value when playback
// ends: nil for a natural end, otherwise the reason it stopped.
type Speaker interface {
	Speak(text string) <-chan error
	Stop()
}

// Listener captures speech. Transcript updates are delivered to the
// orchestrator through UpdateTranscript by whoever owns the capture device.
type Listener interface {
	StartListening() error
	StopListening()
}

// Observer receives state machine events, mainly for metrics.
type Observer interface {
	PhaseChanged(from, to models.Phase)
	EvaluationFinished(outcome string, took time.Duration)
	DifficultyChanged(from, to models.Difficulty)
	FollowUpAsked()
}

// evaluation outcomes reported to observers
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeSkipped  = "skipped"
)

type Dependencies struct {
	Questions QuestionSource
	Evaluator Evaluator
	Store     SessionStore
	// Speaker and Listener are optional; nil means the capability is missing.
	Speaker  Speaker
	Listener Listener
	Observer Observer
	Logger   *zap.Logger
}

type nopObserver struct{}

func (nopObserver) PhaseChanged(models.Phase, models.Phase) {}
func (nopObserver) EvaluationFinished(string, time.Duration) {}
func (nopObserver) DifficultyChanged(models.Difficulty, models.Difficulty) {}
func (nopObserver) FollowUpAsked() {}
