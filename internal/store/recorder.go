package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/cache"
	"peerprep/interview/internal/models"
)

// Notifier is told about every stored session.
type Notifier interface {
	PublishCompleted(ctx context.Context, event cache.CompletedEvent) error
	Delete(ctx context.Context, sessionID string) error
}

// Recorder is the session store handed to orchestrators: it persists the
// session, then announces it and drops the live snapshot from the cache.
type Recorder struct {
	repo     *SessionRepository
	notifier Notifier
	logger   *zap.Logger
}

func NewRecorder(repo *SessionRepository, notifier Notifier, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: repo, notifier: notifier, logger: logger}
}

func (r *Recorder) Save(ctx context.Context, userID string, session models.InterviewSession) (string, error) {
	id, err := r.repo.Save(ctx, userID, session)
	if err != nil {
		return "", err
	}
	if r.notifier == nil {
		return id, nil
	}

	completedAt := time.Now()
	if session.CompletedAt != nil {
		completedAt = *session.CompletedAt
	}
	event := cache.CompletedEvent{
		SessionID:     session.ID,
		UserID:        userID,
		DocumentID:    session.DocumentID,
		OverallScore:  session.OverallScore,
		QuestionCount: len(session.Questions),
		EndedEarly:    session.EndedEarly,
		CompletedAt:   completedAt.UTC().Format(time.RFC3339),
	}
	if err := r.notifier.PublishCompleted(ctx, event); err != nil {
		r.logger.Warn("failed to publish completion", zap.String("session_id", session.ID), zap.Error(err))
	}
	if err := r.notifier.Delete(ctx, session.ID); err != nil {
		r.logger.Warn("failed to drop cached snapshot", zap.String("session_id", session.ID), zap.Error(err))
	}
	return id, nil
}
