package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"peerprep/interview/internal/models"
)

var ErrNotFound = errors.New("session not found")

type SessionRepository struct {
	DB *gorm.DB
}

// Migrate creates or updates the tables this package owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.SessionRecord{})
}

// Save stores a finished session. Saving the same session id again is a no-op.
func (r *SessionRepository) Save(ctx context.Context, userID string, session models.InterviewSession) (string, error) {
	var existing models.SessionRecord
	err := r.DB.WithContext(ctx).Where("id = ?", session.ID).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	record := models.SessionRecord{
		ID:            session.ID,
		UserID:        userID,
		DocumentID:    session.DocumentID,
		Difficulty:    string(session.Config.Difficulty),
		QuestionCount: len(session.Questions),
		OverallScore:  session.OverallScore,
		EndedEarly:    session.EndedEarly,
		StartedAt:     session.StartedAt,
		CompletedAt:   session.CompletedAt,
		Session:       session,
	}
	if err := r.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	var record models.SessionRecord
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.SessionRecord, error) {
	records := []models.SessionRecord{}
	q := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
