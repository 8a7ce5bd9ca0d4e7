package models

import "time"

// Document is the study material questions are generated from.
type Document struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Title     string    `json:"title" bson:"title"`
	Text      string    `json:"text,omitempty" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// SessionRecord is the persisted form of a finished session.
type SessionRecord struct {
	ID            string           `gorm:"primaryKey;size:64" json:"id"`
	UserID        string           `gorm:"index;size:64;not null" json:"userId"`
	DocumentID    string           `gorm:"size:64" json:"documentId"`
	Difficulty    string           `gorm:"size:16" json:"difficulty"`
	QuestionCount int              `json:"questionCount"`
	OverallScore  *float64         `json:"overallScore,omitempty"`
	EndedEarly    bool             `json:"endedEarly"`
	StartedAt     time.Time        `gorm:"index" json:"startedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	Session       InterviewSession `gorm:"type:text;serializer:json" json:"session"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func (SessionRecord) TableName() string { return "interview_sessions" }

func (r SessionRecord) Summary() SessionSummary {
	return SessionSummary{
		ID:            r.ID,
		DocumentID:    r.DocumentID,
		Difficulty:    Difficulty(r.Difficulty),
		QuestionCount: r.QuestionCount,
		OverallScore:  r.OverallScore,
		EndedEarly:    r.EndedEarly,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}
