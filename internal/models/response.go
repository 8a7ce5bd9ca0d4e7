package models

import "time"

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Code + ": " + e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// returned by LLM providers
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	DetailLevel    string `json:"detail_level"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

type StartSessionResponse struct {
	SessionID string   `json:"sessionId"`
	Snapshot  Snapshot `json:"snapshot"`
}

// one row of the user's interview history
type SessionSummary struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"documentId"`
	Difficulty    Difficulty `json:"difficulty"`
	QuestionCount int        `json:"questionCount"`
	OverallScore  *float64   `json:"overallScore,omitempty"`
	EndedEarly    bool       `json:"endedEarly"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}
