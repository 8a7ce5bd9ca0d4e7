package models

import (
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionConceptual QuestionType = "conceptual"
	QuestionApplied    QuestionType = "applied"
	QuestionAnalytical QuestionType = "analytical"
	QuestionCoding     QuestionType = "coding"
)

// contains all valid question types (in lowercase)
var ValidQuestionTypes = map[QuestionType]bool{
	QuestionConceptual: true,
	QuestionApplied:    true,
	QuestionAnalytical: true,
	QuestionCoding:     true,
}

type AnswerMode string

const (
	ModeText   AnswerMode = "text"
	ModeVoice  AnswerMode = "voice"
	ModeCoding AnswerMode = "coding"
)

var ValidAnswerModes = map[AnswerMode]bool{
	ModeText:   true,
	ModeVoice:  true,
	ModeCoding: true,
}

// Difficulty levels are ordered from easiest to hardest.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var DifficultyLevels = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Level returns the position of d in DifficultyLevels, or -1 if unknown.
func (d Difficulty) Level() int {
	for i, level := range DifficultyLevels {
		if level == d {
			return i
		}
	}
	return -1
}

func (d Difficulty) Valid() bool { return d.Level() >= 0 }

// DifficultyAt clamps level into the configured range.
func DifficultyAt(level int) Difficulty {
	if level < 0 {
		level = 0
	}
	if level >= len(DifficultyLevels) {
		level = len(DifficultyLevels) - 1
	}
	return DifficultyLevels[level]
}

func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

type TestCase struct {
	Input          string `json:"input" bson:"input"`
	ExpectedOutput string `json:"expectedOutput" bson:"expectedOutput"`
}

// Question is immutable once generated for a session.
type Question struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Topic      string       `json:"topic"`
	Difficulty Difficulty   `json:"difficulty"`
	Mode       AnswerMode   `json:"mode"`
	TestCases  []TestCase   `json:"testCases,omitempty"`
}

// Answer holds the last submission for a question. Skipped answers carry no text.
type Answer struct {
	QuestionID string    `json:"questionId"`
	Text       string    `json:"text"`
	Skipped    bool      `json:"skipped,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Role string

const (
	RoleAI   Role = "ai"
	RoleUser Role = "user"
)

type ConversationEntry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
