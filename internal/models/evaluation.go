package models

import "strings"

// Action is the interviewer's decision after grading an answer.
type Action string

const (
	ActionFollowUp       Action = "follow_up"
	ActionNextQuestion   Action = "next_question"
	ActionRepeatQuestion Action = "repeat_question"
	ActionOffTopic       Action = "off_topic"
	ActionWrapUp         Action = "wrap_up"
)

var actions = []Action{
	ActionFollowUp,
	ActionNextQuestion,
	ActionRepeatQuestion,
	ActionOffTopic,
	ActionWrapUp,
}

func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAction maps an LLM decision string onto the closed set of actions.
// Unknown values fall back to next_question and ok is false.
func ParseAction(s string) (Action, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	a := Action(normalized)
	if !a.Valid() {
		return ActionNextQuestion, false
	}
	return a, true
}

// Evaluation scores are on the canonical 0-10 scale.
type Evaluation struct {
	QuestionID             string   `json:"questionId"`
	Score                  float64  `json:"score"`
	Feedback               string   `json:"feedback"`
	ConversationalResponse string   `json:"conversationalResponse"`
	Strengths              []string `json:"strengths"`
	Gaps                   []string `json:"gaps"`
	FollowUpQuestion       string   `json:"followUpQuestion,omitempty"`
	Action                 Action   `json:"action"`

	// FollowUpIndex is 0 for the main question and n for the nth follow-up.
	FollowUpIndex int `json:"followUpIndex"`
	// Terminal marks the evaluation that closed its question.
	Terminal bool `json:"terminal"`
	Fallback bool `json:"fallback,omitempty"`
	Skipped  bool `json:"skipped,omitempty"`
}

// EvaluationRequest is everything the evaluator gets to see for one submission.
type EvaluationRequest struct {
	SessionID           string              `json:"sessionId"`
	Question            Question            `json:"question"`
	ActiveQuestionText  string              `json:"activeQuestionText"`
	Answer              Answer              `json:"answer"`
	ConversationHistory []ConversationEntry `json:"conversationHistory"`
	DocumentContext     string              `json:"documentContext"`
	FollowUpCount       int                 `json:"followUpCount"`
	IsLastQuestion      bool                `json:"isLastQuestion"`
	Difficulty          Difficulty          `json:"difficulty"`
	Persona             string              `json:"persona"`
}
