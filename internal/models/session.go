package models

import "time"

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseIntro      Phase = "intro"
	PhaseAsking     Phase = "asking"
	PhaseEvaluating Phase = "evaluating"
	PhaseFollowUp   Phase = "follow_up"
	PhaseAdvancing  Phase = "advancing"
	PhaseWrapUp     Phase = "wrapup"
	PhaseCompleted  Phase = "completed"
	PhasePaused     Phase = "paused"
	PhaseError      Phase = "error"
)

// Active reports whether the interview is running and can be paused.
func (p Phase) Active() bool {
	switch p {
	case PhaseIntro, PhaseAsking, PhaseEvaluating, PhaseFollowUp, PhaseAdvancing, PhaseWrapUp:
		return true
	}
	return false
}

const (
	DefaultPersona       = "friendly"
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
)

type SessionConfig struct {
	Persona       string         `json:"persona"`
	Difficulty    Difficulty     `json:"difficulty"`
	QuestionTypes []QuestionType `json:"questionTypes"`
	QuestionCount int            `json:"questionCount"`
	Mode          AnswerMode     `json:"mode"`
	Shuffle       bool           `json:"shuffle"`
}

// WithDefaults fills zero values.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.Persona == "" {
		c.Persona = DefaultPersona
	}
	if c.Difficulty == "" {
		c.Difficulty = DifficultyMedium
	}
	if len(c.QuestionTypes) == 0 {
		c.QuestionTypes = []QuestionType{QuestionConceptual, QuestionApplied, QuestionAnalytical}
	}
	if c.QuestionCount == 0 {
		c.QuestionCount = DefaultQuestionCount
	}
	if c.Mode == "" {
		c.Mode = ModeText
	}
	return c
}

func (c SessionConfig) Validate() error {
	if !c.Difficulty.Valid() {
		return &ErrorResponse{Code: "invalid_difficulty", Message: "difficulty must be one of: easy, medium, hard"}
	}
	if c.QuestionCount < 1 || c.QuestionCount > MaxQuestionCount {
		return &ErrorResponse{Code: "invalid_question_count", Message: "questionCount must be between 1 and 20"}
	}
	for _, t := range c.QuestionTypes {
		if !ValidQuestionTypes[t] {
			return &ErrorResponse{Code: "invalid_question_type", Message: "questionTypes must be conceptual, applied, analytical or coding"}
		}
	}
	if c.Mode != ModeText && c.Mode != ModeVoice {
		return &ErrorResponse{Code: "invalid_mode", Message: "mode must be text or voice"}
	}
	return nil
}

// InterviewSession is owned by its orchestrator while in progress.
type InterviewSession struct {
	ID                   string              `json:"id"`
	DocumentID           string              `json:"documentId"`
	UserID               string              `json:"userId"`
	Config               SessionConfig       `json:"config"`
	Questions            []Question          `json:"questions"`
	Answers              []Answer            `json:"answers"`
	Evaluations          []Evaluation        `json:"evaluations"`
	ConversationHistory  []ConversationEntry `json:"conversationHistory"`
	CurrentQuestionIndex int                 `json:"currentQuestionIndex"`
	FollowUpCount        int                 `json:"followUpCount"`
	CurrentDifficulty    Difficulty          `json:"currentDifficulty"`
	Phase                Phase               `json:"phase"`
	StartedAt            time.Time           `json:"startedAt"`
	CompletedAt          *time.Time          `json:"completedAt,omitempty"`
	OverallScore         *float64            `json:"overallScore,omitempty"`
	EndedEarly           bool                `json:"endedEarly,omitempty"`
	Error                string              `json:"error,omitempty"`
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s InterviewSession) Clone() InterviewSession {
	out := s
	out.Config.QuestionTypes = append([]QuestionType(nil), s.Config.QuestionTypes...)
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.TestCases = append([]TestCase(nil), q.TestCases...)
		out.Questions[i] = q
	}
	out.Answers = append([]Answer(nil), s.Answers...)
	out.Evaluations = make([]Evaluation, len(s.Evaluations))
	for i, e := range s.Evaluations {
		e.Strengths = append([]string(nil), e.Strengths...)
		e.Gaps = append([]string(nil), e.Gaps...)
		out.Evaluations[i] = e
	}
	out.ConversationHistory = append([]ConversationEntry(nil), s.ConversationHistory...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.OverallScore != nil {
		v := *s.OverallScore
		out.OverallScore = &v
	}
	return out
}

// CurrentQuestion returns the question at CurrentQuestionIndex, if any.
func (s *InterviewSession) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

func (s *InterviewSession) IsLastQuestion() bool {
	return len(s.Questions) > 0 && s.CurrentQuestionIndex == len(s.Questions)-1
}

// Snapshot is the read-only view handed to transports and subscribers.
type Snapshot struct {
	InterviewSession
	ActiveQuestionText string `json:"activeQuestionText,omitempty"`
	Speaking           bool   `json:"speaking"`
	Listening          bool   `json:"listening"`
	Transcript         string `json:"transcript,omitempty"`
	VoiceEnabled       bool   `json:"voiceEnabled"`
	PausedFrom         Phase  `json:"pausedFrom,omitempty"`
	Version            uint64 `json:"version"`
}
