package prompts

// template names
const (
	ModeEvaluate          = "evaluate"
	ModeGenerateQuestions = "generate_questions"
	LevelDefault          = "default"
)

// EvaluationData feeds evaluate.yaml.
type EvaluationData struct {
	Persona        string
	Difficulty     string
	QuestionType   string
	Topic          string
	Question       string
	ActiveQuestion string
	IsFollowUp     bool
	FollowUpCount  int
	MaxFollowUps   int
	IsLastQuestion bool
	Answer         string
	Context        string
	History        []HistoryLine
}

type HistoryLine struct {
	Speaker string
	Text    string
}

// QuestionData feeds generate_questions.yaml.
type QuestionData struct {
	Count      int
	Difficulty string
	Types      string
	Persona    string
	Document   string
}
