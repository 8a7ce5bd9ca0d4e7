package interview

import (
	"fmt"
	"strings"

	"peerprep/interview/internal/models"
)

type outcome int

const (
	outcomeAdvance outcome = iota
	outcomeFollowUp
	outcomeRepeat
)

func (o outcome) String() string {
	switch o {
	case outcomeFollowUp:
		return "follow_up"
	case outcomeRepeat:
		return "repeat"
	default:
		return "advance"
	}
}

// decide maps an evaluation onto the next step. Follow-ups past the cap, or
// without a question to ask, advance instead. wrap_up never ends the
// interview before the last question.
func decide(eval *models.Evaluation, followUpCount, maxFollowUps int) outcome {
	switch eval.Action {
	case models.ActionFollowUp:
		if followUpCount < maxFollowUps && strings.TrimSpace(eval.FollowUpQuestion) != "" {
			return outcomeFollowUp
		}
		return outcomeAdvance
	case models.ActionRepeatQuestion, models.ActionOffTopic:
		return outcomeRepeat
	case models.ActionNextQuestion, models.ActionWrapUp:
		return outcomeAdvance
	default:
		panic(fmt.Sprintf("interview: unhandled action %q", eval.Action))
	}
}

// normalizeEvaluation pins the evaluation to the active question and clamps
// its score into [0, maxScore].
func normalizeEvaluation(eval *models.Evaluation, questionID string, followUpIndex int, maxScore float64) {
	eval.QuestionID = questionID
	eval.FollowUpIndex = followUpIndex
	if eval.Score < 0 {
		eval.Score = 0
	}
	if eval.Score > maxScore {
		eval.Score = maxScore
	}
	if !eval.Action.Valid() {
		eval.Action, _ = models.ParseAction(string(eval.Action))
	}
}

const (
	fallbackResponse = "Hmm, had a hiccup on my side. Let's keep going!"
	fallbackFeedback = "We could not evaluate this answer automatically."
	skipResponse     = "No problem, let's move on."
	skipFeedback     = "Question skipped."
)

// fallbackEvaluation stands in for a failed evaluation call. It keeps the last
// score recorded for the question, if any.
func fallbackEvaluation(questionID string, followUpIndex int, lastScore float64) *models.Evaluation {
	return &models.Evaluation{
		QuestionID:             questionID,
		Score:                  lastScore,
		Feedback:               fallbackFeedback,
		ConversationalResponse: fallbackResponse,
		Strengths:              []string{},
		Gaps:                   []string{},
		Action:                 models.ActionNextQuestion,
		FollowUpIndex:          followUpIndex,
		Fallback:               true,
	}
}

func skipEvaluation(questionID string, followUpIndex int) *models.Evaluation {
	return &models.Evaluation{
		QuestionID:             questionID,
		Score:                  0,
		Feedback:               skipFeedback,
		ConversationalResponse: skipResponse,
		Strengths:              []string{},
		Gaps:                   []string{},
		Action:                 models.ActionNextQuestion,
		FollowUpIndex:          followUpIndex,
		Skipped:                true,
	}
}

// overallScore is the mean of terminal scores, one per question.
func overallScore(evals []models.Evaluation) (float64, bool) {
	terminal := make(map[string]float64)
	var order []string
	for _, e := range evals {
		if !e.Terminal {
			continue
		}
		if _, seen := terminal[e.QuestionID]; !seen {
			order = append(order, e.QuestionID)
		}
		terminal[e.QuestionID] = e.Score
	}
	if len(order) == 0 {
		return 0, false
	}
	var sum float64
	for _, id := range order {
		sum += terminal[id]
	}
	return sum / float64(len(order)), true
}

func greeting(persona string, count int) string {
	noun := "questions"
	if count == 1 {
		noun = "question"
	}
	return fmt.Sprintf("Hi! I'm your %s interviewer today. We'll go through %d %s based on your material. Take your time, and let's begin.", persona, count, noun)
}

func closing(score float64, ok bool) string {
	if !ok {
		return "That wraps up our interview. Thanks for practicing with me!"
	}
	return fmt.Sprintf("That wraps up our interview. Your overall score is %.1f out of 10. Thanks for practicing with me!", score)
}

func repeatPrompt(response, question string) string {
	if strings.TrimSpace(response) != "" {
		return response
	}
	return "Let me repeat the question. " + question
}
