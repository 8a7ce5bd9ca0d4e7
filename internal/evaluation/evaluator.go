package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

type ErrorKind string

const (
	KindPrompt   ErrorKind = "prompt"
	KindProvider ErrorKind = "provider"
	KindParse    ErrorKind = "parse"
	KindCanceled ErrorKind = "canceled"
)

// Error is returned for every failed evaluation.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return "evaluation " + string(e.Kind) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

type Options struct {
	Retry        llm.RetryPolicy
	MaxFollowUps int
	// MaxContextChars caps the study material excerpt sent with each answer.
	MaxContextChars int
	// MaxHistory caps the number of conversation entries sent.
	MaxHistory int
	MaxScore   float64
}

func DefaultOptions() Options {
	return Options{
		Retry:           llm.DefaultRetryPolicy(),
		MaxFollowUps:    2,
		MaxContextChars: 6000,
		MaxHistory:      20,
		MaxScore:        10,
	}
}

// LLMEvaluator grades answers with an LLM provider.
type LLMEvaluator struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	opts     Options
	logger   *zap.Logger
}

func NewLLMEvaluator(provider llm.Provider, pm prompts.PromptProvider, opts Options, logger *zap.Logger) *LLMEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxScore <= 0 {
		opts.MaxScore = 10
	}
	return &LLMEvaluator{provider: provider, prompts: pm, opts: opts, logger: logger}
}

// wire format of the model's answer
type result struct {
	Score                  *float64 `json:"score"`
	Feedback               string   `json:"feedback"`
	ConversationalResponse string   `json:"conversationalResponse"`
	Strengths              []string `json:"strengths"`
	Gaps                   []string `json:"gaps"`
	Action                 string   `json:"action"`
	FollowUpQuestion       string   `json:"followUpQuestion"`
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.Evaluation, error) {
	level := utils.NormalizeDifficulty(string(req.Difficulty))
	if !models.Difficulty(level).Valid() {
		level = string(models.DifficultyMedium)
	}
	prompt, err := e.prompts.BuildPrompt(prompts.ModeEvaluate, level, e.promptData(req))
	if err != nil {
		return nil, &Error{Kind: KindPrompt, Err: err}
	}

	var eval *models.Evaluation
	err = llm.Retry(ctx, e.opts.Retry, func(ctx context.Context) error {
		resp, err := e.provider.GenerateContent(ctx, prompt, req.SessionID, level)
		if err != nil {
			e.logger.Warn("evaluation call failed",
				zap.String("session_id", req.SessionID),
				zap.String("provider", e.provider.GetProviderName()),
				zap.Error(err))
			return err
		}
		parsed, rawScore, err := parseReply(resp.Content, e.opts.MaxScore)
		if err != nil {
			e.logger.Warn("unparseable evaluation", zap.String("session_id", req.SessionID), zap.Error(err))
			return llm.MarkRetryable(err)
		}
		if rawScore != parsed.Score && rawScore > e.opts.MaxScore && rawScore <= e.opts.MaxScore*10 {
			e.logger.Warn("evaluation score outside scale, rescaled",
				zap.String("session_id", req.SessionID),
				zap.Float64("raw_score", rawScore),
				zap.Float64("score", parsed.Score))
		}
		eval = parsed
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	eval.QuestionID = req.Question.ID
	eval.FollowUpIndex = req.FollowUpCount
	return eval, nil
}

func classify(err error) *Error {
	var provErr *llm.ProviderError
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindCanceled, Err: err}
	case errors.As(err, &provErr):
		return &Error{Kind: KindProvider, Err: err}
	default:
		return &Error{Kind: KindParse, Err: err}
	}
}

func (e *LLMEvaluator) promptData(req models.EvaluationRequest) prompts.EvaluationData {
	active := strings.TrimSpace(req.ActiveQuestionText)
	if active == "" {
		active = req.Question.Text
	}
	history := req.ConversationHistory
	if e.opts.MaxHistory > 0 && len(history) > e.opts.MaxHistory {
		history = history[len(history)-e.opts.MaxHistory:]
	}
	lines := make([]prompts.HistoryLine, 0, len(history))
	for _, entry := range history {
		speaker := "Candidate"
		if entry.Role == models.RoleAI {
			speaker = "Interviewer"
		}
		lines = append(lines, prompts.HistoryLine{Speaker: speaker, Text: entry.Text})
	}
	persona := req.Persona
	if persona == "" {
		persona = models.DefaultPersona
	}
	return prompts.EvaluationData{
		Persona:        persona,
		Difficulty:     string(req.Difficulty),
		QuestionType:   string(req.Question.Type),
		Topic:          req.Question.Topic,
		Question:       req.Question.Text,
		ActiveQuestion: active,
		IsFollowUp:     req.FollowUpCount > 0,
		FollowUpCount:  req.FollowUpCount,
		MaxFollowUps:   e.opts.MaxFollowUps,
		IsLastQuestion: req.IsLastQuestion,
		Answer:         req.Answer.Text,
		Context:        utils.Truncate(req.DocumentContext, e.opts.MaxContextChars),
		History:        lines,
	}
}

// Parse decodes a model reply into an evaluation on the 0..maxScore scale.
// Replies on a 0-100 scale are divided down.
func Parse(content string, maxScore float64) (*models.Evaluation, error) {
	eval, _, err := parseReply(content, maxScore)
	return eval, err
}

// parseReply also returns the score as the model sent it.
func parseReply(content string, maxScore float64) (*models.Evaluation, float64, error) {
	raw, ok := utils.ExtractJSONObject(content)
	if !ok {
		return nil, 0, errors.New("no JSON object in reply")
	}
	var r result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, 0, fmt.Errorf("decode reply: %w", err)
	}
	if r.Score == nil {
		return nil, 0, errors.New("reply has no score")
	}

	action, _ := models.ParseAction(r.Action)

	eval := &models.Evaluation{
		Score:                  normalizeScore(*r.Score, maxScore),
		Feedback:               strings.TrimSpace(r.Feedback),
		ConversationalResponse: strings.TrimSpace(r.ConversationalResponse),
		Strengths:              nonEmpty(r.Strengths),
		Gaps:                   nonEmpty(r.Gaps),
		Action:                 action,
		FollowUpQuestion:       strings.TrimSpace(r.FollowUpQuestion),
	}
	if eval.Action != models.ActionFollowUp {
		eval.FollowUpQuestion = ""
	}
	return eval, *r.Score, nil
}

func normalizeScore(score, maxScore float64) float64 {
	if score > maxScore && score <= maxScore*10 {
		score /= 10
	}
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
