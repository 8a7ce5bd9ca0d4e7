package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

const defaultMaxDocumentChars = 30000

// Generator turns study material into interview questions with an LLM.
type Generator struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	retry    llm.RetryPolicy
	maxChars int
	logger   *zap.Logger
	shuffle  func(n int, swap func(i, j int))
}

func NewGenerator(provider llm.Provider, pm prompts.PromptProvider, retry llm.RetryPolicy, maxChars int, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxChars <= 0 {
		maxChars = defaultMaxDocumentChars
	}
	return &Generator{
		provider: provider,
		prompts:  pm,
		retry:    retry,
		maxChars: maxChars,
		logger:   logger,
		shuffle:  rand.Shuffle,
	}
}

type generated struct {
	Questions []struct {
		Text       string            `json:"text"`
		Type       string            `json:"type"`
		Topic      string            `json:"topic"`
		Difficulty string            `json:"difficulty"`
		TestCases  []models.TestCase `json:"testCases"`
	} `json:"questions"`
}

// Generate implements interview.QuestionSource.
func (g *Generator) Generate(ctx context.Context, doc models.Document, cfg models.SessionConfig) ([]models.Question, error) {
	cfg = cfg.WithDefaults()
	if strings.TrimSpace(doc.Text) == "" {
		return nil, errors.New("document has no text")
	}

	types := make([]string, 0, len(cfg.QuestionTypes))
	for _, t := range cfg.QuestionTypes {
		types = append(types, string(t))
	}
	prompt, err := g.prompts.BuildPrompt(prompts.ModeGenerateQuestions, prompts.LevelDefault, prompts.QuestionData{
		Count:      cfg.QuestionCount,
		Difficulty: string(cfg.Difficulty),
		Types:      strings.Join(types, ", "),
		Persona:    cfg.Persona,
		Document:   utils.Truncate(doc.Text, g.maxChars),
	})
	if err != nil {
		return nil, fmt.Errorf("build question prompt: %w", err)
	}

	var questions []models.Question
	err = llm.Retry(ctx, g.retry, func(ctx context.Context) error {
		resp, err := g.provider.GenerateContent(ctx, prompt, doc.ID, prompts.LevelDefault)
		if err != nil {
			g.logger.Warn("question generation call failed", zap.String("document_id", doc.ID), zap.Error(err))
			return err
		}
		parsed, err := g.parse(resp.Content, cfg)
		if err != nil {
			g.logger.Warn("unusable question reply", zap.String("document_id", doc.ID), zap.Error(err))
			return llm.MarkRetryable(err)
		}
		questions = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cfg.Shuffle {
		g.shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}
	g.logger.Info("questions generated", zap.String("document_id", doc.ID), zap.Int("count", len(questions)))
	return questions, nil
}

func (g *Generator) parse(content string, cfg models.SessionConfig) ([]models.Question, error) {
	raw, ok := utils.ExtractJSONObject(content)
	if !ok {
		return nil, errors.New("no JSON object in reply")
	}
	var out generated
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	allowed := make(map[models.QuestionType]bool, len(cfg.QuestionTypes))
	for _, t := range cfg.QuestionTypes {
		allowed[t] = true
	}

	questions := make([]models.Question, 0, cfg.QuestionCount)
	for _, item := range out.Questions {
		if len(questions) == cfg.QuestionCount {
			break
		}
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		qType := models.QuestionType(strings.ToLower(strings.TrimSpace(item.Type)))
		if !allowed[qType] {
			continue
		}
		difficulty, ok := models.ParseDifficulty(item.Difficulty)
		if !ok {
			difficulty = cfg.Difficulty
		}
		q := models.Question{
			ID:         uuid.NewString(),
			Text:       text,
			Type:       qType,
			Topic:      strings.TrimSpace(item.Topic),
			Difficulty: difficulty,
			Mode:       cfg.Mode,
		}
		if qType == models.QuestionCoding {
			q.Mode = models.ModeCoding
			q.TestCases = item.TestCases
		}
		if q.Topic == "" {
			q.Topic = "general"
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, interview.ErrNoQuestions
	}
	return questions, nil
}
