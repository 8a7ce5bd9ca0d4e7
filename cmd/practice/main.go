// Command practice runs a text-mode mock interview in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/evaluation"
	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/llm"
	_ "peerprep/interview/internal/llm/gemini"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/questions"
	"peerprep/interview/internal/store"
	"peerprep/interview/internal/utils"
)

const localUser = "local"

type options struct {
	file       string
	persona    string
	difficulty string
	types      []string
	count      int
	shuffle    bool
	provider   string
	tuningFile string
	dbPath     string
	verbose    bool
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "practice --file notes.txt",
		Short: "Practice an interview on your study material",
		Long: `Generates interview questions from a text document and runs the
interview in the terminal. Type your answer and press enter.

Commands during the interview:
  /skip     skip the current question
  /pause    pause the interview
  /resume   resume after a pause
  /retry    retry question generation after an error
  /end      finish now and show the report`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPractice(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "study material (plain text or markdown)")
	flags.StringVar(&opts.persona, "persona", models.DefaultPersona, "interviewer persona")
	flags.StringVarP(&opts.difficulty, "difficulty", "d", string(models.DifficultyMedium), "starting difficulty: easy, medium or hard")
	flags.StringSliceVarP(&opts.types, "types", "t", nil, "question types: conceptual, applied, analytical")
	flags.IntVarP(&opts.count, "count", "n", models.DefaultQuestionCount, "number of questions")
	flags.BoolVar(&opts.shuffle, "shuffle", false, "shuffle the generated questions")
	flags.StringVar(&opts.provider, "provider", "gemini", "LLM provider")
	flags.StringVar(&opts.tuningFile, "config", os.Getenv("INTERVIEW_CONFIG_FILE"), "YAML file with interview tunables")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite file to keep finished sessions in")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "show debug logs")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("file")

	cmd.AddCommand(newHistoryCmd())
	return cmd
}

func (o *options) validate() error {
	if o.noColor {
		color.NoColor = true
	}
	cfg := o.sessionConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, t := range cfg.QuestionTypes {
		if t == models.QuestionCoding {
			return fmt.Errorf("coding questions need the server's code sandbox")
		}
	}
	return nil
}

func (o *options) sessionConfig() models.SessionConfig {
	cfg := models.SessionConfig{
		Persona:       o.persona,
		Difficulty:    models.Difficulty(utils.NormalizeDifficulty(o.difficulty)),
		QuestionCount: o.count,
		Mode:          models.ModeText,
		Shuffle:       o.shuffle,
	}
	for _, t := range o.types {
		cfg.QuestionTypes = append(cfg.QuestionTypes, models.QuestionType(strings.ToLower(strings.TrimSpace(t))))
	}
	return cfg.WithDefaults()
}

func loadDocument(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return models.Document{}, fmt.Errorf("%s is empty", path)
	}
	return models.Document{
		ID:     uuid.NewString(),
		UserID: localUser,
		Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Text:   text,
	}, nil
}

func openHistory(path string) (*store.SessionRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &store.SessionRepository{DB: db}, nil
}

func runPractice(ctx context.Context, opts *options) error {
	logger, err := utils.NewLogger(true, opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	doc, err := loadDocument(opts.file)
	if err != nil {
		return err
	}
	tuning, err := config.LoadTuning(opts.tuningFile)
	if err != nil {
		return err
	}
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		return err
	}
	provider, err := llm.NewProvider(opts.provider)
	if err != nil {
		return err
	}

	var sessionStore interview.SessionStore
	var saves *notifyingStore
	if opts.dbPath != "" {
		repo, err := openHistory(opts.dbPath)
		if err != nil {
			return err
		}
		saves = newNotifyingStore(store.NewRecorder(repo, nil, logger))
		sessionStore = saves
	}

	evalOptions := evaluation.DefaultOptions()
	evalOptions.MaxFollowUps = tuning.MaxFollowUps
	evalOptions.MaxScore = tuning.MaxScore

	orch, err := interview.New(interview.Params{
		SessionID: uuid.NewString(),
		UserID:    localUser,
		Document:  doc,
		Config:    opts.sessionConfig(),
	}, interview.Dependencies{
		Questions: questions.NewGenerator(provider, promptManager, llm.DefaultRetryPolicy(), 0, logger),
		Evaluator: evaluation.NewLLMEvaluator(provider, promptManager, evalOptions, logger),
		Store:     sessionStore,
		Logger:    logger,
	}, tuning)
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting practice session", zap.String("session_id", orch.ID()))
	ui := newConsole(os.Stdout)
	ui.banner(doc.Title, opts.sessionConfig())

	final, err := runInterview(ctx, orch, os.Stdin, ui)
	if err != nil {
		return err
	}
	ui.report(final.InterviewSession)
	if saves != nil && len(final.Questions) > 0 {
		if err := saves.wait(tuning.SaveTimeout); err != nil {
			ui.warn("Session was not saved: " + err.Error())
		} else {
			ui.info("Session saved to " + opts.dbPath)
		}
	}
	return nil
}
