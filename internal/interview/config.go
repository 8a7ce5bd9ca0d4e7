package interview

import (
	"errors"
	"time"
)

// Config holds the tunables of the interview state machine.
type Config struct {
	// SpeechTimeout bounds how long the orchestrator waits for an utterance to finish.
	SpeechTimeout time.Duration `koanf:"speech_timeout"`
	// SilenceTimeout is the unchanged-transcript period that triggers auto-submit.
	SilenceTimeout time.Duration `koanf:"silence_timeout"`
	MaxFollowUps   int           `koanf:"max_follow_ups"`
	// ScoreWindow is the number of recent scores averaged for difficulty changes.
	ScoreWindow   int     `koanf:"score_window"`
	HighThreshold float64 `koanf:"high_threshold"`
	LowThreshold  float64 `koanf:"low_threshold"`
	// MaxScore is the top of the canonical score scale.
	MaxScore          float64       `koanf:"max_score"`
	EvaluationTimeout time.Duration `koanf:"evaluation_timeout"`
	GenerationTimeout time.Duration `koanf:"generation_timeout"`
	SaveTimeout       time.Duration `koanf:"save_timeout"`
}

func DefaultConfig() Config {
	return Config{
		SpeechTimeout:     15 * time.Second,
		SilenceTimeout:    3 * time.Second,
		MaxFollowUps:      2,
		ScoreWindow:       2,
		HighThreshold:     0.8,
		LowThreshold:      0.4,
		MaxScore:          10,
		EvaluationTimeout: 45 * time.Second,
		GenerationTimeout: 90 * time.Second,
		SaveTimeout:       10 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SpeechTimeout <= 0:
		return errors.New("speech_timeout must be positive")
	case c.SilenceTimeout <= 0:
		return errors.New("silence_timeout must be positive")
	case c.MaxFollowUps < 0:
		return errors.New("max_follow_ups must not be negative")
	case c.ScoreWindow < 1:
		return errors.New("score_window must be at least 1")
	case c.MaxScore <= 0:
		return errors.New("max_score must be positive")
	case c.LowThreshold < 0 || c.HighThreshold > 1 || c.LowThreshold >= c.HighThreshold:
		return errors.New("thresholds must satisfy 0 <= low_threshold < high_threshold <= 1")
	case c.EvaluationTimeout <= 0 || c.GenerationTimeout <= 0 || c.SaveTimeout <= 0:
		return errors.New("evaluation, generation and save timeouts must be positive")
	}
	return nil
}
