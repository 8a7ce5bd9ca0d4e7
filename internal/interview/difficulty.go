package interview

import "peerprep/interview/internal/models"

// AdjustDifficulty applies the adaptive difficulty policy to the most recent
// scores. Fewer than cfg.ScoreWindow scores never changes the level.
func AdjustDifficulty(current models.Difficulty, scores []float64, cfg Config) models.Difficulty {
	if len(scores) < cfg.ScoreWindow || cfg.ScoreWindow < 1 || cfg.MaxScore <= 0 {
		return current
	}
	level := current.Level()
	if level < 0 {
		return current
	}

	window := scores[len(scores)-cfg.ScoreWindow:]
	var sum float64
	for _, s := range window {
		sum += s
	}
	ratio := sum / float64(len(window)) / cfg.MaxScore

	switch {
	case ratio > cfg.HighThreshold && level < len(models.DifficultyLevels)-1:
		return models.DifficultyAt(level + 1)
	case ratio < cfg.LowThreshold && level > 0:
		return models.DifficultyAt(level - 1)
	}
	return current
}

// pushScore appends s and keeps at most n scores.
func pushScore(scores []float64, s float64, n int) []float64 {
	scores = append(scores, s)
	if len(scores) > n {
		scores = append(scores[:0], scores[len(scores)-n:]...)
	}
	return scores
}
