package interview

import (
	"errors"
	"fmt"

	"peerprep/interview/internal/models"
)

var (
	ErrEmptyAnswer   = errors.New("answer is empty")
	ErrWrongPhase    = errors.New("intent not allowed in current phase")
	ErrClosed        = errors.New("orchestrator closed")
	ErrNoQuestions   = errors.New("no questions generated")
	ErrNoListener    = errors.New("speech capture unavailable")
	ErrSessionExists = errors.New("session already registered")
)

func wrongPhase(p models.Phase) error {
	return fmt.Errorf("%w: %s", ErrWrongPhase, p)
}
