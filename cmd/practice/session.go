package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/models"
)

const (
	intentTimeout = 10 * time.Second
	endTimeout    = 5 * time.Second
)

var errUnknownCommand = errors.New("unknown command")

// runInterview drives orch from lines of in until the session completes.
// Input is only consumed while the interview waits for the candidate, so
// piped answers are not lost while questions are generated or graded.
func runInterview(ctx context.Context, orch *interview.Orchestrator, in io.Reader, ui *console) (models.Snapshot, error) {
	updates, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go readLines(in, lines, done)

	if err := orch.Start(ctx); err != nil {
		return models.Snapshot{}, err
	}
	ui.info("Preparing questions...")

	v := &view{ui: ui}
	input := lines
	for {
		var ready <-chan string
		if v.awaitingInput() {
			ready = input
		}

		select {
		case <-ctx.Done():
			return endNow(orch)

		case snap, ok := <-updates:
			if !ok {
				return orch.Snapshot(), interview.ErrClosed
			}
			v.apply(snap)
			if snap.Phase == models.PhaseCompleted {
				return snap, nil
			}

		case line, ok := <-ready:
			if !ok {
				// stdin is gone; finish with what we have
				input = nil
				if err := end(orch); err != nil && !errors.Is(err, interview.ErrWrongPhase) {
					return orch.Snapshot(), err
				}
				continue
			}
			if err := handleLine(ctx, orch, line); err != nil {
				ui.warn(describe(err))
			}
			v.apply(orch.Snapshot())
		}
	}
}

func readLines(in io.Reader, out chan<- string, done <-chan struct{}) {
	defer close(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-done:
			return
		}
	}
}

func handleLine(ctx context.Context, orch *interview.Orchestrator, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()

	if !strings.HasPrefix(line, "/") {
		return orch.SubmitAnswer(ctx, line)
	}
	switch strings.ToLower(line) {
	case "/skip":
		return orch.Skip(ctx)
	case "/pause":
		return orch.Pause(ctx)
	case "/resume":
		return orch.Resume(ctx)
	case "/retry":
		return orch.Retry(ctx)
	case "/end":
		return orch.End(ctx)
	default:
		return fmt.Errorf("%w %s", errUnknownCommand, line)
	}
}

func end(orch *interview.Orchestrator) error {
	ctx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()
	return orch.End(ctx)
}

// endNow finishes an interrupted interview so the report can still be shown.
func endNow(orch *interview.Orchestrator) (models.Snapshot, error) {
	if err := end(orch); err != nil && !errors.Is(err, interview.ErrWrongPhase) {
		return orch.Snapshot(), err
	}
	return orch.Snapshot(), nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, interview.ErrEmptyAnswer):
		return "Type an answer before pressing enter."
	case errors.Is(err, interview.ErrWrongPhase):
		return "That is not possible right now."
	case errors.Is(err, errUnknownCommand):
		return err.Error() + ". Try /skip, /pause, /resume, /retry or /end."
	default:
		return err.Error()
	}
}

// view tracks what has been printed so far. Snapshots may arrive out of
// order between the subscription and direct reads, so older versions are
// ignored.
type view struct {
	ui          *console
	current     models.Snapshot
	seen        bool
	entries     int
	evaluations int
}

func (v *view) apply(snap models.Snapshot) {
	if v.seen && snap.Version < v.current.Version {
		return
	}
	prev := v.current.Phase
	v.current = snap

	for _, e := range snap.ConversationHistory[min(v.entries, len(snap.ConversationHistory)):] {
		if e.Role == models.RoleAI {
			v.ui.interviewer(snap.Config.Persona, e.Text)
		}
	}
	v.entries = len(snap.ConversationHistory)

	for _, e := range snap.Evaluations[min(v.evaluations, len(snap.Evaluations)):] {
		v.ui.evaluation(e)
	}
	v.evaluations = len(snap.Evaluations)

	if !v.seen || prev != snap.Phase {
		v.seen = true
		v.ui.phase(snap)
	}
}

func (v *view) awaitingInput() bool {
	switch v.current.Phase {
	case models.PhaseAsking, models.PhasePaused, models.PhaseError:
		return true
	}
	return false
}

// notifyingStore lets the command wait for the background save that the
// orchestrator starts when a session completes.
type notifyingStore struct {
	next interview.SessionStore
	once sync.Once
	done chan struct{}
	err  error
}

func newNotifyingStore(next interview.SessionStore) *notifyingStore {
	return &notifyingStore{next: next, done: make(chan struct{})}
}

func (s *notifyingStore) Save(ctx context.Context, userID string, session models.InterviewSession) (string, error) {
	id, err := s.next.Save(ctx, userID, session)
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
	return id, err
}

func (s *notifyingStore) wait(timeout time.Duration) error {
	select {
	case <-s.done:
		return s.err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	}
}
