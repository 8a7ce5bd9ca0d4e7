package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerprep/interview/internal/models"
)

func assertPrefix(t *testing.T, before, after []models.ConversationEntry) {
	t.Helper()
	require.GreaterOrEqual(t, len(after), len(before), "history must never shrink")
	for i := range before {
		assert.Equal(t, before[i].Text, after[i].Text, "history entry %d was rewritten", i)
		assert.Equal(t, before[i].Role, after[i].Role)
	}
}

func TestHappyPathRaisesDifficulty(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(9, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(3, models.ModeText), eval, nil)
	ctx := context.Background()

	h.started(t)
	first := h.o.Snapshot()
	assert.Equal(t, "Question number 1?", first.ActiveQuestionText)
	assert.Equal(t, models.RoleAI, first.ConversationHistory[0].Role)

	require.NoError(t, h.o.SubmitAnswer(ctx, "answer one"))
	second := h.waitAsking(t, 1)
	assert.Equal(t, models.DifficultyMedium, second.CurrentDifficulty)
	assertPrefix(t, first.ConversationHistory, second.ConversationHistory)

	require.NoError(t, h.o.SubmitAnswer(ctx, "answer two"))
	third := h.waitAsking(t, 2)
	assert.Equal(t, models.DifficultyHard, third.CurrentDifficulty)
	assertPrefix(t, second.ConversationHistory, third.ConversationHistory)

	require.NoError(t, h.o.SubmitAnswer(ctx, "answer three"))
	done := h.waitPhase(t, models.PhaseCompleted)
	assertPrefix(t, third.ConversationHistory, done.ConversationHistory)

	assert.Equal(t, models.DifficultyHard, eval.request(2).Difficulty)
	assert.True(t, eval.request(2).IsLastQuestion)
	require.NotNil(t, done.OverallScore)
	assert.InDelta(t, 9, *done.OverallScore, 1e-9)
	assert.False(t, done.EndedEarly)
	assert.NotNil(t, done.CompletedAt)
	assert.Len(t, done.Answers, 3)
	assert.Len(t, done.Evaluations, 3)

	require.Eventually(t, func() bool { return h.store.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "s-1", h.store.last().ID)
}

func TestEmptyAnswerIsRejectedWithoutStateChange(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(5, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	h.started(t)
	before := h.o.Snapshot()

	err := h.o.SubmitAnswer(context.Background(), "   \n\t")
	require.ErrorIs(t, err, ErrEmptyAnswer)

	after := h.o.Snapshot()
	assert.Equal(t, models.PhaseAsking, after.Phase)
	assert.Len(t, after.ConversationHistory, len(before.ConversationHistory))
	assert.Empty(t, after.Answers)
	assert.Zero(t, eval.calls())
}

func TestSubmitWhileEvaluatingIsRejected(t *testing.T) {
	gate := make(chan struct{})
	eval := &scriptedEvaluator{fallback: scored(5, models.ActionNextQuestion), gate: gate}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	require.NoError(t, h.o.SubmitAnswer(ctx, "first"))
	assert.Equal(t, models.PhaseEvaluating, h.o.Snapshot().Phase)

	err := h.o.SubmitAnswer(ctx, "second")
	require.ErrorIs(t, err, ErrWrongPhase)
	require.ErrorIs(t, h.o.Skip(ctx), ErrWrongPhase)

	close(gate)
	h.waitAsking(t, 1)
	assert.Equal(t, 1, eval.calls())
}

func TestFollowUpsStopAtCap(t *testing.T) {
	followUp := evalStep{eval: &models.Evaluation{
		Score:                  6,
		ConversationalResponse: "Interesting.",
		Action:                 models.ActionFollowUp,
		FollowUpQuestion:       "Can you elaborate?",
	}}
	eval := &scriptedEvaluator{fallback: followUp}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	for want := 1; want <= 2; want++ {
		require.NoError(t, h.o.SubmitAnswer(ctx, "partial"))
		snap := h.waitFor(t, func(s models.Snapshot) bool {
			return s.Phase == models.PhaseAsking && s.FollowUpCount == want
		}, "expected follow-up")
		assert.Equal(t, 0, snap.CurrentQuestionIndex)
		assert.Equal(t, "Can you elaborate?", snap.ActiveQuestionText)
	}

	require.NoError(t, h.o.SubmitAnswer(ctx, "more"))
	snap := h.waitAsking(t, 1)
	assert.Equal(t, 0, snap.FollowUpCount)

	require.Len(t, snap.Evaluations, 3)
	for i, e := range snap.Evaluations {
		assert.Equal(t, "q1", e.QuestionID)
		assert.Equal(t, i, e.FollowUpIndex)
		assert.Equal(t, i == 2, e.Terminal)
	}
	assert.Equal(t, 2, eval.request(2).FollowUpCount)
	assert.Equal(t, "Can you elaborate?", eval.request(1).ActiveQuestionText)
	// the capped follow-up records a single answer for the question
	assert.Len(t, snap.Answers, 1)
	assert.Equal(t, "more", snap.Answers[0].Text)
}

func TestRepeatKeepsQuestion(t *testing.T) {
	repeat := evalStep{eval: &models.Evaluation{
		Score:                  3,
		ConversationalResponse: "Let me put that differently: what is question two really asking?",
		Action:                 models.ActionRepeatQuestion,
	}}
	eval := &scriptedEvaluator{script: []evalStep{scored(7, models.ActionNextQuestion), repeat}}
	h := newHarness(t, makeQuestions(3, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	require.NoError(t, h.o.SubmitAnswer(ctx, "one"))
	h.waitAsking(t, 1)

	require.NoError(t, h.o.SubmitAnswer(ctx, "two"))
	snap := h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseAsking && len(s.Evaluations) == 2
	}, "expected repeat")
	assert.Equal(t, 1, snap.CurrentQuestionIndex)
	assert.Equal(t, 0, snap.FollowUpCount)

	history := snap.ConversationHistory
	userAt := -1
	for i, e := range history {
		if e.Role == models.RoleUser && e.Text == "two" {
			userAt = i
		}
	}
	require.GreaterOrEqual(t, userAt, 0)
	tail := history[userAt+1:]
	require.Len(t, tail, 1)
	assert.Equal(t, models.RoleAI, tail[0].Role)
	assert.Contains(t, tail[0].Text, "put that differently")
}

func TestEvaluationFailureFallsBack(t *testing.T) {
	eval := &scriptedEvaluator{script: []evalStep{failed()}, fallback: scored(8, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	h.started(t)

	require.NoError(t, h.o.SubmitAnswer(context.Background(), "answer"))
	snap := h.waitAsking(t, 1)

	require.Len(t, snap.Evaluations, 1)
	assert.True(t, snap.Evaluations[0].Fallback)
	assert.True(t, snap.Evaluations[0].Terminal)
	assert.Zero(t, snap.Evaluations[0].Score)

	count := 0
	for _, e := range snap.ConversationHistory {
		if e.Text == fallbackResponse {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{OutcomeFallback}, h.observer.outcomes)
}

func TestLastQuestionWrapsUp(t *testing.T) {
	eval := &scriptedEvaluator{script: []evalStep{
		scored(6, models.ActionWrapUp),
		scored(8, models.ActionNextQuestion),
	}}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	// wrap_up before the last question still moves on
	require.NoError(t, h.o.SubmitAnswer(ctx, "one"))
	h.waitAsking(t, 1)

	require.NoError(t, h.o.SubmitAnswer(ctx, "two"))
	done := h.waitPhase(t, models.PhaseCompleted)
	require.NotNil(t, done.OverallScore)
	assert.InDelta(t, 7, *done.OverallScore, 1e-9)

	phases := h.observer.phases()
	require.GreaterOrEqual(t, len(phases), 4)
	assert.Equal(t, []models.Phase{
		models.PhaseEvaluating,
		models.PhaseAdvancing,
		models.PhaseWrapUp,
		models.PhaseCompleted,
	}, phases[len(phases)-4:])

	last := done.ConversationHistory[len(done.ConversationHistory)-1]
	assert.Contains(t, last.Text, "7.0 out of 10")

	require.Eventually(t, func() bool { return h.store.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.o.End(ctx))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.store.count())
}

func TestEndDuringFinalResponseKeepsScore(t *testing.T) {
	eval := &scriptedEvaluator{script: []evalStep{scored(8, models.ActionNextQuestion)}}
	speaker := &fakeSpeaker{manual: true}
	h := newHarness(t, makeQuestions(1, models.ModeText), eval, func(d *Dependencies, c *Config) {
		d.Speaker = speaker
		c.SpeechTimeout = 5 * time.Second
	})
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	require.Eventually(t, func() bool {
		speaker.finish()
		s := h.o.Snapshot()
		return s.Phase == models.PhaseAsking && !s.Speaking
	}, 2*time.Second, 5*time.Millisecond, "expected the question to be asked")

	require.NoError(t, h.o.SubmitAnswer(ctx, "an answer"))
	snap := h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseAdvancing && s.Speaking
	}, "expected the final response to be playing")
	require.NotNil(t, snap.OverallScore)
	assert.InDelta(t, 8, *snap.OverallScore, 1e-9)

	require.NoError(t, h.o.End(ctx))
	require.Eventually(t, func() bool { return h.store.count() == 1 }, time.Second, 5*time.Millisecond)
	saved := h.store.last()
	require.NotNil(t, saved.OverallScore)
	assert.InDelta(t, 8, *saved.OverallScore, 1e-9)
	assert.False(t, saved.EndedEarly)
}

func TestSkipAdvancesWithZeroScore(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	h.started(t)

	require.NoError(t, h.o.Skip(context.Background()))
	snap := h.waitAsking(t, 1)

	require.Len(t, snap.Evaluations, 1)
	assert.True(t, snap.Evaluations[0].Skipped)
	assert.True(t, snap.Evaluations[0].Terminal)
	assert.Zero(t, snap.Evaluations[0].Score)
	require.Len(t, snap.Answers, 1)
	assert.True(t, snap.Answers[0].Skipped)
	assert.Zero(t, eval.calls())
	assert.NotContains(t, h.observer.phases(), models.PhaseFollowUp)
}

func TestPauseParksEvaluationUntilResume(t *testing.T) {
	gate := make(chan struct{})
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion), gate: gate}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	require.NoError(t, h.o.SubmitAnswer(ctx, "answer"))
	require.NoError(t, h.o.Pause(ctx))
	snap := h.o.Snapshot()
	assert.Equal(t, models.PhasePaused, snap.Phase)
	assert.Equal(t, models.PhaseEvaluating, snap.PausedFrom)

	close(gate)
	require.Never(t, func() bool {
		s := h.o.Snapshot()
		return s.Phase != models.PhasePaused || len(s.Evaluations) > 0
	}, 100*time.Millisecond, 5*time.Millisecond)

	require.ErrorIs(t, h.o.SubmitAnswer(ctx, "while paused"), ErrWrongPhase)
	require.NoError(t, h.o.Resume(ctx))
	resumed := h.waitAsking(t, 1)
	assert.Len(t, resumed.Evaluations, 1)
	assert.Empty(t, resumed.PausedFrom)
	assert.Equal(t, 1, eval.calls())
}

func TestPauseAndResumeWhileAsking(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	require.NoError(t, h.o.Pause(ctx))
	require.ErrorIs(t, h.o.Pause(ctx), ErrWrongPhase)
	require.NoError(t, h.o.Resume(ctx))
	assert.Equal(t, models.PhaseAsking, h.o.Snapshot().Phase)
	require.ErrorIs(t, h.o.Resume(ctx), ErrWrongPhase)
}

func TestEndDiscardsInFlightEvaluation(t *testing.T) {
	gate := make(chan struct{})
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion), gate: gate}
	h := newHarness(t, makeQuestions(3, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	require.NoError(t, h.o.SubmitAnswer(ctx, "answer"))
	require.NoError(t, h.o.End(ctx))

	snap := h.o.Snapshot()
	assert.Equal(t, models.PhaseCompleted, snap.Phase)
	assert.True(t, snap.EndedEarly)
	assert.Nil(t, snap.OverallScore)

	close(gate)
	require.Never(t, func() bool {
		return len(h.o.Snapshot().Evaluations) > 0
	}, 100*time.Millisecond, 5*time.Millisecond)

	require.Eventually(t, func() bool { return h.store.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.store.last().EndedEarly)

	require.NoError(t, h.o.End(ctx))
	assert.Equal(t, 1, h.store.count())
}

func TestEndBeforeQuestionsIsNotPersisted(t *testing.T) {
	h := newHarness(t, nil, &scriptedEvaluator{}, nil)
	require.NoError(t, h.o.End(context.Background()))
	assert.Equal(t, models.PhaseCompleted, h.o.Snapshot().Phase)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, h.store.count())
}

func TestGenerationFailureThenRetry(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(2, models.ModeText), eval, nil)
	h.source.errs = []error{errors.New("model overloaded")}
	ctx := context.Background()

	require.ErrorIs(t, h.o.Retry(ctx), ErrWrongPhase)
	require.NoError(t, h.o.Start(ctx))
	failed := h.waitPhase(t, models.PhaseError)
	assert.Contains(t, failed.Error, "model overloaded")
	assert.Empty(t, failed.Questions)
	require.ErrorIs(t, h.o.SubmitAnswer(ctx, "hello"), ErrWrongPhase)
	require.ErrorIs(t, h.o.Start(ctx), ErrWrongPhase)

	require.NoError(t, h.o.Retry(ctx))
	snap := h.waitAsking(t, 0)
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Questions, 2)
	assert.Equal(t, 2, h.source.calls)
}

func TestNoQuestionsIsAnError(t *testing.T) {
	h := newHarness(t, nil, &scriptedEvaluator{}, nil)
	require.NoError(t, h.o.Start(context.Background()))
	snap := h.waitPhase(t, models.PhaseError)
	assert.Equal(t, ErrNoQuestions.Error(), snap.Error)
}

func voiceHarness(t *testing.T, eval *scriptedEvaluator, speaker Speaker, listener *fakeListener) *harness {
	t.Helper()
	return newHarness(t, makeQuestions(2, models.ModeVoice), eval, func(d *Dependencies, _ *Config) {
		d.Speaker = speaker
		d.Listener = listener
	})
}

func (h *harness) waitListening(t *testing.T) models.Snapshot {
	t.Helper()
	return h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseAsking && s.Listening
	}, "expected capture to be open")
}

func TestSilenceSubmitsTranscript(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	listener := &fakeListener{}
	h := voiceHarness(t, eval, nil, listener)
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	h.waitListening(t)

	require.NoError(t, h.o.UpdateTranscript(ctx, "partial"))
	require.NoError(t, h.o.UpdateTranscript(ctx, "partial answer"))
	assert.Equal(t, "partial answer", h.o.Snapshot().Transcript)

	require.Eventually(t, func() bool { return eval.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "partial answer", eval.request(0).Answer.Text)

	snap := h.waitFor(t, func(s models.Snapshot) bool {
		return s.CurrentQuestionIndex == 1 && s.Listening
	}, "expected capture on the next question")
	assert.Empty(t, snap.Transcript)
	assert.Equal(t, 2, listener.startCount())
}

func TestStopListeningCancelsAutoSubmit(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	listener := &fakeListener{}
	h := voiceHarness(t, eval, nil, listener)
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	h.waitListening(t)
	require.NoError(t, h.o.UpdateTranscript(ctx, "my spoken answer"))
	require.NoError(t, h.o.StopListening(ctx))

	require.Never(t, func() bool { return eval.calls() > 0 }, 150*time.Millisecond, 5*time.Millisecond)
	snap := h.o.Snapshot()
	assert.False(t, snap.Listening)
	assert.Equal(t, "my spoken answer", snap.Transcript)

	require.NoError(t, h.o.SubmitAnswer(ctx, snap.Transcript))
	h.waitAsking(t, 1)
}

func TestTranscriptIgnoredWhenNotListening(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(1, models.ModeText), eval, nil)
	ctx := context.Background()
	h.started(t)

	require.NoError(t, h.o.UpdateTranscript(ctx, "stray words"))
	assert.Empty(t, h.o.Snapshot().Transcript)
	require.ErrorIs(t, h.o.StartListening(ctx), ErrNoListener)
}

func TestCaptureStartsOnlyAfterSpeech(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	speaker := &fakeSpeaker{manual: true}
	listener := &fakeListener{}
	h := voiceHarness(t, eval, speaker, listener)

	require.NoError(t, h.o.Start(context.Background()))
	h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseIntro && s.Speaking
	}, "expected greeting")
	require.Equal(t, 1, speaker.spokenCount())

	require.True(t, speaker.finish())
	snap := h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseAsking && s.Speaking
	}, "expected question being spoken")
	assert.False(t, snap.Listening)
	assert.Zero(t, listener.startCount())

	require.Eventually(t, func() bool { return speaker.finish() }, time.Second, 5*time.Millisecond)
	h.waitListening(t)
	assert.Equal(t, 1, listener.startCount())
}

func TestStartListeningInterruptsSpeech(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	speaker := &fakeSpeaker{manual: true}
	listener := &fakeListener{}
	h := voiceHarness(t, eval, speaker, listener)
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	h.waitFor(t, func(s models.Snapshot) bool { return s.Phase == models.PhaseIntro }, "expected intro")
	require.True(t, speaker.finish())
	h.waitFor(t, func(s models.Snapshot) bool {
		return s.Phase == models.PhaseAsking && s.Speaking
	}, "expected question being spoken")

	require.NoError(t, h.o.StartListening(ctx))
	snap := h.o.Snapshot()
	assert.False(t, snap.Speaking)
	assert.True(t, snap.Listening)
}

func TestSpeechTimeoutUnblocksFlow(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	speaker := &fakeSpeaker{never: true}
	h := newHarness(t, makeQuestions(1, models.ModeText), eval, func(d *Dependencies, c *Config) {
		d.Speaker = speaker
		c.SpeechTimeout = 30 * time.Millisecond
	})

	require.NoError(t, h.o.Start(context.Background()))
	h.waitAsking(t, 0)
	assert.Equal(t, 2, speaker.spokenCount())
}

func TestCaptureFailureFallsBackToText(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	listener := &fakeListener{err: errors.New("not-allowed")}
	h := voiceHarness(t, eval, nil, listener)
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	snap := h.waitAsking(t, 0)
	assert.False(t, snap.Listening)
	assert.False(t, snap.VoiceEnabled)
	require.ErrorIs(t, h.o.StartListening(ctx), ErrNoListener)

	require.NoError(t, h.o.SubmitAnswer(ctx, "typed instead"))
	h.waitAsking(t, 1)
}

func TestCaptureFailedIntentDisablesVoice(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	listener := &fakeListener{}
	h := voiceHarness(t, eval, nil, listener)
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	h.waitListening(t)
	require.NoError(t, h.o.CaptureFailed(ctx, errors.New("network")))

	snap := h.o.Snapshot()
	assert.False(t, snap.Listening)
	assert.False(t, snap.VoiceEnabled)
}

func TestAttachSpeechOpensCapture(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(2, models.ModeVoice), eval, nil)
	ctx := context.Background()
	h.started(t)
	assert.False(t, h.o.Snapshot().VoiceEnabled)

	listener := &fakeListener{}
	require.NoError(t, h.o.AttachSpeech(ctx, &fakeSpeaker{}, listener))
	snap := h.o.Snapshot()
	assert.True(t, snap.VoiceEnabled)
	assert.True(t, snap.Listening)

	require.NoError(t, h.o.AttachSpeech(ctx, nil, nil))
	snap = h.o.Snapshot()
	assert.False(t, snap.VoiceEnabled)
	assert.False(t, snap.Listening)
	assert.Equal(t, 1, listener.stops)
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	eval := &scriptedEvaluator{fallback: scored(7, models.ActionNextQuestion)}
	h := newHarness(t, makeQuestions(1, models.ModeText), eval, nil)

	updates, cancel := h.o.Subscribe()
	defer cancel()
	first := <-updates
	assert.Equal(t, models.PhaseIdle, first.Phase)

	require.NoError(t, h.o.Start(context.Background()))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			require.GreaterOrEqual(t, snap.Version, first.Version)
			if snap.Phase == models.PhaseAsking {
				return
			}
		case <-deadline:
			t.Fatal("never received asking snapshot")
		}
	}
}

func TestClosedOrchestratorRejectsIntents(t *testing.T) {
	h := newHarness(t, makeQuestions(1, models.ModeText), &scriptedEvaluator{}, nil)
	updates, _ := h.o.Subscribe()
	h.o.Close()
	h.o.Close()

	require.ErrorIs(t, h.o.Start(context.Background()), ErrClosed)
	for range updates {
	}
}

func TestNewValidatesInput(t *testing.T) {
	deps := Dependencies{Questions: &fakeSource{}, Evaluator: &scriptedEvaluator{}}

	_, err := New(Params{}, deps, DefaultConfig())
	require.Error(t, err)

	_, err = New(Params{SessionID: "x"}, Dependencies{}, DefaultConfig())
	require.Error(t, err)

	bad := DefaultConfig()
	bad.LowThreshold = 0.9
	_, err = New(Params{SessionID: "x"}, deps, bad)
	require.Error(t, err)

	_, err = New(Params{SessionID: "x", Config: models.SessionConfig{QuestionCount: 50}}, deps, DefaultConfig())
	require.Error(t, err)
}
