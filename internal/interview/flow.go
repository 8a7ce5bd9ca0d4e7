package interview

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/models"
)

func (o *Orchestrator) setPhase(p models.Phase) {
	from := o.session.Phase
	if from == p {
		return
	}
	o.session.Phase = p
	o.observer.PhaseChanged(from, p)
	o.logger.Debug("phase changed", zap.String("from", string(from)), zap.String("to", string(p)))
}

func (o *Orchestrator) appendEntry(role models.Role, text string) {
	o.session.ConversationHistory = append(o.session.ConversationHistory, models.ConversationEntry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// recordAnswer keeps only the latest submission per question.
func (o *Orchestrator) recordAnswer(a models.Answer) {
	for i := range o.session.Answers {
		if o.session.Answers[i].QuestionID == a.QuestionID {
			o.session.Answers[i] = a
			return
		}
	}
	o.session.Answers = append(o.session.Answers, a)
}

func (o *Orchestrator) start() error {
	if o.session.Phase != models.PhaseIdle || o.initCancel != nil {
		return wrongPhase(o.session.Phase)
	}
	o.beginInit()
	return nil
}

func (o *Orchestrator) retry() error {
	if o.session.Phase != models.PhaseError {
		return wrongPhase(o.session.Phase)
	}
	o.session.Questions = []models.Question{}
	o.session.Answers = []models.Answer{}
	o.session.Evaluations = []models.Evaluation{}
	o.session.CurrentQuestionIndex = 0
	o.session.FollowUpCount = 0
	o.session.CurrentDifficulty = o.session.Config.Difficulty
	o.session.Error = ""
	o.scores = nil
	o.activeText = ""
	o.setPhase(models.PhaseIdle)
	o.beginInit()
	return nil
}

func (o *Orchestrator) beginInit() {
	o.initSeq++
	seq := o.initSeq
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.GenerationTimeout)
	o.initCancel = cancel

	source := o.deps.Questions
	doc := o.doc
	cfg := o.session.Config
	o.logger.Info("generating questions",
		zap.String("document_id", doc.ID),
		zap.Int("question_count", cfg.QuestionCount),
		zap.String("difficulty", string(cfg.Difficulty)))

	go func() {
		questions, err := source.Generate(ctx, doc, cfg)
		o.post(func() { o.onQuestions(seq, questions, err) })
	}()
}

func (o *Orchestrator) onQuestions(seq uint64, questions []models.Question, err error) {
	if seq != o.initSeq || o.initCancel == nil {
		return
	}
	o.initCancel()
	o.initCancel = nil
	if o.session.Phase != models.PhaseIdle {
		return
	}
	if err == nil && len(questions) == 0 {
		err = ErrNoQuestions
	}
	if err != nil {
		o.logger.Error("question generation failed", zap.Error(err))
		o.session.Error = err.Error()
		o.setPhase(models.PhaseError)
		return
	}

	o.session.Questions = questions
	o.session.StartedAt = time.Now()
	o.session.CurrentQuestionIndex = 0
	o.session.FollowUpCount = 0
	o.logger.Info("interview started", zap.Int("questions", len(questions)))

	o.setPhase(models.PhaseIntro)
	o.say(greeting(o.session.Config.Persona, len(questions)), o.askCurrent)
}

// askCurrent puts the current question to the candidate and opens capture
// once the question has been spoken.
func (o *Orchestrator) askCurrent() {
	q, ok := o.session.CurrentQuestion()
	if !ok {
		return
	}
	o.setPhase(models.PhaseAsking)
	o.activeText = q.Text
	o.say(q.Text, o.beginCapture)
}

func (o *Orchestrator) submit(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyAnswer
	}
	if o.session.Phase != models.PhaseAsking {
		return wrongPhase(o.session.Phase)
	}
	q, _ := o.session.CurrentQuestion()

	o.interruptSpeech(false)
	o.stopCapture()
	o.appendEntry(models.RoleUser, trimmed)
	answer := models.Answer{QuestionID: q.ID, Text: trimmed, Timestamp: time.Now()}
	o.recordAnswer(answer)
	o.setPhase(models.PhaseEvaluating)
	o.launchEvaluation(q, answer)
	return nil
}

func (o *Orchestrator) launchEvaluation(q models.Question, answer models.Answer) {
	o.evalSeq++
	seq := o.evalSeq
	req := models.EvaluationRequest{
		SessionID:           o.id,
		Question:            q,
		ActiveQuestionText:  o.activeText,
		Answer:              answer,
		ConversationHistory: append([]models.ConversationEntry(nil), o.session.ConversationHistory...),
		DocumentContext:     o.doc.Text,
		FollowUpCount:       o.session.FollowUpCount,
		IsLastQuestion:      o.session.IsLastQuestion(),
		Difficulty:          o.session.CurrentDifficulty,
		Persona:             o.session.Config.Persona,
	}
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.EvaluationTimeout)
	o.evalCancel = cancel
	o.evalInFlight = true

	evaluator := o.deps.Evaluator
	go func() {
		started := time.Now()
		eval, err := evaluator.Evaluate(ctx, req)
		res := &evalResult{seq: seq, eval: eval, err: err, took: time.Since(started)}
		o.post(func() { o.onEvaluation(res) })
	}()
}

func (o *Orchestrator) onEvaluation(res *evalResult) {
	if res.seq != o.evalSeq || !o.evalInFlight {
		o.logger.Debug("discarding stale evaluation")
		return
	}
	o.evalInFlight = false
	if o.evalCancel != nil {
		o.evalCancel()
		o.evalCancel = nil
	}
	switch o.session.Phase {
	case models.PhasePaused:
		o.parked = res
	case models.PhaseEvaluating:
		o.applyEvaluation(res)
	default:
		o.logger.Debug("discarding evaluation", zap.String("phase", string(o.session.Phase)))
	}
}

func (o *Orchestrator) applyEvaluation(res *evalResult) {
	q, _ := o.session.CurrentQuestion()
	followUpIndex := o.session.FollowUpCount

	var eval *models.Evaluation
	result := OutcomeOK
	if res.err != nil || res.eval == nil {
		o.logger.Warn("evaluation failed, using fallback",
			zap.String("question_id", q.ID),
			zap.Error(res.err))
		eval = fallbackEvaluation(q.ID, followUpIndex, o.lastScore(q.ID))
		result = OutcomeFallback
	} else {
		copied := *res.eval
		eval = &copied
		normalizeEvaluation(eval, q.ID, followUpIndex, o.cfg.MaxScore)
	}
	o.observer.EvaluationFinished(result, res.took)

	next := decide(eval, o.session.FollowUpCount, o.cfg.MaxFollowUps)
	eval.Terminal = next == outcomeAdvance
	o.session.Evaluations = append(o.session.Evaluations, *eval)
	if !eval.Fallback {
		o.trackScore(eval.Score)
	}
	o.logger.Info("answer evaluated",
		zap.String("question_id", q.ID),
		zap.Float64("score", eval.Score),
		zap.String("action", string(eval.Action)),
		zap.Stringer("outcome", next))

	switch next {
	case outcomeFollowUp:
		o.followUp(eval)
	case outcomeRepeat:
		o.repeat(eval)
	default:
		o.advance(eval.ConversationalResponse)
	}
}

func (o *Orchestrator) lastScore(questionID string) float64 {
	for i := len(o.session.Evaluations) - 1; i >= 0; i-- {
		e := o.session.Evaluations[i]
		if e.QuestionID == questionID && !e.Fallback {
			return e.Score
		}
	}
	return 0
}

func (o *Orchestrator) trackScore(score float64) {
	o.scores = pushScore(o.scores, score, o.cfg.ScoreWindow)
	current := o.session.CurrentDifficulty
	next := AdjustDifficulty(current, o.scores, o.cfg)
	if next == current {
		return
	}
	o.session.CurrentDifficulty = next
	o.observer.DifficultyChanged(current, next)
	o.logger.Info("difficulty adjusted", zap.String("from", string(current)), zap.String("to", string(next)))
}

func (o *Orchestrator) followUp(eval *models.Evaluation) {
	o.session.FollowUpCount++
	o.observer.FollowUpAsked()
	o.setPhase(models.PhaseFollowUp)
	question := strings.TrimSpace(eval.FollowUpQuestion)
	o.say(eval.ConversationalResponse, func() {
		o.setPhase(models.PhaseAsking)
		o.activeText = question
		o.say(question, o.beginCapture)
	})
}

// repeat keeps the question index and follow-up count as they are.
func (o *Orchestrator) repeat(eval *models.Evaluation) {
	o.setPhase(models.PhaseAsking)
	o.say(repeatPrompt(eval.ConversationalResponse, o.activeText), o.beginCapture)
}

func (o *Orchestrator) advance(response string) {
	o.setPhase(models.PhaseAdvancing)
	if o.session.IsLastQuestion() {
		// scored before the response plays so an End during playback keeps it
		if score, ok := overallScore(o.session.Evaluations); ok {
			o.session.OverallScore = &score
		}
		o.say(response, o.wrapUp)
		return
	}
	o.session.CurrentQuestionIndex++
	o.session.FollowUpCount = 0
	o.say(response, o.askCurrent)
}

func (o *Orchestrator) wrapUp() {
	o.setPhase(models.PhaseWrapUp)
	var score float64
	if o.session.OverallScore != nil {
		score = *o.session.OverallScore
	}
	o.say(closing(score, o.session.OverallScore != nil), o.complete)
}

func (o *Orchestrator) complete() {
	o.stopCapture()
	now := time.Now()
	o.session.CompletedAt = &now
	o.setPhase(models.PhaseCompleted)
	o.logger.Info("interview completed", zap.Bool("ended_early", o.session.EndedEarly))
	o.persist()
}

// persist hands the finished session to the store once, without waiting.
func (o *Orchestrator) persist() {
	if o.saved || o.deps.Store == nil || len(o.session.Questions) == 0 {
		return
	}
	o.saved = true
	store := o.deps.Store
	session := o.session.Clone()
	timeout := o.cfg.SaveTimeout
	logger := o.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		id, err := store.Save(ctx, session.UserID, session)
		if err != nil {
			logger.Error("failed to save session", zap.Error(err))
			return
		}
		logger.Info("session saved", zap.String("record_id", id))
	}()
}

func (o *Orchestrator) skip() error {
	if o.session.Phase != models.PhaseAsking {
		return wrongPhase(o.session.Phase)
	}
	q, _ := o.session.CurrentQuestion()

	o.interruptSpeech(false)
	o.stopCapture()
	o.recordAnswer(models.Answer{QuestionID: q.ID, Skipped: true, Timestamp: time.Now()})
	o.setPhase(models.PhaseEvaluating)

	eval := skipEvaluation(q.ID, o.session.FollowUpCount)
	eval.Terminal = true
	o.session.Evaluations = append(o.session.Evaluations, *eval)
	o.observer.EvaluationFinished(OutcomeSkipped, 0)
	o.trackScore(eval.Score)
	o.logger.Info("question skipped", zap.String("question_id", q.ID))

	o.advance(eval.ConversationalResponse)
	return nil
}

func (o *Orchestrator) pause() error {
	if !o.session.Phase.Active() {
		return wrongPhase(o.session.Phase)
	}
	o.pausedFrom = o.session.Phase
	o.interruptSpeech(true)
	o.stopCapture()
	o.setPhase(models.PhasePaused)
	return nil
}

func (o *Orchestrator) resume() error {
	if o.session.Phase != models.PhasePaused {
		return wrongPhase(o.session.Phase)
	}
	prior := o.pausedFrom
	o.pausedFrom = ""
	o.setPhase(prior)

	switch {
	case o.parked != nil:
		res := o.parked
		o.parked = nil
		o.applyEvaluation(res)
	case o.pending != nil:
		o.play()
	case prior == models.PhaseAsking:
		o.beginCapture()
	}
	return nil
}

func (o *Orchestrator) end() error {
	if o.session.Phase == models.PhaseCompleted {
		return nil
	}
	if o.initCancel != nil {
		o.initCancel()
		o.initCancel = nil
	}
	if o.evalCancel != nil {
		o.evalCancel()
		o.evalCancel = nil
	}
	o.evalInFlight = false
	o.evalSeq++
	o.parked = nil
	o.pausedFrom = ""
	o.interruptSpeech(false)

	o.session.EndedEarly = o.session.OverallScore == nil
	o.complete()
	return nil
}
