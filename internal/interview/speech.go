package interview

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/models"
)

// say logs text as an AI turn, speaks it and runs then once playback ends or
// SpeechTimeout elapses. Without a speaker, then runs right away.
func (o *Orchestrator) say(text string, then func()) {
	text = strings.TrimSpace(text)
	if text == "" {
		if then != nil {
			then()
		}
		return
	}
	o.appendEntry(models.RoleAI, text)
	o.pending = &utterance{text: text, then: then}
	o.play()
}

// play (re)starts the pending utterance.
func (o *Orchestrator) play() {
	u := o.pending
	if u == nil {
		return
	}
	if o.deps.Speaker == nil {
		o.pending = nil
		if u.then != nil {
			u.then()
		}
		return
	}

	o.utteranceSeq++
	seq := o.utteranceSeq
	o.speaking = true
	done := o.deps.Speaker.Speak(u.text)
	timeout := o.cfg.SpeechTimeout

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		var err error
		timedOut := false
		select {
		case err = <-done:
		case <-timer.C:
			timedOut = true
		case <-o.done:
			return
		}
		o.post(func() { o.onSpeechFinished(seq, err, timedOut) })
	}()
}

func (o *Orchestrator) onSpeechFinished(seq uint64, err error, timedOut bool) {
	if seq != o.utteranceSeq || o.pending == nil {
		return
	}
	o.speaking = false
	switch {
	case timedOut:
		o.logger.Warn("speech did not finish in time, continuing", zap.Duration("timeout", o.cfg.SpeechTimeout))
		if o.deps.Speaker != nil {
			o.deps.Speaker.Stop()
		}
	case err != nil:
		o.logger.Debug("speech ended with error", zap.Error(err))
	}
	u := o.pending
	o.pending = nil
	if u.then != nil {
		u.then()
	}
}

// interruptSpeech cuts the current utterance. With keep the utterance stays
// pending so resume can replay it.
func (o *Orchestrator) interruptSpeech(keep bool) {
	if o.pending == nil && !o.speaking {
		return
	}
	o.utteranceSeq++
	if o.speaking && o.deps.Speaker != nil {
		o.deps.Speaker.Stop()
	}
	o.speaking = false
	if !keep {
		o.pending = nil
	}
}

// beginCapture opens the microphone for voice questions. It only runs after
// the question has been spoken.
func (o *Orchestrator) beginCapture() {
	if o.session.Phase != models.PhaseAsking {
		return
	}
	q, ok := o.session.CurrentQuestion()
	if !ok || q.Mode != models.ModeVoice || o.deps.Listener == nil || o.captureFailed {
		return
	}
	_ = o.startCapture()
}

func (o *Orchestrator) startCapture() error {
	if o.listening {
		return nil
	}
	if err := o.deps.Listener.StartListening(); err != nil {
		o.disableCapture(err)
		return err
	}
	o.listening = true
	o.transcript = ""
	return nil
}

func (o *Orchestrator) stopCapture() {
	o.stopSilence()
	if o.listening {
		o.listening = false
		if o.deps.Listener != nil {
			o.deps.Listener.StopListening()
		}
	}
	o.transcript = ""
}

func (o *Orchestrator) disableCapture(cause error) {
	o.logger.Warn("speech capture unavailable, falling back to text input", zap.Error(cause))
	o.stopSilence()
	o.listening = false
	o.captureFailed = true
}

func (o *Orchestrator) startListening() error {
	if o.session.Phase != models.PhaseAsking {
		return wrongPhase(o.session.Phase)
	}
	if o.deps.Listener == nil || o.captureFailed {
		return ErrNoListener
	}
	// the mic never opens over the interviewer's own voice
	o.interruptSpeech(false)
	return o.startCapture()
}

// stopListening keeps the transcript so it can still be submitted by hand.
func (o *Orchestrator) stopListening() error {
	if !o.listening {
		return nil
	}
	o.stopSilence()
	o.listening = false
	if o.deps.Listener != nil {
		o.deps.Listener.StopListening()
	}
	return nil
}

func (o *Orchestrator) updateTranscript(text string) error {
	if o.session.Phase != models.PhaseAsking || !o.listening {
		return nil
	}
	if text == o.transcript {
		return nil
	}
	o.transcript = text
	if strings.TrimSpace(text) == "" {
		o.stopSilence()
		return nil
	}
	o.restartSilence()
	return nil
}

func (o *Orchestrator) captureFailure(cause error) error {
	o.disableCapture(cause)
	return nil
}

func (o *Orchestrator) attachSpeech(speaker Speaker, listener Listener) error {
	replay := o.pending != nil
	o.interruptSpeech(true)
	if o.listening && o.deps.Listener != nil {
		o.deps.Listener.StopListening()
	}
	o.listening = false
	o.stopSilence()

	o.deps.Speaker = speaker
	o.deps.Listener = listener
	o.captureFailed = false

	if o.session.Phase == models.PhasePaused {
		return nil
	}
	switch {
	case replay:
		o.play()
	case o.session.Phase == models.PhaseAsking:
		o.beginCapture()
	}
	return nil
}

func (o *Orchestrator) restartSilence() {
	o.stopSilence()
	seq := o.silenceSeq
	o.silenceTimer = time.AfterFunc(o.cfg.SilenceTimeout, func() {
		o.post(func() { o.onSilence(seq) })
	})
}

// stopSilence cancels the countdown and invalidates a fire already queued.
func (o *Orchestrator) stopSilence() {
	if o.silenceTimer != nil {
		o.silenceTimer.Stop()
		o.silenceTimer = nil
	}
	o.silenceSeq++
}

func (o *Orchestrator) onSilence(seq uint64) {
	if seq != o.silenceSeq || o.session.Phase != models.PhaseAsking || !o.listening {
		return
	}
	text := o.transcript
	if strings.TrimSpace(text) == "" {
		return
	}
	o.logger.Debug("silence detected, submitting transcript")
	if err := o.submit(text); err != nil {
		o.logger.Debug("auto-submit rejected", zap.Error(err))
	}
}
