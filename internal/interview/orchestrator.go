package interview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/models"
)

// Params identifies a session and what it is about.
type Params struct {
	SessionID string
	UserID    string
	Document  models.Document
	Config    models.SessionConfig
}

type event struct {
	fn    func() error
	reply chan error
}

type utterance struct {
	text string
	then func()
}

type evalResult struct {
	seq  uint64
	eval *models.Evaluation
	err  error
	took time.Duration
}

// Orchestrator owns one interview session. A single goroutine applies every
// intent, timer fire, speech completion and evaluation result in order, so
// the state below the "run goroutine" marker is never shared.
type Orchestrator struct {
	id       string
	userID   string
	cfg      Config
	deps     Dependencies
	logger   *zap.Logger
	observer Observer
	doc      models.Document

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	lastActivity atomic.Int64

	mu      sync.RWMutex
	snap    models.Snapshot
	subs    map[int]chan models.Snapshot
	nextSub int

	// owned by the run goroutine
	session       models.InterviewSession
	activeText    string
	speaking      bool
	listening     bool
	captureFailed bool
	transcript    string
	pausedFrom    models.Phase
	pending       *utterance
	utteranceSeq  uint64
	silenceSeq    uint64
	silenceTimer  *time.Timer
	evalSeq       uint64
	evalInFlight  bool
	evalCancel    context.CancelFunc
	parked        *evalResult
	initSeq       uint64
	initCancel    context.CancelFunc
	scores        []float64
	saved         bool
	version       uint64
}

// New builds an orchestrator in the idle phase and starts its event loop.
func New(params Params, deps Dependencies, cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Questions == nil || deps.Evaluator == nil {
		return nil, errors.New("interview: question source and evaluator are required")
	}
	if params.SessionID == "" {
		return nil, errors.New("interview: session id is required")
	}
	sessionCfg := params.Config.WithDefaults()
	if err := sessionCfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		id:       params.SessionID,
		userID:   params.UserID,
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With(zap.String("session_id", params.SessionID)),
		observer: observer,
		doc:      params.Document,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan event, 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		subs:     make(map[int]chan models.Snapshot),
		session: models.InterviewSession{
			ID:                  params.SessionID,
			DocumentID:          params.Document.ID,
			UserID:              params.UserID,
			Config:              sessionCfg,
			Questions:           []models.Question{},
			Answers:             []models.Answer{},
			Evaluations:         []models.Evaluation{},
			ConversationHistory: []models.ConversationEntry{},
			CurrentDifficulty:   sessionCfg.Difficulty,
			Phase:               models.PhaseIdle,
		},
	}
	o.lastActivity.Store(time.Now().UnixNano())
	o.snap = o.buildSnapshot()

	go o.run()
	return o, nil
}

func (o *Orchestrator) ID() string { return o.id }

func (o *Orchestrator) UserID() string { return o.userID }

// LastActivity is the time of the most recent intent.
func (o *Orchestrator) LastActivity() time.Time {
	return time.Unix(0, o.lastActivity.Load())
}

// Start generates the questions and, on success, greets the candidate.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.do(ctx, o.start)
}

// Retry re-runs initialization from scratch after a fatal error.
func (o *Orchestrator) Retry(ctx context.Context) error {
	return o.do(ctx, o.retry)
}

// SubmitAnswer submits text for the active question. Empty text is rejected
// without any state change.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, text string) error {
	return o.do(ctx, func() error { return o.submit(text) })
}

func (o *Orchestrator) Skip(ctx context.Context) error {
	return o.do(ctx, o.skip)
}

func (o *Orchestrator) Pause(ctx context.Context) error {
	return o.do(ctx, o.pause)
}

func (o *Orchestrator) Resume(ctx context.Context) error {
	return o.do(ctx, o.resume)
}

// End finishes the session early. An in-flight evaluation is discarded.
func (o *Orchestrator) End(ctx context.Context) error {
	return o.do(ctx, o.end)
}

func (o *Orchestrator) StartListening(ctx context.Context) error {
	return o.do(ctx, o.startListening)
}

func (o *Orchestrator) StopListening(ctx context.Context) error {
	return o.do(ctx, o.stopListening)
}

// UpdateTranscript replaces the live transcript. Updates outside of an active
// capture are ignored.
func (o *Orchestrator) UpdateTranscript(ctx context.Context, text string) error {
	return o.do(ctx, func() error { return o.updateTranscript(text) })
}

// CaptureFailed reports a speech capture error; the session falls back to
// text input until speech is attached again.
func (o *Orchestrator) CaptureFailed(ctx context.Context, cause error) error {
	return o.do(ctx, func() error { return o.captureFailure(cause) })
}

// AttachSpeech swaps the speech capabilities, e.g. when a browser connects or
// disconnects. Nil values switch the session to text mode.
func (o *Orchestrator) AttachSpeech(ctx context.Context, speaker Speaker, listener Listener) error {
	return o.do(ctx, func() error { return o.attachSpeech(speaker, listener) })
}

// Snapshot returns the latest published view of the session.
func (o *Orchestrator) Snapshot() models.Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snap
}

// Subscribe returns a channel that always holds the newest snapshot. Slow
// readers skip intermediate versions. The channel closes with the orchestrator.
func (o *Orchestrator) Subscribe() (<-chan models.Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := make(chan models.Snapshot, 1)
	if o.subs == nil {
		close(ch)
		return ch, func() {}
	}
	ch <- o.snap
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if c, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(c)
		}
	}
}

// Close stops the event loop, speech and timers. It is safe to call twice.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
		o.cancel()
	})
	<-o.stopped
}

func (o *Orchestrator) run() {
	defer close(o.stopped)
	for {
		select {
		case ev := <-o.events:
			err := ev.fn()
			o.publish()
			if ev.reply != nil {
				ev.reply <- err
			}
		case <-o.done:
			o.teardown()
			return
		}
	}
}

// do runs fn on the event loop and waits for its result.
func (o *Orchestrator) do(ctx context.Context, fn func() error) error {
	o.lastActivity.Store(time.Now().UnixNano())
	reply := make(chan error, 1)
	select {
	case o.events <- event{fn: fn, reply: reply}:
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn from a background goroutine without waiting.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.events <- event{fn: func() error { fn(); return nil }}:
	case <-o.done:
	}
}

func (o *Orchestrator) publish() {
	o.version++
	snap := o.buildSnapshot()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.snap = snap
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (o *Orchestrator) buildSnapshot() models.Snapshot {
	return models.Snapshot{
		InterviewSession:   o.session.Clone(),
		ActiveQuestionText: o.activeText,
		Speaking:           o.speaking,
		Listening:          o.listening,
		Transcript:         o.transcript,
		VoiceEnabled:       o.deps.Listener != nil && !o.captureFailed,
		PausedFrom:         o.pausedFrom,
		Version:            o.version,
	}
}

func (o *Orchestrator) teardown() {
	o.stopSilence()
	o.interruptSpeech(false)
	if o.listening && o.deps.Listener != nil {
		o.deps.Listener.StopListening()
	}
	o.listening = false
	if o.evalCancel != nil {
		o.evalCancel()
	}
	if o.initCancel != nil {
		o.initCancel()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
	o.subs = nil
}
