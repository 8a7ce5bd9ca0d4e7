package speech

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/models"
)

var (
	// ErrInterrupted ends an utterance that was cut off by Stop or a newer Speak.
	ErrInterrupted = errors.New("speech interrupted")
	ErrClosed      = errors.New("speech connection closed")
)

// Remote runs speech synthesis and recognition in the browser. Commands go
// out as frames; the browser reports utterance completion back through Ended.
type Remote struct {
	client *Client
	tts    bool
	stt    bool
	logger *zap.Logger

	mu      sync.Mutex
	current string
	pending map[string]chan error
	closed  bool
}

func NewRemote(client *Client, hello models.Hello, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		client:  client,
		tts:     hello.TTSSupported,
		stt:     hello.STTSupported,
		logger:  logger,
		pending: make(map[string]chan error),
	}
}

// Speaker returns nil when the browser cannot synthesize speech.
func (r *Remote) Speaker() interview.Speaker {
	if !r.tts {
		return nil
	}
	return r
}

// Listener returns nil when the browser cannot recognize speech.
func (r *Remote) Listener() interview.Listener {
	if !r.stt {
		return nil
	}
	return r
}

func (r *Remote) Speak(text string) <-chan error {
	done := make(chan error, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		done <- ErrClosed
		return done
	}
	r.resolveLocked(r.current, ErrInterrupted)
	id := uuid.NewString()
	r.current = id
	r.pending[id] = done
	r.mu.Unlock()

	err := r.client.Send(models.WSFrame{
		Type: models.FrameSpeak,
		Data: models.SpeakCommand{UtteranceID: id, Text: text},
	})
	if err != nil {
		r.logger.Warn("failed to send speak command", zap.Error(err))
		r.Ended(id, err)
	}
	return done
}

func (r *Remote) Stop() {
	r.mu.Lock()
	had := r.current != ""
	r.resolveLocked(r.current, ErrInterrupted)
	r.current = ""
	closed := r.closed
	r.mu.Unlock()

	if had && !closed {
		_ = r.client.Send(models.WSFrame{Type: models.FrameStopSpeaking})
	}
}

// Ended resolves an utterance reported finished by the browser. A nil err
// means playback ran to the end. Unknown ids are ignored.
func (r *Remote) Ended(utteranceID string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[utteranceID]; !ok {
		return false
	}
	r.resolveLocked(utteranceID, err)
	if r.current == utteranceID {
		r.current = ""
	}
	return true
}

func (r *Remote) StartListening() error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return r.client.Send(models.WSFrame{Type: models.FrameStartListening})
}

func (r *Remote) StopListening() {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}
	_ = r.client.Send(models.WSFrame{Type: models.FrameStopListening})
}

// Close fails every pending utterance. Later calls are no-ops.
func (r *Remote) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id := range r.pending {
		r.resolveLocked(id, ErrClosed)
	}
	r.current = ""
}

func (r *Remote) resolveLocked(id string, err error) {
	if id == "" {
		return
	}
	ch, ok := r.pending[id]
	if !ok {
		return
	}
	delete(r.pending, id)
	ch <- err
}
