package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/speech"
)

const (
	helloWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 50 * time.Second
	wsIntentTimeout = 10 * time.Second
	detachTimeout   = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// LiveSessionHandler upgrades to the live channel of a running session. The
// browser does speech synthesis and recognition; this side forwards snapshots
// and turns inbound frames into orchestrator intents.
func (h *InterviewHandler) LiveSessionHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.live(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	logger := h.logger.With(zap.String("session_id", orch.ID()))
	client := speech.NewClient(conn)

	_ = conn.SetReadDeadline(time.Now().Add(helloWait))
	var first models.WSFrame
	if err := conn.ReadJSON(&first); err != nil {
		return
	}
	if first.Type != models.FrameHello {
		_ = client.Send(errFrame("expected_hello", "first frame must be hello"))
		return
	}
	var hello models.Hello
	marshal(first.Data, &hello)

	remote := speech.NewRemote(client, hello, logger)
	if old, loaded := h.remotes.Swap(orch.ID(), remote); loaded {
		old.(*speech.Remote).Close()
	}
	if err := h.attach(orch, remote.Speaker(), remote.Listener()); err != nil {
		h.remotes.CompareAndDelete(orch.ID(), remote)
		remote.Close()
		_ = client.Send(errFrame("attach_failed", err.Error()))
		return
	}
	logger.Info("live channel connected",
		zap.Bool("tts", hello.TTSSupported),
		zap.Bool("stt", hello.STTSupported))

	defer func() {
		if h.remotes.CompareAndDelete(orch.ID(), remote) {
			if err := h.attach(orch, nil, nil); err != nil && !errors.Is(err, interview.ErrClosed) {
				logger.Warn("failed to detach speech", zap.Error(err))
			}
		}
		remote.Close()
		logger.Info("live channel closed")
	}()

	updates, unsubscribe := orch.Subscribe()
	defer unsubscribe()
	go forward(conn, client, updates)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.dispatch(orch, remote, frame); err != nil {
			var errResp *models.ErrorResponse
			if errors.As(err, &errResp) {
				_ = client.Send(models.WSFrame{Type: models.FrameError, Data: *errResp})
				continue
			}
			status, code := intentErrorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("live intent failed", zap.String("frame", frame.Type), zap.Error(err))
			}
			_ = client.Send(errFrame(code, err.Error()))
		}
	}
}

// forward pushes snapshots to the browser and pings it. It closes the
// connection when the session goes away so the read loop ends too.
func forward(conn *websocket.Conn, client *speech.Client, updates <-chan models.Snapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(time.Second))
				_ = conn.Close()
				return
			}
			if err := client.Send(models.WSFrame{Type: models.FrameSnapshot, Data: snap}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *InterviewHandler) dispatch(orch *interview.Orchestrator, remote *speech.Remote, frame models.WSFrame) error {
	ctx, cancel := context.WithTimeout(context.Background(), wsIntentTimeout)
	defer cancel()

	switch frame.Type {
	case models.FrameSubmit:
		var p models.TextPayload
		marshal(frame.Data, &p)
		return orch.SubmitAnswer(ctx, p.Text)
	case models.FrameSkip:
		return orch.Skip(ctx)
	case models.FramePause:
		return orch.Pause(ctx)
	case models.FrameResume:
		return orch.Resume(ctx)
	case models.FrameEnd:
		return orch.End(ctx)
	case models.FrameRetry:
		return orch.Retry(ctx)
	case models.FrameTranscript:
		var p models.TranscriptUpdate
		marshal(frame.Data, &p)
		return orch.UpdateTranscript(ctx, p.Text)
	case models.FrameListening:
		var p models.ListeningToggle
		marshal(frame.Data, &p)
		if p.On {
			return orch.StartListening(ctx)
		}
		return orch.StopListening(ctx)
	case models.FrameSpeechEnd:
		var p models.SpeechEvent
		marshal(frame.Data, &p)
		remote.Ended(p.UtteranceID, nil)
		return nil
	case models.FrameSpeechError:
		var p models.SpeechEvent
		marshal(frame.Data, &p)
		remote.Ended(p.UtteranceID, errors.New(nonEmpty(p.Message, "speech synthesis failed")))
		return nil
	case models.FrameListenError:
		var p models.SpeechEvent
		marshal(frame.Data, &p)
		return orch.CaptureFailed(ctx, errors.New(nonEmpty(p.Message, "speech recognition failed")))
	default:
		return &models.ErrorResponse{Code: "unknown_type", Message: "unknown frame type " + frame.Type}
	}
}

func (h *InterviewHandler) attach(orch *interview.Orchestrator, speaker interview.Speaker, listener interview.Listener) error {
	ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
	defer cancel()
	return orch.AttachSpeech(ctx, speaker, listener)
}

func errFrame(code, message string) models.WSFrame {
	return models.WSFrame{Type: models.FrameError, Data: models.ErrorResponse{Code: code, Message: message}}
}

// marshal re-decodes a loosely typed frame payload into out.
func marshal(in interface{}, out interface{}) {
	b, _ := json.Marshal(in)
	_ = json.Unmarshal(b, out)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
