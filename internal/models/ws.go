package models

// websocket envelope, both directions
type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// client -> server frame types
const (
	FrameHello       = "hello"
	FrameSubmit      = "submit"
	FrameSkip        = "skip"
	FramePause       = "pause"
	FrameResume      = "resume"
	FrameEnd         = "end"
	FrameRetry       = "retry"
	FrameTranscript  = "transcript"
	FrameListening   = "listening"
	FrameSpeechEnd   = "speech_end"
	FrameSpeechError = "speech_error"
	FrameListenError = "listen_error"
)

// server -> client frame types
const (
	FrameSnapshot       = "snapshot"
	FrameSpeak          = "speak"
	FrameStopSpeaking   = "stop_speaking"
	FrameStartListening = "start_listening"
	FrameStopListening  = "stop_listening"
	FrameError          = "error"
)

// sent by the browser once after connecting
type Hello struct {
	TTSSupported bool `json:"ttsSupported"`
	STTSupported bool `json:"sttSupported"`
}

type SpeakCommand struct {
	UtteranceID string `json:"utteranceId"`
	Text        string `json:"text"`
}

type SpeechEvent struct {
	UtteranceID string `json:"utteranceId"`
	Message     string `json:"message,omitempty"`
}

type TranscriptUpdate struct {
	Text string `json:"text"`
}

type ListeningToggle struct {
	On bool `json:"on"`
}

type TextPayload struct {
	Text string `json:"text"`
}
