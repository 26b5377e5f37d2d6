package models

// LiveEventType classifies events emitted by a live session.
type LiveEventType string

const (
	LiveEventOpen         LiveEventType = "open"
	LiveEventTranscript   LiveEventType = "transcript"
	LiveEventAudio        LiveEventType = "audio"
	LiveEventTurnComplete LiveEventType = "turn_complete"
	LiveEventInterrupted  LiveEventType = "interrupted"
	LiveEventError        LiveEventType = "error"
	LiveEventClose        LiveEventType = "close"
)

// LiveEvent is one incremental message from the real-time endpoint.
type LiveEvent struct {
	Type     LiveEventType `json:"type"`
	Text     string        `json:"text,omitempty"`
	Audio    []byte        `json:"audio,omitempty"`
	MIMEType string        `json:"mime_type,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// LiveFrame is one chunk of captured media forwarded to the session.
type LiveFrame struct {
	Kind     string `json:"kind" validate:"required,oneof=audio video"`
	MIMEType string `json:"mime_type" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
}

// LiveCallbacks is the event sink supplied by the holder of a live session.
// Nil callbacks are skipped.
type LiveCallbacks struct {
	OnOpen    func()
	OnMessage func(LiveEvent)
	OnError   func(error)
	OnClose   func()
}
