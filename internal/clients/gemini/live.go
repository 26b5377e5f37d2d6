package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

// ErrLiveSessionClosed is returned when sending on a closed session.
var ErrLiveSessionClosed = errors.New("live session closed")

// liveConn is the subset of *genai.Session used by LiveSession.
type liveConn interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// LiveSession is a held-open real-time channel. Events are delivered to the
// callbacks from a single receive goroutine.
type LiveSession struct {
	conn      liveConn
	callbacks models.LiveCallbacks
	logger    *common.Logger

	sendMu    sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// ConnectLive opens a session configured for audio replies in the fixed
// persona and voice, with transcription of the spoken output.
func (c *Client) ConnectLive(ctx context.Context, callbacks models.LiveCallbacks) (interfaces.LiveSession, error) {
	if c.dial == nil {
		return nil, fmt.Errorf("live sessions are not configured")
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voice},
			},
		},
		SystemInstruction:        persona(),
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	conn, err := c.dial(ctx, c.liveModel, config)
	if err != nil {
		return nil, fmt.Errorf("live connect: %w", err)
	}

	c.logger.Info().Str("model", c.liveModel).Str("voice", c.voice).Msg("Live session opened")

	s := &LiveSession{
		conn:      conn,
		callbacks: callbacks,
		logger:    c.logger,
		done:      make(chan struct{}),
	}

	if callbacks.OnOpen != nil {
		callbacks.OnOpen()
	}
	go s.receiveLoop()

	return s, nil
}

// SendFrame forwards one captured audio chunk or video frame.
func (s *LiveSession) SendFrame(frame models.LiveFrame) error {
	if s.closed.Load() {
		return ErrLiveSessionClosed
	}

	blob := &genai.Blob{Data: frame.Data, MIMEType: frame.MIMEType}
	var input genai.LiveRealtimeInput
	switch frame.Kind {
	case "audio":
		input.Audio = blob
	case "video":
		input.Video = blob
	default:
		return fmt.Errorf("unsupported frame kind %q", frame.Kind)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.conn.SendRealtimeInput(input); err != nil {
		if s.closed.Load() {
			return ErrLiveSessionClosed
		}
		return fmt.Errorf("live send: %w", err)
	}
	return nil
}

// Close releases the session. It is safe to call any number of times and
// never reports transport errors from an already-closed connection.
func (s *LiveSession) Close() error {
	s.shutdown()
	return nil
}

// Done is closed once the session has ended from either side.
func (s *LiveSession) Done() <-chan struct{} {
	return s.done
}

// shutdown runs the close sequence once. OnClose fires outside the Once so a
// callback may call Close again.
func (s *LiveSession) shutdown() {
	first := false
	s.closeOnce.Do(func() {
		first = true
		s.closed.Store(true)
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Live transport close")
		}
		close(s.done)
	})
	if !first {
		return
	}
	s.logger.Info().Msg("Live session closed")
	if s.callbacks.OnClose != nil {
		s.callbacks.OnClose()
	}
}

func (s *LiveSession) receiveLoop() {
	defer s.shutdown()

	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Warn().Err(err).Msg("Live session receive failed")
				if s.callbacks.OnError != nil {
					s.callbacks.OnError(err)
				}
			}
			return
		}
		s.dispatch(msg)
	}
}

func (s *LiveSession) emit(event models.LiveEvent) {
	if s.callbacks.OnMessage != nil {
		s.callbacks.OnMessage(event)
	}
}

func (s *LiveSession) dispatch(msg *genai.LiveServerMessage) {
	if msg == nil || msg.ServerContent == nil {
		return
	}
	content := msg.ServerContent

	if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
		s.emit(models.LiveEvent{Type: models.LiveEventTranscript, Text: content.OutputTranscription.Text})
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				s.emit(models.LiveEvent{
					Type:     models.LiveEventAudio,
					Audio:    part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				})
			}
		}
	}

	if content.Interrupted {
		s.emit(models.LiveEvent{Type: models.LiveEventInterrupted})
	}
	if content.TurnComplete {
		s.emit(models.LiveEvent{Type: models.LiveEventTurnComplete})
	}
}
