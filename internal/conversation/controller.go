// Package conversation runs one tutoring conversation per WebSocket
// connection: the setup handshake, the turn loop, the reply filter and the
// rolling transcript.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vocaflow/internal/llm"
	"vocaflow/internal/models"
	"vocaflow/internal/prompt"
)

const (
	writeTimeout  = 10 * time.Second
	frameBuffer   = 8
	defaultSpeed  = 1.0
	errNoAudio    = "Could not read the audio recording"
	errNoSpeech   = "No speech was detected in the recording"
	errTranscribe = "Speech recognition is unavailable right now"
	errSynthesize = "Audio for this reply is unavailable"
)

// Gateway is the provider surface the controller needs
type Gateway interface {
	Ready() error
	GetCompletion(ctx context.Context, history []llm.Message, level string, assignment *models.Assignment) string
	OpeningLine(ctx context.Context, assignment *models.Assignment, level string) (string, bool)
	SynthesizeSpeech(ctx context.Context, text, level string, speed float64) ([]byte, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Options tunes the controller
type Options struct {
	SetupWait      time.Duration
	DefaultLevel   string
	MaxMessageSize int64
}

// Controller serves conversations. It is safe for concurrent use; each
// Serve call owns its connection.
type Controller struct {
	gw     Gateway
	filter *Filter
	opts   Options
	log    logrus.FieldLogger
}

// NewController creates a Controller
func NewController(gw Gateway, filter *Filter, opts Options, log logrus.FieldLogger) *Controller {
	if filter == nil {
		filter = NewFilter(nil)
	}
	if opts.SetupWait <= 0 {
		opts.SetupWait = time.Second
	}
	return &Controller{gw: gw, filter: filter, opts: opts, log: log}
}

// session is the state of one connection
type session struct {
	conn       *websocket.Conn
	log        logrus.FieldLogger
	level      string
	assignment *models.Assignment
	history    *History
}

// Serve runs the conversation on conn until the client leaves, a read or
// write fails, or ctx is cancelled. level is the level from the URL.
func (c *Controller) Serve(ctx context.Context, conn *websocket.Conn, level string) {
	s := &session{
		conn:  conn,
		level: c.resolveLevel(level),
	}
	s.log = c.log.WithFields(logrus.Fields{
		"conn_id": uuid.NewString(),
		"level":   s.level,
	})
	defer conn.Close()

	if err := c.gw.Ready(); err != nil {
		s.log.WithError(err).Error("Rejecting conversation, providers not configured")
		_ = s.write(websocket.TextMessage, []byte("Error: "+err.Error()))
		return
	}

	done := make(chan struct{})
	defer close(done)
	frames := c.readPump(conn, done)

	pending, ok := c.awaitSetup(ctx, s, frames)
	if !ok {
		return
	}
	if err := c.open(ctx, s); err != nil {
		s.log.WithError(err).Debug("Failed to send opening line")
		return
	}
	if pending != nil {
		if err := c.handle(ctx, s, *pending); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-frames:
			if !ok {
				s.log.Debug("Client disconnected")
				return
			}
			frame, err := ParseFrame(data)
			if err != nil {
				s.log.WithError(err).Debug("Skipping frame")
				continue
			}
			if frame.Type == FrameAssignmentSetup {
				continue
			}
			if err := c.handle(ctx, s, frame); err != nil {
				s.log.WithError(err).Debug("Connection closed while sending")
				return
			}
		}
	}
}

// readPump owns all reads on conn. frames is closed when reading stops.
func (c *Controller) readPump(conn *websocket.Conn, done <-chan struct{}) <-chan []byte {
	frames := make(chan []byte, frameBuffer)
	if c.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(c.opts.MaxMessageSize)
	}

	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					c.log.WithError(err).Debug("WebSocket read failed")
				}
				return
			}
			select {
			case frames <- data:
			case <-done:
				return
			}
		}
	}()
	return frames
}

// awaitSetup waits for an assignment_setup frame. Any other valid frame ends
// the wait and is returned to be handled as the first turn. ok is false when
// the connection ended.
func (c *Controller) awaitSetup(ctx context.Context, s *session, frames <-chan []byte) (*Frame, bool) {
	timer := time.NewTimer(c.opts.SetupWait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, false
	case <-timer.C:
		s.log.Debug("No assignment setup, starting practice mode")
		return nil, true
	case data, ok := <-frames:
		if !ok {
			return nil, false
		}
		frame, err := ParseFrame(data)
		if err != nil {
			s.log.WithError(err).Debug("Invalid setup frame, starting practice mode")
			return nil, true
		}
		if frame.Type != FrameAssignmentSetup {
			return &frame, true
		}
		s.assignment = frame.Assignment
		if l, found := prompt.Lookup(frame.Assignment.Level); found {
			s.level = l.Key
		}
		// an unknown assignment level keeps the URL level everywhere
		s.assignment.Level = s.level
		s.log = s.log.WithFields(logrus.Fields{
			"assignment_id": frame.Assignment.ID,
			"level":         s.level,
		})
		s.log.Info("Assignment conversation started")
		return nil, true
	}
}

// open sends the icebreaker and seeds the transcript
func (c *Controller) open(ctx context.Context, s *session) error {
	s.history = NewHistory(prompt.Build(s.assignment, s.level))

	var opening string
	if s.assignment != nil {
		line, ok := c.gw.OpeningLine(ctx, s.assignment, s.level)
		if ok {
			opening, _ = c.filter.Apply(line)
		}
	}
	if opening == "" {
		opening = prompt.RandomIcebreaker(s.level)
	}

	s.history.Append(llm.RoleAssistant, opening)
	return s.write(websocket.TextMessage, []byte(BotPrefix+opening))
}

// handle runs one turn. The returned error is a send failure; provider
// failures are reported to the client and swallowed.
func (c *Controller) handle(ctx context.Context, s *session, frame Frame) error {
	var transcription string
	voice := frame.Type == FrameVoice

	switch frame.Type {
	case FrameText:
		transcription = strings.TrimSpace(frame.Content)
		if transcription == "" {
			return nil
		}
	case FrameVoice:
		recording, err := DecodeAudio(frame.Audio)
		if err != nil {
			s.log.WithError(err).Warn("Invalid voice frame")
			return s.sendError(errNoAudio)
		}
		text, err := c.gw.Transcribe(ctx, recording)
		if err != nil {
			s.log.WithError(err).Warn("Transcription failed")
			return s.sendError(errTranscribe)
		}
		transcription = strings.TrimSpace(text)
		if transcription == "" {
			return s.sendError(errNoSpeech)
		}
	default:
		return nil
	}

	s.history.Append(llm.RoleUser, transcription)
	reply := c.gw.GetCompletion(ctx, s.history.Messages(), s.level, s.assignment)
	reply, blocked := c.filter.Apply(reply)
	if blocked {
		s.log.Info("Reply replaced by content filter")
	}
	s.history.Append(llm.RoleAssistant, reply)

	if !voice {
		return s.write(websocket.TextMessage, []byte(BotPrefix+reply))
	}

	audio, err := c.gw.SynthesizeSpeech(ctx, reply, s.level, s.speed())
	if err != nil {
		s.log.WithError(err).Warn("Speech synthesis failed")
		if err := s.sendError(errSynthesize); err != nil {
			return err
		}
		return s.write(websocket.TextMessage, []byte(BotPrefix+reply))
	}

	payload, err := encodeVoiceResponse(reply, audio, transcription)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, payload)
}

func (c *Controller) resolveLevel(level string) string {
	if l, ok := prompt.Lookup(level); ok {
		return l.Key
	}
	return prompt.Resolve(c.opts.DefaultLevel).Key
}

func (s *session) speed() float64 {
	if s.assignment != nil && s.assignment.VoiceSpeed > 0 {
		return s.assignment.VoiceSpeed
	}
	return defaultSpeed
}

func (s *session) sendError(content string) error {
	payload, err := encodeError(content)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, payload)
}

func (s *session) write(messageType int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}
