// Package live implements the MAA voice channel: a bidirectional audio
// session against the Gemini Live websocket API, streaming microphone PCM up
// and scheduling model speech for playback.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mindful-auto/maa-core/pkg/core"
	"github.com/mindful-auto/maa-core/pkg/metrics"
)

// DefaultEndpoint is the Gemini Live websocket endpoint.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

const (
	defaultConnectTimeout = 15 * time.Second
	defaultWriteTimeout   = 5 * time.Second

	// captureFrameBytes is the largest microphone frame sent upstream:
	// 4096 samples, ~256ms at 16kHz.
	captureFrameBytes = 4096 * 2
)

var (
	// ErrSessionActive rejects Start on a session that is already running.
	ErrSessionActive = errors.New("live session already active")
	// ErrSessionClosed rejects Start on a session that has ended.
	ErrSessionClosed = errors.New("live session is closed")
)

// State is the lifecycle phase of a session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateClosed     State = "closed"
)

// Session is a single voice conversation. It is one-shot: once stopped or
// failed it cannot be restarted.
type Session struct {
	apiKey   string
	model    string
	voice    string
	system   string
	endpoint string
	logger   *slog.Logger

	connectTimeout time.Duration
	writeTimeout   time.Duration

	mic       Microphone
	speaker   Speaker
	scheduler *scheduler

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}

	level atomic.Uint64 // float64 bits of the latest input level

	errMu sync.Mutex
	err   error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithVoice selects the prebuilt voice for model speech.
func WithVoice(name string) SessionOption {
	return func(s *Session) {
		s.voice = strings.TrimSpace(name)
	}
}

// WithSystemInstruction sets the session persona.
func WithSystemInstruction(instruction string) SessionOption {
	return func(s *Session) {
		s.system = instruction
	}
}

// WithEndpoint overrides the websocket endpoint.
func WithEndpoint(endpoint string) SessionOption {
	return func(s *Session) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConnectTimeout bounds the dial and setup handshake.
func WithConnectTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithWriteTimeout bounds each outbound frame write.
func WithWriteTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithPlaybackClock overrides the playback scheduler's clock.
func WithPlaybackClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.scheduler = newScheduler(now)
		}
	}
}

// NewSession creates an idle voice session over the given devices.
func NewSession(apiKey, model string, mic Microphone, speaker Speaker, opts ...SessionOption) (*Session, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, core.NewAuthenticationError("gemini api key must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, core.NewInvalidRequestError("live model must not be empty")
	}
	if mic == nil || speaker == nil {
		return nil, core.NewInvalidRequestError("microphone and speaker must not be nil")
	}

	s := &Session{
		apiKey:         apiKey,
		model:          strings.TrimSpace(model),
		endpoint:       DefaultEndpoint,
		logger:         slog.Default(),
		connectTimeout: defaultConnectTimeout,
		writeTimeout:   defaultWriteTimeout,
		mic:            mic,
		speaker:        speaker,
		scheduler:      newScheduler(time.Now),
		state:          StateIdle,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start dials the live endpoint, performs the setup handshake, and begins
// streaming audio both ways. It returns once the session is connected.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	default:
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.handshake(ctx)
	if err != nil {
		s.teardown(err)
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	s.logger.Info("live session connected", "model", s.model, "voice", s.voice)
	go s.capturePump()
	go s.receivePump()
	return nil
}

func (s *Session) handshake(ctx context.Context) (*websocket.Conn, error) {
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.connectTimeout)
		defer cancel()
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	conn, _, err := dialer.DialContext(dialCtx, s.endpoint+"?key="+s.apiKey, nil)
	if err != nil {
		return nil, core.NewTransportError("live dial", err)
	}

	setup := setupMessage{Setup: &setupPayload{
		Model: "models/" + strings.TrimPrefix(s.model, "models/"),
		GenerationConfig: &liveGenConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}}
	if s.voice != "" {
		setup.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: s.voice},
			},
		}
	}
	if s.system != "" {
		setup.Setup.SystemInstruction = &liveContent{
			Parts: []livePart{{Text: s.system}},
		}
	}

	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, core.NewTransportError("send setup", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.connectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, core.NewTransportError("read setup ack", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode setup ack: %w", err)
	}
	if msg.SetupComplete == nil {
		_ = conn.Close()
		return nil, core.NewAPIError("live setup was not acknowledged")
	}
	return conn, nil
}

// capturePump streams microphone frames upstream until the session ends.
func (s *Session) capturePump() {
	buf := make([]byte, captureFrameBytes)
	for {
		n, err := s.mic.Read(buf)
		if err != nil {
			if !s.closed.Load() {
				s.teardown(core.NewTransportError("microphone read", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		frame := buf[:n]

		s.level.Store(math.Float64bits(meterLevel(frame)))

		if err := s.sendAudioFrame(frame); err != nil {
			if !s.closed.Load() {
				s.teardown(err)
			}
			return
		}
		metrics.LiveAudioFrames.WithLabelValues("sent").Inc()
	}
}

func (s *Session) sendAudioFrame(pcm []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	msg := realtimeInputMessage{RealtimeInput: &realtimeInput{
		Audio: &liveBlob{
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", CaptureSampleRate),
			Data:     base64.StdEncoding.EncodeToString(pcm),
		},
	}}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteJSON(msg)
}

// receivePump consumes server frames and plays model speech.
func (s *Session) receivePump() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.teardown(nil)
			} else {
				s.teardown(core.NewTransportError("live read", err))
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("undecodable live frame", "error", err)
			continue
		}
		s.handleServerMessage(&msg)
	}
}

func (s *Session) handleServerMessage(msg *serverMessage) {
	if msg.GoAway != nil {
		s.logger.Info("live server going away", "time_left", msg.GoAway.TimeLeft)
		return
	}
	content := msg.ServerContent
	if content == nil {
		return
	}

	if content.Interrupted {
		// The user spoke over the model; drop everything queued.
		s.speaker.Flush()
		s.scheduler.reset()
		s.logger.Debug("model turn interrupted")
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/pcm") {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				s.logger.Warn("undecodable audio chunk", "error", err)
				continue
			}
			s.playChunk(pcm)
		}
	}

	if content.TurnComplete {
		s.logger.Debug("model turn complete")
	}
}

func (s *Session) playChunk(pcm []byte) {
	d := time.Duration(pcmDuration(pcm, PlaybackSampleRate) * float64(time.Second))
	s.scheduler.schedule(d)
	if _, err := s.speaker.Write(pcm); err != nil {
		s.logger.Warn("speaker write failed", "error", err)
		return
	}
	metrics.LiveAudioFrames.WithLabelValues("received").Inc()
}

// Stop ends the session and blocks until teardown completes. Safe to call
// any number of times, in any state.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	s.teardown(nil)
	<-s.done
	return nil
}

// teardown ends the session exactly once: capture stops first so no more
// frames are produced, then the socket closes, then playback.
func (s *Session) teardown(err error) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.setErr(err)

		s.mu.Lock()
		conn := s.conn
		s.state = StateClosed
		s.mu.Unlock()

		_ = s.mic.Close()
		if conn != nil {
			s.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			s.writeMu.Unlock()
			_ = conn.Close()
		}
		_ = s.speaker.Close()

		s.level.Store(0)
		close(s.done)
		s.logger.Info("live session closed")
	})
}

// Done is closed when the session has fully ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal session error, if any. It blocks until the
// session ends.
func (s *Session) Err() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Level returns the most recent input volume in [0, 1].
func (s *Session) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

// Buffered reports how much model speech is queued but not yet played.
func (s *Session) Buffered() time.Duration {
	return s.scheduler.buffered()
}
