// Package assistant implements the MAA text chat: a conversation against the
// Gemini text API carrying the MAA persona, with the canned fallbacks the
// dashboard shows when the collaborator is unreachable.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mindful-auto/maa-core/pkg/gemini"
	"github.com/mindful-auto/maa-core/pkg/metrics"
)

// SystemInstruction is the MAA assistant persona sent with every exchange.
const SystemInstruction = `
You are the AI Assistant for "MAA - Mindful Auto Alert", a revolutionary safety project.
Your tone is protective, advanced, professional, and empathetic (like a mother figure combined with a top-tier engineer).

Project Details you must know:
1. Mission: "Every Life Matters. Every Second Counts."
2. Core Tech: Satellite chips, IoT sensors, AI prediction, Drone deployment.
3. Key Features:
   - Satellite + Drone Auto-Rescue (Autonomous flight to accident spots).
   - Human Vital Tracking Chip (Heart rate, temp, fall detection).
   - Earthquake/Disaster Alerts (Gas, Fire, Shock sensors).
   - Offline Mode (LoRaWAN for rural areas).
   - AI Behavior Prediction (Predicts accidents before they happen).
   - BlackBox System (Secure data recording).
   - Global ID (NFC/QR for instant identification).
   - <5 Second Alert time.

If asked about how to build these, provide high-level engineering guidance suitable for a college innovation project.
Keep answers concise (under 150 words) unless asked for detailed technical specs.
Always emphasize the "Life Saving" aspect.
`

// Greeting opens every conversation.
const Greeting = "Greetings. I am the MAA System AI. How can I assist you with our safety protocols today?"

// Canned replies shown instead of surfacing collaborator failures.
const (
	emptyReplyFallback = "I am currently calibrating my sensors. Please try again."
	errorFallback      = "Connection to MAA Mainframe unstable. Please check your network or API key."
)

var (
	// ErrEmptyMessage rejects whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy rejects a send while a previous exchange is in flight.
	ErrBusy = errors.New("previous exchange still in flight")
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one entry in the conversation transcript.
type Message struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// TextGenerator is the collaborator the session talks to.
type TextGenerator interface {
	GenerateText(ctx context.Context, req gemini.TextRequest) (string, error)
}

// Session is a single MAA chat conversation. Safe for concurrent use; only
// one exchange may be in flight at a time.
type Session struct {
	gen    TextGenerator
	model  string
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	messages []Message
	awaiting bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates a conversation seeded with the MAA greeting.
func NewSession(gen TextGenerator, model string, opts ...SessionOption) *Session {
	s := &Session{
		gen:    gen,
		model:  model,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = []Message{{Role: RoleModel, Text: Greeting, Timestamp: s.now()}}
	return s
}

// Send submits a user message and returns the assistant's reply. Collaborator
// failures and empty candidates never surface as errors; the reply is one of
// the canned fallbacks instead, mirroring what the dashboard displays.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.awaiting = true
	s.messages = append(s.messages, Message{Role: RoleUser, Text: text, Timestamp: s.now()})
	turns := make([]gemini.Turn, 0, len(s.messages))
	for _, m := range s.messages {
		turns = append(turns, gemini.Turn{Role: string(m.Role), Text: m.Text})
	}
	s.mu.Unlock()

	reply := s.exchange(ctx, turns)

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: RoleModel, Text: reply, Timestamp: s.now()})
	s.awaiting = false
	s.mu.Unlock()

	return reply, nil
}

func (s *Session) exchange(ctx context.Context, turns []gemini.Turn) string {
	// Thinking is disabled to keep chat latency low.
	budget := 0
	reply, err := s.gen.GenerateText(ctx, gemini.TextRequest{
		Model:             s.model,
		SystemInstruction: SystemInstruction,
		Turns:             turns,
		ThinkingBudget:    &budget,
	})
	if err != nil {
		s.logger.Error("chat exchange failed", "error", err)
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return errorFallback
	}
	if strings.TrimSpace(reply) == "" {
		metrics.ChatRequests.WithLabelValues("empty").Inc()
		return emptyReplyFallback
	}
	metrics.ChatRequests.WithLabelValues("ok").Inc()
	return reply
}

// History returns a copy of the transcript, greeting included.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy reports whether an exchange is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}
