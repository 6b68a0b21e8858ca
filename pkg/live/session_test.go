package live

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeMic struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames [][]byte
	closed bool
}

func newFakeMic() *fakeMic {
	m := &fakeMic{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *fakeMic) push(frame []byte) {
	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	m.cond.Signal()
}

func (m *fakeMic) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.frames) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0, io.EOF
	}
	frame := m.frames[0]
	m.frames = m.frames[1:]
	return copy(p, frame), nil
}

func (m *fakeMic) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()
	return nil
}

type fakeSpeaker struct {
	mu      sync.Mutex
	writes  [][]byte
	flushes int
	wrote   chan []byte
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{wrote: make(chan []byte, 16)}
}

func (s *fakeSpeaker) Write(p []byte) (int, error) {
	data := append([]byte(nil), p...)
	s.mu.Lock()
	s.writes = append(s.writes, data)
	s.mu.Unlock()
	select {
	case s.wrote <- data:
	default:
	}
	return len(p), nil
}

func (s *fakeSpeaker) Flush() {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
}

func (s *fakeSpeaker) flushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

func (s *fakeSpeaker) Close() error { return nil }

// liveServer is an in-process stand-in for the live websocket endpoint.
type liveServer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	setup setupMessage
	conns []*websocket.Conn

	// frames receives every decoded realtimeInput from the client.
	frames chan realtimeInputMessage
	// script runs after setupComplete is sent.
	script func(conn *websocket.Conn)
}

func newLiveServer(t *testing.T, script func(conn *websocket.Conn)) *liveServer {
	ls := &liveServer{t: t, frames: make(chan realtimeInputMessage, 16), script: script}
	ls.server = httptest.NewServer(http.HandlerFunc(ls.handle))
	t.Cleanup(ls.server.Close)
	return ls
}

func (ls *liveServer) endpoint() string {
	return "ws://" + strings.TrimPrefix(ls.server.URL, "http://")
}

func (ls *liveServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") == "" {
		ls.t.Error("missing key query parameter")
	}
	conn, err := ls.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ls.t.Errorf("upgrade: %v", err)
		return
	}
	ls.mu.Lock()
	ls.conns = append(ls.conns, conn)
	ls.mu.Unlock()

	var setup setupMessage
	if err := conn.ReadJSON(&setup); err != nil {
		ls.t.Errorf("read setup: %v", err)
		return
	}
	ls.mu.Lock()
	ls.setup = setup
	ls.mu.Unlock()

	if err := conn.WriteJSON(serverMessage{SetupComplete: &setupComplete{}}); err != nil {
		return
	}
	if ls.script != nil {
		ls.script(conn)
	}

	for {
		var msg realtimeInputMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.RealtimeInput != nil {
			select {
			case ls.frames <- msg:
			default:
			}
		}
	}
}

func (ls *liveServer) capturedSetup() setupMessage {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.setup
}

func quietSession() SessionOption {
	return WithSessionLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func startedSession(t *testing.T, ls *liveServer, mic Microphone, speaker Speaker) *Session {
	t.Helper()
	s, err := NewSession("test-key", "gemini-2.5-flash-native-audio-preview-09-2025", mic, speaker,
		WithEndpoint(ls.endpoint()),
		WithVoice("Kore"),
		WithSystemInstruction("You are the MAA voice."),
		quietSession())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s
}

func TestSession_HandshakeSendsSetup(t *testing.T) {
	ls := newLiveServer(t, nil)
	mic := newFakeMic()
	s := startedSession(t, ls, mic, newFakeSpeaker())
	defer s.Stop()

	if s.State() != StateConnected {
		t.Errorf("state = %v, want %v", s.State(), StateConnected)
	}

	setup := ls.capturedSetup().Setup
	if setup == nil {
		t.Fatal("no setup frame captured")
	}
	if setup.Model != "models/gemini-2.5-flash-native-audio-preview-09-2025" {
		t.Errorf("model = %q", setup.Model)
	}
	gc := setup.GenerationConfig
	if gc == nil || len(gc.ResponseModalities) != 1 || gc.ResponseModalities[0] != "AUDIO" {
		t.Errorf("generation config = %+v", gc)
	}
	if gc.SpeechConfig == nil || gc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
		t.Error("voice not forwarded")
	}
	if setup.SystemInstruction == nil || setup.SystemInstruction.Parts[0].Text != "You are the MAA voice." {
		t.Error("system instruction not forwarded")
	}
}

func TestSession_StreamsMicFrames(t *testing.T) {
	ls := newLiveServer(t, nil)
	mic := newFakeMic()
	s := startedSession(t, ls, mic, newFakeSpeaker())
	defer s.Stop()

	frame := s16Frame(16384, 2048)
	mic.push(frame)

	select {
	case msg := <-ls.frames:
		audio := msg.RealtimeInput.Audio
		if audio.MIMEType != "audio/pcm;rate=16000" {
			t.Errorf("mime type = %q", audio.MIMEType)
		}
		decoded, err := base64.StdEncoding.DecodeString(audio.Data)
		if err != nil {
			t.Fatalf("frame is not base64: %v", err)
		}
		if len(decoded) != len(frame) {
			t.Errorf("frame length = %d, want %d", len(decoded), len(frame))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audio frame reached the server")
	}

	deadline := time.Now().Add(time.Second)
	for s.Level() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if level := s.Level(); level < 0.4 || level > 0.6 {
		t.Errorf("Level() = %v, want ~0.5 for a half-scale frame", level)
	}
}

func TestSession_PlaysModelSpeech(t *testing.T) {
	speech := s16Frame(8192, 2400)
	ls := newLiveServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(serverMessage{ServerContent: &serverContent{
			ModelTurn: &liveContent{
				Role: "model",
				Parts: []livePart{{InlineData: &liveBlob{
					MIMEType: "audio/pcm;rate=24000",
					Data:     base64.StdEncoding.EncodeToString(speech),
				}}},
			},
		}})
	})
	speaker := newFakeSpeaker()
	s := startedSession(t, ls, newFakeMic(), speaker)
	defer s.Stop()

	select {
	case played := <-speaker.wrote:
		if len(played) != len(speech) {
			t.Errorf("played %d bytes, want %d", len(played), len(speech))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("model speech never reached the speaker")
	}
}

func TestSession_InterruptFlushesPlayback(t *testing.T) {
	ls := newLiveServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(serverMessage{ServerContent: &serverContent{Interrupted: true}})
	})
	speaker := newFakeSpeaker()
	s := startedSession(t, ls, newFakeMic(), speaker)
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for speaker.flushCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if speaker.flushCount() != 1 {
		t.Fatalf("flushes = %d, want 1", speaker.flushCount())
	}
}

func TestSession_DoubleStartRejected(t *testing.T) {
	ls := newLiveServer(t, nil)
	s := startedSession(t, ls, newFakeMic(), newFakeSpeaker())
	defer s.Stop()

	if err := s.Start(t.Context()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start() error = %v, want ErrSessionActive", err)
	}
}

func TestSession_StopBeforeStart(t *testing.T) {
	mic, speaker := newFakeMic(), newFakeSpeaker()
	s, err := NewSession("test-key", "gemini-2.5-flash-native-audio-preview-09-2025",
		mic, speaker, quietSession())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() from idle error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop() from idle error = %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want %v", s.State(), StateClosed)
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after Stop from idle")
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil for a clean stop", err)
	}

	mic.mu.Lock()
	micClosed := mic.closed
	mic.mu.Unlock()
	if !micClosed {
		t.Error("microphone not released by Stop from idle")
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	ls := newLiveServer(t, nil)
	s := startedSession(t, ls, newFakeMic(), newFakeSpeaker())

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want %v", s.State(), StateClosed)
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after Stop")
	}

	if err := s.Start(t.Context()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Start() after Stop error = %v, want ErrSessionClosed", err)
	}
}

func TestSession_HandshakeRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var setup setupMessage
		conn.ReadJSON(&setup)
		// Anything that is not setupComplete fails the handshake.
		conn.WriteJSON(serverMessage{ServerContent: &serverContent{}})
	}))
	defer server.Close()

	s, err := NewSession("test-key", "gemini-2.5-flash-native-audio-preview-09-2025",
		newFakeMic(), newFakeSpeaker(),
		WithEndpoint("ws://"+strings.TrimPrefix(server.URL, "http://")),
		quietSession())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	if err := s.Start(t.Context()); err == nil {
		t.Fatal("Start() accepted a handshake without setupComplete")
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want %v after failed handshake", s.State(), StateClosed)
	}
	if s.Err() == nil {
		t.Error("Err() = nil, want the handshake failure")
	}
}

func TestNewSession_Validation(t *testing.T) {
	mic, speaker := newFakeMic(), newFakeSpeaker()

	if _, err := NewSession("", "model", mic, speaker); err == nil {
		t.Error("accepted an empty api key")
	}
	if _, err := NewSession("key", " ", mic, speaker); err == nil {
		t.Error("accepted an empty model")
	}
	if _, err := NewSession("key", "model", nil, speaker); err == nil {
		t.Error("accepted a nil microphone")
	}
}
