package live

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"
)

// PCM rates of the voice channel: the model consumes 16 kHz microphone
// audio and produces 24 kHz speech.
const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000
)

// OpenDevices initializes the system microphone and speaker for a voice
// session. The returned cleanup tears down the shared audio context and must
// be called after both devices are closed.
func OpenDevices() (Microphone, Speaker, func(), error) {
	malgoConfig := malgo.ContextConfig{}
	malgoConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	malgoCtx, err := malgo.InitContext(nil, malgoConfig, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init audio context: %w", err)
	}

	mic, err := newMicrophone(malgoCtx.Context, CaptureSampleRate)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, nil, nil, err
	}

	speaker, err := newSpeaker(PlaybackSampleRate)
	if err != nil {
		mic.Close()
		_ = malgoCtx.Uninit()
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = malgoCtx.Uninit()
	}
	return mic, speaker, cleanup, nil
}

// microphone captures s16 mono PCM from the default input device.
type microphone struct {
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newMicrophone(ctx malgo.Context, sampleRate int) (*microphone, error) {
	m := &microphone{
		buf: make([]byte, 0, sampleRate*2), // 1 second
	}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.mu.Lock()
			if !m.closed {
				m.buf = append(m.buf, pInputSamples...)
			}
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	return m, nil
}

func (m *microphone) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0, io.EOF
	}

	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

func (m *microphone) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
	}
	return nil
}

// speaker plays s16 mono PCM through the default output device. Writes are
// queued; oto pulls from the queue via Read.
type speaker struct {
	otoCtx *oto.Context
	player *oto.Player

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	playing bool
	closed  bool
}

func newSpeaker(sampleRate int) (*speaker, error) {
	// At 24kHz mono 16-bit, 4800 bytes is ~100ms: low latency without
	// audible glitches.
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4800,
	})
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	s := &speaker{
		otoCtx: otoCtx,
		buf:    make([]byte, 0, sampleRate*4), // 2 seconds
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

func (s *speaker) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	s.buf = append(s.buf, data...)

	// The player is created lazily on the first write so that a session
	// with no inbound audio never touches the output device.
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}

	s.cond.Signal()
	return len(data), nil
}

// Read implements io.Reader for oto.Player.
func (s *speaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.buf) == 0 {
		// Feed silence so oto drains gracefully.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Flush drops queued audio and stops the current playback immediately. The
// next Write starts a fresh player.
func (s *speaker) Flush() {
	s.mu.Lock()
	s.buf = s.buf[:0]

	if s.player != nil && s.playing {
		s.playing = false
		player := s.player
		s.player = nil
		s.mu.Unlock()

		player.Pause()
		player.Close()
		return
	}
	s.mu.Unlock()
}

func (s *speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()

	if s.player != nil {
		_ = s.player.Close()
	}
	return nil
}
