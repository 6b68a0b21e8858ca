// Package promo runs the MAA promo video generation job: submit a Veo
// long-running operation, poll it to completion, and download the result.
package promo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mindful-auto/maa-core/pkg/gemini"
	"github.com/mindful-auto/maa-core/pkg/metrics"
)

// DefaultPrompt is the MAA promo trailer prompt.
const DefaultPrompt = `Cinematic trailer for advanced safety technology. A futuristic transparent car driving safely, a medical drone flying overhead with red cross, satellite data connecting everything. Blue and white neon aesthetic, clean, high tech. Text overlay: "Every Life Matters". Photorealistic, 4k.`

// DefaultPollInterval is how often a pending operation is re-checked.
const DefaultPollInterval = 5 * time.Second

// ErrAlreadyStarted rejects a second submission of the same job.
var ErrAlreadyStarted = errors.New("promo job already started")

// State is the lifecycle phase of a job.
type State string

const (
	StateNotStarted State = "not_started"
	StateGenerating State = "generating"
	StatePolling    State = "polling"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// VideoClient is the Veo collaborator the job drives.
type VideoClient interface {
	StartVideoGeneration(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoOperation, error)
	GetVideoOperation(ctx context.Context, name string) (*gemini.VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// Job is a single promo video generation. It can be submitted once; the
// result (or the failure) is retrieved through Wait.
type Job struct {
	client       VideoClient
	model        string
	prompt       string
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	state   State
	started bool
	video   []byte
	err     error
	done    chan struct{}
}

// Option configures a Job.
type Option func(*Job)

// WithPrompt overrides the default trailer prompt.
func WithPrompt(prompt string) Option {
	return func(j *Job) {
		if prompt != "" {
			j.prompt = prompt
		}
	}
}

// WithPollInterval overrides the poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.pollInterval = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJob creates an unsubmitted promo job for the given Veo model.
func NewJob(client VideoClient, model string, opts ...Option) *Job {
	j := &Job{
		client:       client,
		model:        model,
		prompt:       DefaultPrompt,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
		state:        StateNotStarted,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start submits the job and returns immediately; generation and polling run
// in the background until ctx is cancelled or the job finishes.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return ErrAlreadyStarted
	}
	j.started = true
	j.state = StateGenerating
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

func (j *Job) run(ctx context.Context) {
	j.logger.Info("promo generation started", "model", j.model)

	op, err := j.client.StartVideoGeneration(ctx, gemini.VideoRequest{
		Model:       j.model,
		Prompt:      j.prompt,
		AspectRatio: "16:9",
		Resolution:  "1080p",
		Count:       1,
	})
	if err != nil {
		j.fail(err)
		return
	}

	j.setState(StatePolling)
	for !op.Done {
		select {
		case <-ctx.Done():
			j.fail(ctx.Err())
			return
		case <-time.After(j.pollInterval):
		}

		j.logger.Debug("polling promo operation", "operation", op.Name)
		metrics.PromoPolls.Inc()
		op, err = j.client.GetVideoOperation(ctx, op.Name)
		if err != nil {
			j.fail(err)
			return
		}
	}

	video, err := j.client.DownloadVideo(ctx, op.URI)
	if err != nil {
		j.fail(err)
		return
	}

	j.mu.Lock()
	j.video = video
	j.state = StateReady
	j.mu.Unlock()
	close(j.done)
	j.logger.Info("promo video ready", "bytes", len(video))
}

func (j *Job) fail(err error) {
	j.logger.Error("promo generation failed", "error", err)
	j.mu.Lock()
	j.err = err
	j.state = StateFailed
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Wait blocks until the job finishes or ctx is cancelled, returning the
// video bytes or the failure that ended the job.
func (j *Job) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-j.done:
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.video, j.err
}

// State returns the current lifecycle phase.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the failure that ended the job, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
