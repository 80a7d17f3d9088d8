// Package animation drives a video generation job from submission to the
// downloaded result.
package animation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
	"logomotion/internal/providers/video"
	"logomotion/internal/storage"
)

const (
	DefaultModel        = "veo-3.1-fast-generate-preview"
	DefaultResolution   = "720p"
	DefaultPollInterval = 5 * time.Second
	defaultMediaType    = "video/mp4"
	defaultImageType    = "image/png"
	blobPrefix          = "videos"
)

// Invalidator is told about errors that mean the active key was rejected.
type Invalidator interface {
	Invalidate(cause error)
}

// Observer receives job progress for metrics. It may be nil.
type Observer interface {
	VideoPolled()
	AnimationFinished(polls int, err error)
}

type Options struct {
	Generator    video.Generator
	Blobs        storage.BlobStore
	Model        string
	Resolution   string
	PollInterval time.Duration
	// MaxPolls bounds the number of status checks. Zero means unbounded.
	MaxPolls int
	// Timeout bounds the time spent waiting for the job. Zero means unbounded.
	Timeout     time.Duration
	Invalidator Invalidator
	Observer    Observer
	Logger      *infra.Logger
}

// Manager submits one job per Animate call and polls it at a fixed
// interval. The remote job is never cancelled; cancelling ctx only stops the
// local loop.
type Manager struct {
	generator    video.Generator
	blobs        storage.BlobStore
	model        string
	resolution   string
	pollInterval time.Duration
	maxPolls     int
	timeout      time.Duration
	invalidator  Invalidator
	observer     Observer
	logger       *infra.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Generator == nil {
		return nil, errors.New("animation: video generator is required")
	}
	if opts.Blobs == nil {
		return nil, errors.New("animation: blob store is required")
	}
	if opts.MaxPolls < 0 || opts.Timeout < 0 {
		return nil, errors.New("animation: poll bounds must not be negative")
	}
	m := &Manager{
		generator:    opts.Generator,
		blobs:        opts.Blobs,
		model:        strings.TrimSpace(opts.Model),
		resolution:   strings.TrimSpace(opts.Resolution),
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		timeout:      opts.Timeout,
		invalidator:  opts.Invalidator,
		observer:     opts.Observer,
		logger:       opts.Logger,
		now:          time.Now,
		wait:         sleep,
	}
	if m.model == "" {
		m.model = DefaultModel
	}
	if m.resolution == "" {
		m.resolution = DefaultResolution
	}
	if m.pollInterval <= 0 {
		m.pollInterval = DefaultPollInterval
	}
	if m.logger == nil {
		m.logger = infra.NopLogger()
	}
	return m, nil
}

// Animate submits req, waits for the job to finish and stores the video.
// onPoll, when non-nil, sees the job after submission and after every status
// check.
func (m *Manager) Animate(ctx context.Context, req domain.AnimationRequest, onPoll func(domain.AnimationJob)) (domain.VideoResult, error) {
	polls := 0
	result, err := m.animate(ctx, req, func(job domain.AnimationJob) {
		polls = job.Polls
		if onPoll != nil {
			onPoll(job)
		}
	})
	if m.observer != nil {
		m.observer.AnimationFinished(polls, err)
	}
	return result, err
}

func (m *Manager) animate(ctx context.Context, req domain.AnimationRequest, notify func(domain.AnimationJob)) (domain.VideoResult, error) {
	if req.Source.Empty() {
		return domain.VideoResult{}, domain.ErrNoLogo
	}
	imageBytes, err := req.Source.Bytes()
	if err != nil {
		return domain.VideoResult{}, err
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = domain.AspectWidescreen
	}
	mediaType := req.Source.MediaType
	if mediaType == "" {
		mediaType = defaultImageType
	}

	op, err := m.generator.StartVideo(ctx, video.Request{
		Model:          m.model,
		Prompt:         domain.AnimationPrompt(req.StylePrompt),
		Image:          imageBytes,
		ImageMIMEType:  mediaType,
		AspectRatio:    string(aspect),
		Resolution:     m.resolution,
		NumberOfVideos: 1,
	})
	if err != nil {
		return domain.VideoResult{}, m.providerFailure("submit", err)
	}

	job := domain.AnimationJob{Handle: op.Name, Status: domain.JobStatusPending}
	logger := m.logger.With().Str("job", op.Name).Logger()
	logger.Info().Str("aspect_ratio", string(aspect)).Msg("animation: job submitted")
	notify(job)

	started := m.now()
	for !op.Done {
		if m.maxPolls > 0 && job.Polls >= m.maxPolls {
			logger.Warn().Int("poll", job.Polls).Msg("animation: poll limit reached")
			return domain.VideoResult{}, fmt.Errorf("%w after %d polls", domain.ErrJobTimedOut, job.Polls)
		}
		if m.timeout > 0 && m.now().Sub(started) >= m.timeout {
			logger.Warn().Dur("elapsed", m.now().Sub(started)).Msg("animation: job timed out")
			return domain.VideoResult{}, fmt.Errorf("%w after %s", domain.ErrJobTimedOut, m.timeout)
		}
		if err := m.wait(ctx, m.pollInterval); err != nil {
			return domain.VideoResult{}, err
		}

		next, err := m.generator.PollVideo(ctx, op)
		if err != nil {
			return domain.VideoResult{}, m.providerFailure("poll", err)
		}
		op = next
		job.Polls++
		if m.observer != nil {
			m.observer.VideoPolled()
		}
		logger.Debug().Int("poll", job.Polls).Bool("done", op.Done).Msg("animation: status checked")
		if !op.Done {
			notify(job)
		}
	}

	if op.Error != nil {
		job.Status = domain.JobStatusFailed
		job.ErrorMessage = op.Error.Message
		notify(job)
		logger.Warn().Str("status", op.Error.Status).Str("reason", op.Error.Message).Msg("animation: job failed")
		return domain.VideoResult{}, &domain.GenerationError{Stage: domain.StageVideo, Message: op.Error.Message}
	}
	if len(op.VideoURIs) == 0 {
		job.Status = domain.JobStatusFailed
		job.ErrorMessage = domain.ErrNoVideoURI.Error()
		notify(job)
		return domain.VideoResult{}, domain.ErrNoVideoURI
	}

	job.Status = domain.JobStatusDone
	job.VideoURI = op.VideoURIs[0]
	notify(job)

	data, contentType, err := m.generator.DownloadVideo(ctx, job.VideoURI)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.VideoResult{}, ctxErr
		}
		// The video URI is fetched from file storage, so its HTTP status says
		// nothing about the credential.
		logger.Error().Err(err).Msg("animation: download failed")
		return domain.VideoResult{}, fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	if contentType == "" || !strings.HasPrefix(contentType, "video/") {
		contentType = defaultMediaType
	}

	handle, err := m.blobs.Put(ctx, blobPrefix, data, contentType)
	if err != nil {
		return domain.VideoResult{}, fmt.Errorf("store video: %w", err)
	}
	logger.Info().Int("poll", job.Polls).Int("bytes", len(data)).Msg("animation: video ready")
	return domain.VideoResult{Handle: handle, MediaType: contentType, Size: int64(len(data))}, nil
}

func (m *Manager) providerFailure(step string, err error) error {
	err = domain.TranslateProviderError(err)
	if errors.Is(err, domain.ErrCredentialExpired) && m.invalidator != nil {
		m.invalidator.Invalidate(err)
	}
	m.logger.Error().Err(err).Str("step", step).Msg("animation: provider call failed")
	return fmt.Errorf("%s video job: %w", step, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
