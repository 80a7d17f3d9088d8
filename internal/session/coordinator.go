// Package session sequences the two generation steps for one user and
// keeps the current logo and video.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
	"logomotion/internal/storage"
)

// LogoGenerator produces a logo from a description.
type LogoGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.LogoResult, error)
}

// Animator turns a logo into a stored video.
type Animator interface {
	Animate(ctx context.Context, req domain.AnimationRequest, onPoll func(domain.AnimationJob)) (domain.VideoResult, error)
}

// CredentialGate reports whether outbound calls may be attempted.
type CredentialGate interface {
	Ready() bool
}

// Phase names the operation currently in flight.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseGeneratingLogo Phase = "generating_logo"
	PhaseAnimating      Phase = "animating"
)

// Step is the part of the flow that is currently enabled.
type Step int

const (
	StepDescribe Step = 1
	StepAnimate  Step = 2
)

// Snapshot is a read-only view of a coordinator.
type Snapshot struct {
	ID        string               `json:"id"`
	Step      Step                 `json:"step"`
	Busy      bool                 `json:"busy"`
	Phase     Phase                `json:"phase"`
	Error     string               `json:"error,omitempty"`
	Logo      *domain.LogoResult   `json:"logo,omitempty"`
	Video     *domain.VideoResult  `json:"video,omitempty"`
	Job       *domain.AnimationJob `json:"job,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type Deps struct {
	Logos  LogoGenerator
	Videos Animator
	Gate   CredentialGate
	Blobs  storage.BlobStore
	Logger *infra.Logger
}

// Coordinator holds at most one logo and one video and allows a single
// generation operation at a time.
type Coordinator struct {
	id     string
	logos  LogoGenerator
	videos Animator
	gate   CredentialGate
	blobs  storage.BlobStore
	logger infra.Logger
	now    func() time.Time

	life     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	busy      bool
	phase     Phase
	epoch     uint64
	cancelOp  context.CancelFunc
	lastErr   string
	logo      *domain.LogoResult
	video     *domain.VideoResult
	job       *domain.AnimationJob
	updatedAt time.Time
}

func NewCoordinator(id string, deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	life, shutdown := context.WithCancel(context.Background())
	c := &Coordinator{
		id:       id,
		logos:    deps.Logos,
		videos:   deps.Videos,
		gate:     deps.Gate,
		blobs:    deps.Blobs,
		logger:   logger.With().Str("session_id", id).Logger(),
		now:      time.Now,
		life:     life,
		shutdown: shutdown,
		phase:    PhaseIdle,
	}
	c.updatedAt = c.now()
	return c
}

func (c *Coordinator) ID() string {
	return c.id
}

// GenerateLogo runs step 1. A successful result replaces the current logo
// and clears any video made from the previous one.
func (c *Coordinator) GenerateLogo(ctx context.Context, req domain.GenerationRequest) (domain.LogoResult, error) {
	opCtx, epoch, err := c.begin(ctx, PhaseGeneratingLogo, false)
	if err != nil {
		return domain.LogoResult{}, err
	}
	defer c.release(epoch)

	result, err := c.logos.Generate(opCtx, req)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return domain.LogoResult{}, context.Canceled
	}
	if err != nil {
		c.fail(err)
		c.mu.Unlock()
		return domain.LogoResult{}, err
	}
	stale := c.clearVideoLocked()
	c.logo = &result
	c.touch()
	c.mu.Unlock()

	c.dropBlob(stale)
	c.logger.Info().Msg("session: logo ready")
	return result, nil
}

// Animate runs step 2 and waits for the video.
func (c *Coordinator) Animate(ctx context.Context, style string, aspect domain.AspectRatio) (domain.VideoResult, error) {
	opCtx, epoch, err := c.begin(ctx, PhaseAnimating, true)
	if err != nil {
		return domain.VideoResult{}, err
	}
	defer c.release(epoch)
	return c.animate(opCtx, epoch, style, aspect)
}

// StartAnimation runs step 2 in the background. Progress is visible through
// Snapshot. The work is bound to the coordinator lifetime, not to a request.
func (c *Coordinator) StartAnimation(style string, aspect domain.AspectRatio) error {
	opCtx, epoch, err := c.begin(c.life, PhaseAnimating, true)
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.release(epoch)
		_, _ = c.animate(opCtx, epoch, style, aspect)
	}()
	return nil
}

func (c *Coordinator) animate(ctx context.Context, epoch uint64, style string, aspect domain.AspectRatio) (domain.VideoResult, error) {
	c.mu.Lock()
	if c.epoch != epoch || c.logo == nil {
		c.mu.Unlock()
		return domain.VideoResult{}, context.Canceled
	}
	source := *c.logo
	c.mu.Unlock()

	result, err := c.videos.Animate(ctx, domain.AnimationRequest{
		Source:      source,
		StylePrompt: style,
		AspectRatio: aspect,
	}, func(job domain.AnimationJob) {
		c.mu.Lock()
		if c.epoch == epoch {
			j := job
			c.job = &j
			c.touch()
		}
		c.mu.Unlock()
	})

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.dropBlob(result.Handle)
		return domain.VideoResult{}, context.Canceled
	}
	if err != nil {
		c.fail(err)
		c.mu.Unlock()
		return domain.VideoResult{}, err
	}
	stale := ""
	if c.video != nil {
		stale = c.video.Handle
	}
	c.video = &result
	c.touch()
	c.mu.Unlock()

	c.dropBlob(stale)
	c.logger.Info().Int64("bytes", result.Size).Msg("session: video ready")
	return result, nil
}

// DiscardLogo returns the flow to step 1. Any in-flight operation is
// abandoned and the video made from the logo is removed.
func (c *Coordinator) DiscardLogo() {
	c.mu.Lock()
	c.abortLocked()
	c.logo = nil
	c.lastErr = ""
	stale := c.clearVideoLocked()
	c.touch()
	c.mu.Unlock()
	c.dropBlob(stale)
}

// DiscardVideo returns the flow to step 2 so the same logo can be animated
// again. A pending animation is abandoned.
func (c *Coordinator) DiscardVideo() {
	c.mu.Lock()
	if c.phase == PhaseAnimating {
		c.abortLocked()
	}
	c.lastErr = ""
	stale := c.clearVideoLocked()
	c.touch()
	c.mu.Unlock()
	c.dropBlob(stale)
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		ID:        c.id,
		Step:      StepDescribe,
		Busy:      c.busy,
		Phase:     c.phase,
		Error:     c.lastErr,
		UpdatedAt: c.updatedAt,
	}
	if c.logo != nil {
		logo := *c.logo
		snap.Logo = &logo
		snap.Step = StepAnimate
	}
	if c.video != nil {
		video := *c.video
		snap.Video = &video
	}
	if c.job != nil {
		job := *c.job
		snap.Job = &job
	}
	return snap
}

// LastActive reports when the coordinator state last changed.
func (c *Coordinator) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Close abandons any in-flight work, removes the stored video and waits for
// background polling to stop.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.abortLocked()
	stale := c.clearVideoLocked()
	c.mu.Unlock()

	c.shutdown()
	c.wg.Wait()
	c.dropBlob(stale)
}

func (c *Coordinator) begin(parent context.Context, phase Phase, needsLogo bool) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return nil, 0, domain.ErrCoordinatorClosed
	case c.gate != nil && !c.gate.Ready():
		return nil, 0, domain.ErrNoCredential
	case c.busy:
		return nil, 0, domain.ErrOperationInFlight
	case needsLogo && c.logo == nil:
		return nil, 0, domain.ErrNoLogo
	}
	opCtx, cancel := context.WithCancel(parent)
	c.epoch++
	c.busy = true
	c.phase = phase
	c.cancelOp = cancel
	c.lastErr = ""
	if phase == PhaseAnimating {
		c.job = nil
	}
	c.touch()
	return opCtx, c.epoch, nil
}

// release ends the operation started at epoch unless it was already
// abandoned.
func (c *Coordinator) release(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	if c.cancelOp != nil {
		c.cancelOp()
		c.cancelOp = nil
	}
	c.busy = false
	c.phase = PhaseIdle
	c.touch()
}

func (c *Coordinator) abortLocked() {
	if c.cancelOp != nil {
		c.cancelOp()
		c.cancelOp = nil
	}
	c.epoch++
	c.busy = false
	c.phase = PhaseIdle
	c.job = nil
}

func (c *Coordinator) fail(err error) {
	c.touch()
	if errors.Is(err, context.Canceled) {
		c.logger.Debug().Err(err).Msg("session: operation cancelled")
		return
	}
	c.lastErr = Message(err)
	c.logger.Warn().Err(err).Str("phase", string(c.phase)).Msg("session: operation failed")
}

func (c *Coordinator) clearVideoLocked() string {
	if c.video == nil {
		return ""
	}
	handle := c.video.Handle
	c.video = nil
	return handle
}

func (c *Coordinator) dropBlob(handle string) {
	if handle == "" || c.blobs == nil {
		return
	}
	if err := c.blobs.Delete(context.Background(), handle); err != nil {
		c.logger.Warn().Err(err).Str("handle", handle).Msg("session: remove video blob")
	}
}

func (c *Coordinator) touch() {
	c.updatedAt = c.now()
}
