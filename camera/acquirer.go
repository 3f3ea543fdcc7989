package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danielfrey63/qr-scanner-library/common"
)

const (
	// DefaultReadinessTimeout bounds how long Acquire waits for the
	// surface to confirm playback after the stream is bound.
	DefaultReadinessTimeout = 2000 * time.Millisecond

	// DefaultPollInterval is the ready-state polling period, the
	// fallback readiness signal for surfaces whose events misfire.
	DefaultPollInterval = 50 * time.Millisecond
)

// Acquirer negotiates a camera stream, binds it to a surface and
// resolves only once playback is confirmed, or fails with a classified
// error. It holds at most one stream; acquiring again releases the
// previous one first.
//
// Timeout and poll period may be adjusted before the first Acquire.
type Acquirer struct {
	ReadinessTimeout time.Duration
	PollInterval     time.Duration

	provider Provider
	logger   common.Logger

	mu      sync.Mutex
	stream  Stream
	surface Surface
}

func NewAcquirer(provider Provider, logger common.Logger) *Acquirer {
	if logger == nil {
		logger = common.NewNopLogger()
	}
	return &Acquirer{
		ReadinessTimeout: DefaultReadinessTimeout,
		PollInterval:     DefaultPollInterval,
		provider:         provider,
		logger:           logger,
	}
}

// Acquire opens a stream for deviceID (empty for the default device),
// binds it to surface and waits for playback readiness. On any failure
// the surface is left detached, the stream stopped, and the returned
// error classified.
func (a *Acquirer) Acquire(ctx context.Context, surface Surface, deviceID string) (Stream, error) {
	if surface == nil {
		return nil, NewErrorf(ClassAcquisitionFailed, "cannot acquire without a surface")
	}

	// Re-acquisition implicitly releases the prior handle.
	a.Release()

	stream, err := a.provider.OpenStream(ctx, Constraints{DeviceID: deviceID, Audio: false})
	if err != nil {
		return nil, classify(fmt.Errorf("failed to open stream: %w", err))
	}

	surface.SetPlaysInline(true)

	if err := surface.Attach(stream); err != nil {
		a.stopStream(stream)
		return nil, classify(fmt.Errorf("failed to attach stream to surface: %w", err))
	}

	if err := a.awaitPlayback(ctx, surface); err != nil {
		surface.Pause()
		surface.Detach()
		a.stopStream(stream)
		return nil, err
	}

	a.mu.Lock()
	a.stream = stream
	a.surface = surface
	a.mu.Unlock()

	return stream, nil
}

// awaitPlayback waits until one playback attempt succeeds. Readiness
// is racy by nature: the metadata event, the can-play event, an
// immediate explicit attempt and a ready-state poll may each fire
// independently or not at all. All four feed the same attempt routine
// behind a single-resolution guard, so the first success resolves
// exactly once and every later signal is ignored. Every listener and
// timer is deregistered on the way out, success or not.
func (a *Acquirer) awaitPlayback(ctx context.Context, surface Surface) error {
	var (
		once     sync.Once
		resolved = make(chan struct{})
	)

	attempt := func() {
		select {
		case <-resolved:
			return
		default:
		}
		if err := surface.Play(); err == nil {
			once.Do(func() { close(resolved) })
		}
	}

	cancelMetadata := surface.Subscribe(EventMetadataLoaded, attempt)
	defer cancelMetadata()

	cancelCanPlay := surface.Subscribe(EventCanPlay, attempt)
	defer cancelCanPlay()

	poll := time.NewTicker(a.PollInterval)
	defer poll.Stop()

	timeout := time.NewTimer(a.ReadinessTimeout)
	defer timeout.Stop()

	attempt()

	for {
		select {
		case <-resolved:
			return nil
		case <-poll.C:
			if surface.ReadyState() >= ReadyStateFutureData {
				attempt()
			}
		case <-timeout.C:
			return NewErrorf(ClassTimeout, "no readiness signal within %s", a.ReadinessTimeout)
		case <-ctx.Done():
			return NewError(ClassAborted, ctx.Err())
		}
	}
}

// Release stops the held stream, detaches and pauses the surface.
// Idempotent: releasing when nothing is held is a no-op.
func (a *Acquirer) Release() {
	a.mu.Lock()
	stream := a.stream
	surface := a.surface
	a.stream = nil
	a.surface = nil
	a.mu.Unlock()

	if surface != nil {
		surface.Pause()
		surface.Detach()
	}
	if stream != nil {
		a.stopStream(stream)
	}
}

// ListDevices enumerates available video-input devices. Ordering is
// provider-defined and passed through unmodified.
func (a *Acquirer) ListDevices(ctx context.Context) ([]DeviceDescriptor, error) {
	devices, err := a.provider.EnumerateDevices(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to enumerate devices: %w", err))
	}
	return devices, nil
}

func (a *Acquirer) stopStream(stream Stream) {
	if err := stream.Stop(); err != nil {
		a.logger.Log("failed to stop stream %s: %v", stream.ID(), err)
	}
}
