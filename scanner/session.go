package scanner

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielfrey63/qr-scanner-library/camera"
	"github.com/danielfrey63/qr-scanner-library/common"
	"github.com/danielfrey63/qr-scanner-library/fsm"
	"github.com/danielfrey63/qr-scanner-library/qr"
)

const (
	StateIdle      = fsm.State("idle")
	StateAcquiring = fsm.State("acquiring")
	StateScanning  = fsm.State("scanning")
	StateStopped   = fsm.State("stopped")

	eventStart = fsm.Event("start")
	eventScan  = fsm.Event("scan")
	eventStop  = fsm.Event("stop")
)

// DefaultScanInterval is the pause between two sampling ticks.
const DefaultScanInterval = 200 * time.Millisecond

func newSessionFSM(name string) *fsm.FSM {
	return fsm.MustNewFSM(name, StateIdle, []fsm.EventDesc{
		{Name: eventStart, SrcState: []fsm.State{StateIdle, StateStopped}, DstState: StateAcquiring},
		{Name: eventScan, SrcState: []fsm.State{StateAcquiring}, DstState: StateScanning},
		{Name: eventStop, SrcState: []fsm.State{StateAcquiring, StateScanning}, DstState: StateStopped},
	})
}

// StreamAcquirer is the slice of the camera layer the session drives.
// *camera.Acquirer implements it.
type StreamAcquirer interface {
	Acquire(ctx context.Context, surface camera.Surface, deviceID string) (camera.Stream, error)
	Release()
	ListDevices(ctx context.Context) ([]camera.DeviceDescriptor, error)
}

// Config carries everything a session needs from its caller. Surface
// is required; zero values elsewhere fall back to defaults.
type Config struct {
	Surface  camera.Surface
	DeviceID string

	// ScanInterval is the pause between ticks, DefaultScanInterval
	// when zero.
	ScanInterval time.Duration

	// StopOnScan stops the session after the first successful decode.
	StopOnScan bool

	// OnScan receives every non-empty decoded payload.
	OnScan func(content string)

	// OnError receives classified acquisition and surface failures.
	// Per-tick capture and decode failures never reach it.
	OnError func(err error)

	Logger common.Logger
}

// Session composes stream acquisition and the frame-sampling loop
// behind a start/stop lifecycle.
//
// Lifecycle: idle, acquiring, scanning, stopped, restartable from
// stopped. The sampling loop runs on a dedicated goroutine and only
// while the session is Scanning and the surface is actively playing.
type Session struct {
	id       string
	cfg      Config
	acquirer StreamAcquirer
	decoder  qr.Decoder
	machine  *fsm.FSM

	// mu guards the per-run resources below.
	mu          sync.Mutex
	cancelFatal func()
	stopLoop    chan struct{}
	buf         *image.RGBA
}

func NewSession(acquirer StreamAcquirer, decoder qr.Decoder, cfg Config) (*Session, error) {
	if acquirer == nil {
		return nil, fmt.Errorf("acquirer is required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder is required")
	}
	if cfg.Surface == nil {
		return nil, fmt.Errorf("surface is required")
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = common.NewNopLogger()
	}

	id := uuid.New().String()

	return &Session{
		id:       id,
		cfg:      cfg,
		acquirer: acquirer,
		decoder:  decoder,
		machine:  newSessionFSM(fmt.Sprintf("scan_session_%s", id)),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() fsm.State {
	return s.machine.State()
}

func (s *Session) IsScanning() bool {
	return s.machine.Is(StateScanning)
}

// ListDevices enumerates video-input devices, ordering passed through
// from the provider unmodified.
func (s *Session) ListDevices(ctx context.Context) ([]camera.DeviceDescriptor, error) {
	return s.acquirer.ListDevices(ctx)
}

// Start acquires the camera stream and, once the surface confirms
// playback with non-zero dimensions, begins the scan loop. A Start
// while the session is already Acquiring or Scanning logs a warning
// and does nothing. Start never returns without either the loop
// running or a classified error (zero-dimension surfaces excepted:
// acquisition succeeded, so the session stops cleanly without an
// error callback).
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.machine.Do(eventStart); err != nil {
		s.cfg.Logger.Log("WARN: start ignored, session is already %s", s.machine.State())
		return nil
	}

	cancelFatal := s.cfg.Surface.Subscribe(camera.EventFatalError, s.onSurfaceFatal)
	stopLoop := make(chan struct{})

	s.mu.Lock()
	s.cancelFatal = cancelFatal
	s.stopLoop = stopLoop
	s.mu.Unlock()

	if _, err := s.acquirer.Acquire(ctx, s.cfg.Surface, s.cfg.DeviceID); err != nil {
		s.stopInternal()
		s.dispatchError(err)
		return err
	}

	width, height := s.cfg.Surface.Dimensions()
	if width == 0 || height == 0 {
		s.cfg.Logger.Log("surface reports %dx%d dimensions, the scan loop will not start", width, height)
		s.stopInternal()
		// A Stop that raced in during acquisition ran its teardown
		// before the stream was held; release again to cover it.
		s.acquirer.Release()
		return nil
	}

	s.mu.Lock()
	s.buf = image.NewRGBA(image.Rect(0, 0, width, height))
	s.mu.Unlock()

	if _, err := s.machine.Do(eventScan); err != nil {
		// Stop() won the race during acquisition; the loop must not
		// start and the freshly held stream must go.
		s.acquirer.Release()
		return nil
	}

	go s.loop(stopLoop)

	return nil
}

// Stop halts the session: cancels any pending tick, removes the
// fatal-error observer and releases the stream. Idempotent, safe from
// within a tick and from any goroutine. Stop from Idle is a no-op.
func (s *Session) Stop() {
	switch s.machine.State() {
	case StateIdle, StateStopped:
		return
	}
	s.stopInternal()
}

// stopInternal performs the transition into Stopped exactly once;
// concurrent callers race on the FSM and only the winner tears down.
func (s *Session) stopInternal() {
	if _, err := s.machine.Do(eventStop); err != nil {
		return
	}

	s.mu.Lock()
	stopLoop := s.stopLoop
	cancelFatal := s.cancelFatal
	s.stopLoop = nil
	s.cancelFatal = nil
	s.mu.Unlock()

	if stopLoop != nil {
		close(stopLoop)
	}
	if cancelFatal != nil {
		cancelFatal()
	}
	s.acquirer.Release()
}

func (s *Session) loop(stop <-chan struct{}) {
	for {
		if !s.tick() {
			return
		}

		timer := time.NewTimer(s.cfg.ScanInterval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick runs one capture, decode and dispatch iteration and reports
// whether the next tick should be scheduled. Liveness is checked both
// on entry and immediately before re-arming, never just once.
func (s *Session) tick() bool {
	if !s.machine.Is(StateScanning) {
		return false
	}

	surface := s.cfg.Surface
	if !surface.Attached() || surface.Paused() || surface.Ended() {
		// The surface went away underneath us. This is the loop's
		// sole exit condition besides an explicit Stop.
		s.Stop()
		return false
	}

	width, height := surface.Dimensions()
	if width == 0 || height == 0 {
		s.cfg.Logger.Log("surface reports %dx%d dimensions mid-stream, skipping tick", width, height)
		return s.machine.Is(StateScanning)
	}
	s.ensureBuffer(width, height)

	content, err := s.captureAndDecode(surface)
	if err != nil {
		// A single bad frame must not end the session.
		s.cfg.Logger.Log("failed to process frame: %v", err)
		return s.machine.Is(StateScanning)
	}

	if content = strings.TrimSpace(content); content != "" {
		if s.cfg.OnScan != nil {
			s.cfg.OnScan(content)
		}
		if s.cfg.StopOnScan {
			s.Stop()
			return false
		}
	}

	return s.machine.Is(StateScanning)
}

// ensureBuffer resizes the sampling buffer when the camera resolution
// changes mid-stream.
func (s *Session) ensureBuffer(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf != nil && s.buf.Bounds().Dx() == width && s.buf.Bounds().Dy() == height {
		return
	}
	s.buf = image.NewRGBA(image.Rect(0, 0, width, height))
}

// captureAndDecode contains the whole decode path of one tick,
// including panics from a misbehaving decoder.
func (s *Session) captureAndDecode(surface camera.Surface) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture/decode panicked: %v", r)
		}
	}()

	s.mu.Lock()
	buf := s.buf
	s.mu.Unlock()

	if err := surface.Capture(buf); err != nil {
		return "", fmt.Errorf("failed to capture frame: %w", err)
	}

	bounds := buf.Bounds()
	return s.decoder.Decode(buf.Pix, bounds.Dx(), bounds.Dy())
}

// onSurfaceFatal is the one-shot fatal-error observer registered on
// the surface for the lifetime of a run.
func (s *Session) onSurfaceFatal() {
	switch s.machine.State() {
	case StateAcquiring, StateScanning:
	default:
		return
	}

	err := camera.NewErrorf(camera.ClassSurfaceError, "surface reported a fatal playback error")
	s.stopInternal()
	s.dispatchError(err)
}

func (s *Session) dispatchError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}
