package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/danielfrey63/qr-scanner-library/common"
)

// GoCVProvider opens capture devices through OpenCV. Device IDs are
// either numeric capture indexes ("0", "1") or device paths
// ("/dev/video0"); empty means index 0.
type GoCVProvider struct {
	logger common.Logger
}

func NewGoCVProvider(logger common.Logger) *GoCVProvider {
	if logger == nil {
		logger = common.NewNopLogger()
	}
	return &GoCVProvider{logger: logger}
}

func (p *GoCVProvider) OpenStream(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(ClassAborted, err)
	}

	source, label, err := captureSource(constraints.DeviceID)
	if err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, classifyOpenError(constraints.DeviceID, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, NewErrorf(ClassDeviceNotFound, "device %q did not open", label)
	}

	p.logger.Log("opened capture device %s", label)

	return &gocvStream{
		id:      label,
		capture: capture,
	}, nil
}

// EnumerateDevices lists V4L2 device nodes. Platforms without
// enumerable device nodes report the lack of the capability instead
// of an empty list.
func (p *GoCVProvider) EnumerateDevices(ctx context.Context) ([]DeviceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(ClassAborted, err)
	}

	if runtime.GOOS != "linux" {
		return nil, NewErrorf(ClassEnumerationUnsupported, "device enumeration is not supported on %s", runtime.GOOS)
	}

	paths, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("failed to glob video devices: %w", err)
	}

	devices := make([]DeviceDescriptor, 0, len(paths))
	for _, path := range paths {
		devices = append(devices, DeviceDescriptor{
			ID:    path,
			Label: fmt.Sprintf("camera %s", strings.TrimPrefix(path, "/dev/")),
		})
	}

	return devices, nil
}

func captureSource(deviceID string) (interface{}, string, error) {
	if deviceID == "" {
		return 0, "default", nil
	}
	if index, err := strconv.Atoi(deviceID); err == nil {
		return index, deviceID, nil
	}
	if _, err := os.Stat(deviceID); err != nil {
		if os.IsNotExist(err) {
			return nil, "", NewErrorf(ClassDeviceNotFound, "device %q not found", deviceID)
		}
		if os.IsPermission(err) {
			return nil, "", NewError(ClassPermissionDenied, err)
		}
		return nil, "", NewError(ClassAcquisitionFailed, err)
	}
	return deviceID, deviceID, nil
}

func classifyOpenError(deviceID string, err error) *Error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return NewError(ClassPermissionDenied, err)
	case strings.Contains(strings.ToLower(err.Error()), "busy"):
		return NewError(ClassDeviceBusy, err)
	default:
		return NewError(ClassAcquisitionFailed, fmt.Errorf("failed to open device %q: %w", deviceID, err))
	}
}

type gocvStream struct {
	id string

	mu      sync.Mutex
	capture *gocv.VideoCapture
	stopped bool
}

func (s *gocvStream) ID() string {
	return s.id
}

func (s *gocvStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if err := s.capture.Close(); err != nil {
		return fmt.Errorf("failed to close capture device %s: %w", s.id, err)
	}
	return nil
}

func (s *gocvStream) grab(dst *gocv.Mat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	return s.capture.Read(dst)
}

func (s *gocvStream) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// GoCVSurface renders the live feed in an OpenCV window and doubles as
// the frame source for the sampler. The window is created lazily on
// the first successful Play so that headless use never opens one
// until a stream actually renders.
type GoCVSurface struct {
	windowName string

	mu      sync.Mutex
	window  *gocv.Window
	stream  *gocvStream
	mat     gocv.Mat
	ready   ReadyState
	paused  bool
	subs    map[EventKind]map[int]func()
	subSeq  int
	showUI  bool
	started bool
}

// NewGoCVSurface creates a surface. With showUI false no window is
// ever opened, which is the headless daemon mode.
func NewGoCVSurface(windowName string, showUI bool) *GoCVSurface {
	return &GoCVSurface{
		windowName: windowName,
		mat:        gocv.NewMat(),
		subs:       make(map[EventKind]map[int]func()),
		showUI:     showUI,
		paused:     true,
	}
}

func (s *GoCVSurface) Attach(stream Stream) error {
	gs, ok := stream.(*gocvStream)
	if !ok {
		return fmt.Errorf("surface cannot bind stream of type %T", stream)
	}

	s.mu.Lock()
	s.stream = gs
	s.ready = ReadyStateNothing
	s.paused = true
	s.started = false
	s.mu.Unlock()

	return nil
}

func (s *GoCVSurface) Detach() {
	s.mu.Lock()
	s.stream = nil
	s.ready = ReadyStateNothing
	s.started = false
	s.mu.Unlock()
}

func (s *GoCVSurface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Play grabs one frame to prove the device is delivering data. The
// first success promotes the ready state and fires the metadata and
// can-play events.
func (s *GoCVSurface) Play() error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return errors.New("no stream attached")
	}

	s.mu.Lock()
	ok := stream.grab(&s.mat)
	empty := !ok || s.mat.Empty()
	s.mu.Unlock()

	if empty {
		return errors.New("surface produced no frame")
	}

	s.mu.Lock()
	s.paused = false
	s.ready = ReadyStateEnoughData
	first := !s.started
	s.started = true
	s.mu.Unlock()

	if first {
		s.emit(EventMetadataLoaded)
		s.emit(EventCanPlay)
	}

	s.present()

	return nil
}

func (s *GoCVSurface) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *GoCVSurface) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *GoCVSurface) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil && !s.stream.live()
}

func (s *GoCVSurface) ReadyState() ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *GoCVSurface) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mat.Empty() {
		return 0, 0
	}
	return s.mat.Cols(), s.mat.Rows()
}

// SetPlaysInline is meaningless for a desktop window.
func (s *GoCVSurface) SetPlaysInline(bool) {}

func (s *GoCVSurface) Subscribe(kind EventKind, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[kind] == nil {
		s.subs[kind] = make(map[int]func())
	}
	s.subSeq++
	id := s.subSeq
	s.subs[kind][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[kind], id)
	}
}

// Capture grabs the current frame into dst. A device that stopped
// delivering frames fires the fatal-error event; a single failed grab
// is only an error for this tick.
func (s *GoCVSurface) Capture(dst *image.RGBA) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return errors.New("no stream attached")
	}

	s.mu.Lock()
	ok := stream.grab(&s.mat)
	empty := !ok || s.mat.Empty()
	s.mu.Unlock()

	if empty {
		if !stream.live() {
			s.emit(EventFatalError)
			return errors.New("stream has stopped delivering frames")
		}
		return errors.New("failed to grab frame")
	}

	s.present()

	s.mu.Lock()
	frame, err := s.mat.ToImage()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}

	draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)
	return nil
}

// Close releases the pixel buffer and the preview window.
func (s *GoCVSurface) Close() error {
	s.mu.Lock()
	window := s.window
	s.window = nil
	s.mu.Unlock()

	if err := s.mat.Close(); err != nil {
		return err
	}
	if window != nil {
		return window.Close()
	}
	return nil
}

func (s *GoCVSurface) present() {
	if !s.showUI {
		return
	}

	s.mu.Lock()
	if s.window == nil {
		s.window = gocv.NewWindow(s.windowName)
	}
	window := s.window
	window.IMShow(s.mat)
	s.mu.Unlock()

	window.WaitKey(1)
}

func (s *GoCVSurface) emit(kind EventKind) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs[kind]))
	for _, fn := range s.subs[kind] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
