package camera

import (
	"context"
	"image"
)

// DeviceDescriptor names one video-input device. IDs are opaque and
// provider-defined; Label is for humans.
type DeviceDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Constraints narrows the stream request. An empty DeviceID means
// "default video input". Audio is always off for scanning.
type Constraints struct {
	DeviceID string
	Audio    bool
}

// Stream is an exclusively-owned live capture handle. Stopping it
// releases the underlying device tracks; Stop is idempotent.
type Stream interface {
	ID() string
	Stop() error
}

// Provider opens streams and enumerates devices. Implementations map
// their platform errors onto the camera error taxonomy; anything
// unclassified is treated as a generic acquisition failure.
type Provider interface {
	OpenStream(ctx context.Context, constraints Constraints) (Stream, error)
	EnumerateDevices(ctx context.Context) ([]DeviceDescriptor, error)
}

// ReadyState mirrors the coarse playback readiness ladder of a video
// sink: how much frame data the surface currently has.
type ReadyState int

const (
	ReadyStateNothing ReadyState = iota
	ReadyStateMetadata
	ReadyStateCurrentData
	ReadyStateFutureData
	ReadyStateEnoughData
)

// EventKind identifies a surface event subscription.
type EventKind int

const (
	// EventMetadataLoaded fires when the surface learns the stream's
	// dimensions and format.
	EventMetadataLoaded EventKind = iota
	// EventCanPlay fires when the surface believes playback can start.
	EventCanPlay
	// EventFatalError fires on an unrecoverable playback fault.
	EventFatalError
)

// Surface is the caller-owned sink a stream is bound to. The Acquirer
// binds and unbinds streams and confirms playback readiness through
// it; the frame sampler captures frames from it. The Acquirer never
// owns the surface.
//
// Subscribe registers a callback for an event kind and returns a
// cancel function; callbacks may be invoked from the surface's own
// goroutine. Cancel must be safe to call more than once.
type Surface interface {
	Attach(stream Stream) error
	Detach()
	Attached() bool

	Play() error
	Pause()
	Paused() bool
	Ended() bool

	ReadyState() ReadyState
	Dimensions() (width, height int)

	// SetPlaysInline hints that playback should happen in place
	// rather than full screen. Sinks without the concept ignore it.
	SetPlaysInline(inline bool)

	Subscribe(kind EventKind, fn func()) (cancel func())

	// Capture copies the current visual frame into dst, which the
	// caller sizes to the surface dimensions.
	Capture(dst *image.RGBA) error
}
