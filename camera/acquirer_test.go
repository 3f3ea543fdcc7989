package camera_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/danielfrey63/qr-scanner-library/camera"
	"github.com/danielfrey63/qr-scanner-library/mocks/cameraMocks"
)

// expectSubscriptions wires the mock surface's Subscribe so that tests
// can count live subscriptions (leak detection) and fire events.
func expectSubscriptions(surface *cameraMocks.MockSurface) (active *int32, fire func(camera.EventKind)) {
	var (
		mu      sync.Mutex
		counter int32
		fns     = map[camera.EventKind][]func(){}
	)

	surface.EXPECT().Subscribe(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(kind camera.EventKind, fn func()) func() {
			mu.Lock()
			fns[kind] = append(fns[kind], fn)
			mu.Unlock()
			atomic.AddInt32(&counter, 1)

			var once sync.Once
			return func() {
				once.Do(func() { atomic.AddInt32(&counter, -1) })
			}
		})

	fire = func(kind camera.EventKind) {
		mu.Lock()
		list := append([]func(){}, fns[kind]...)
		mu.Unlock()
		for _, fn := range list {
			fn()
		}
	}

	return &counter, fire
}

func TestAcquirer_AcquireSuccess(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	stream := cameraMocks.NewMockStream(ctrl)

	stream.EXPECT().ID().AnyTimes().Return("cam-1")
	provider.EXPECT().OpenStream(gomock.Any(), camera.Constraints{DeviceID: "cam-1", Audio: false}).
		Times(1).Return(stream, nil)

	surface.EXPECT().SetPlaysInline(true).Times(1)
	surface.EXPECT().Attach(stream).Times(1).Return(nil)
	surface.EXPECT().Play().Times(1).Return(nil)

	active, _ := expectSubscriptions(surface)

	acquirer := camera.NewAcquirer(provider, nil)
	acquired, err := acquirer.Acquire(context.Background(), surface, "cam-1")
	req.NoError(err)
	req.Equal(stream, acquired)

	// All readiness listeners must be gone once Acquire resolves.
	req.Equal(int32(0), atomic.LoadInt32(active))
}

func TestAcquirer_ReadinessSignalsResolveExactlyOnce(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	stream := cameraMocks.NewMockStream(ctrl)

	stream.EXPECT().ID().AnyTimes().Return("cam-1")
	provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Times(1).Return(stream, nil)
	surface.EXPECT().SetPlaysInline(true).Times(1)
	surface.EXPECT().Attach(stream).Times(1).Return(nil)

	// The immediate attempt fails, the poll-driven attempt succeeds.
	var plays int32
	surface.EXPECT().Play().AnyTimes().DoAndReturn(func() error {
		if atomic.AddInt32(&plays, 1) == 1 {
			return errors.New("not ready yet")
		}
		return nil
	})
	surface.EXPECT().ReadyState().AnyTimes().Return(camera.ReadyStateEnoughData)

	active, fire := expectSubscriptions(surface)

	acquirer := camera.NewAcquirer(provider, nil)
	acquirer.PollInterval = 5 * time.Millisecond

	_, err := acquirer.Acquire(context.Background(), surface, "")
	req.NoError(err)
	req.Equal(int32(0), atomic.LoadInt32(active))

	// Signals that fire after resolution are ignored: no further
	// playback attempts happen.
	playsAfter := atomic.LoadInt32(&plays)
	fire(camera.EventMetadataLoaded)
	fire(camera.EventCanPlay)
	req.Equal(playsAfter, atomic.LoadInt32(&plays))
}

func TestAcquirer_EventDrivenReadiness(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	stream := cameraMocks.NewMockStream(ctrl)

	stream.EXPECT().ID().AnyTimes().Return("cam-1")
	provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Times(1).Return(stream, nil)
	surface.EXPECT().SetPlaysInline(true).Times(1)
	surface.EXPECT().Attach(stream).Times(1).Return(nil)

	// Playback only succeeds once the surface announced its metadata.
	var metadataSeen int32
	surface.EXPECT().Play().AnyTimes().DoAndReturn(func() error {
		if atomic.LoadInt32(&metadataSeen) == 0 {
			return errors.New("not ready yet")
		}
		return nil
	})
	surface.EXPECT().ReadyState().AnyTimes().Return(camera.ReadyStateNothing)

	active, fire := expectSubscriptions(surface)

	acquirer := camera.NewAcquirer(provider, nil)
	acquirer.ReadinessTimeout = time.Second

	done := make(chan error, 1)
	go func() {
		_, err := acquirer.Acquire(context.Background(), surface, "")
		done <- err
	}()

	// Let the immediate attempt fail first, then deliver the event.
	time.Sleep(20 * time.Millisecond)
	atomic.StoreInt32(&metadataSeen, 1)
	fire(camera.EventMetadataLoaded)

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("acquisition did not resolve after the readiness event")
	}
	req.Equal(int32(0), atomic.LoadInt32(active))
}

func TestAcquirer_Timeout(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	stream := cameraMocks.NewMockStream(ctrl)

	stream.EXPECT().ID().AnyTimes().Return("cam-1")
	stream.EXPECT().Stop().Times(1).Return(nil)
	provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Times(1).Return(stream, nil)

	surface.EXPECT().SetPlaysInline(true).Times(1)
	surface.EXPECT().Attach(stream).Times(1).Return(nil)
	surface.EXPECT().Play().AnyTimes().Return(errors.New("never ready"))
	surface.EXPECT().ReadyState().AnyTimes().Return(camera.ReadyStateNothing)
	surface.EXPECT().Pause().Times(1)
	surface.EXPECT().Detach().Times(1)

	active, _ := expectSubscriptions(surface)

	acquirer := camera.NewAcquirer(provider, nil)
	acquirer.ReadinessTimeout = 60 * time.Millisecond
	acquirer.PollInterval = 10 * time.Millisecond

	_, err := acquirer.Acquire(context.Background(), surface, "")
	req.Error(err)
	req.True(camera.IsClass(err, camera.ClassTimeout))

	// Timeout must leave zero active listeners.
	req.Equal(int32(0), atomic.LoadInt32(active))
}

func TestAcquirer_AbortedByContext(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	stream := cameraMocks.NewMockStream(ctrl)

	stream.EXPECT().ID().AnyTimes().Return("cam-1")
	stream.EXPECT().Stop().Times(1).Return(nil)
	provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Times(1).Return(stream, nil)

	surface.EXPECT().SetPlaysInline(true).Times(1)
	surface.EXPECT().Attach(stream).Times(1).Return(nil)
	surface.EXPECT().Play().AnyTimes().Return(errors.New("never ready"))
	surface.EXPECT().ReadyState().AnyTimes().Return(camera.ReadyStateNothing)
	surface.EXPECT().Pause().Times(1)
	surface.EXPECT().Detach().Times(1)

	expectSubscriptions(surface)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	acquirer := camera.NewAcquirer(provider, nil)
	acquirer.ReadinessTimeout = time.Second

	_, err := acquirer.Acquire(ctx, surface, "")
	req.Error(err)
	req.True(camera.IsClass(err, camera.ClassAborted))
}

func TestAcquirer_OpenStreamErrorClassification(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)

	// Classified provider errors pass through unchanged.
	provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Times(1).
		Return(nil, camera.NewErrorf(camera.ClassDeviceNotFound, "device %q not found", "cam-2"))

	acquirer := camera.NewAcquirer(provider, nil)
	_, err := acquirer.Acquire(context.Background(), surface, "cam-2")
	req.Error(err)
	req.True(camera.IsClass(err, camera.ClassDeviceNotFound))

	// Unclassified errors become the generic acquisition failure.
	provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Times(1).
		Return(nil, errors.New("boom"))

	_, err = acquirer.Acquire(context.Background(), surface, "cam-2")
	req.Error(err)
	req.Equal(camera.ClassAcquisitionFailed, camera.ClassOf(err))
}

func TestAcquirer_ReacquireReleasesPreviousStream(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	first := cameraMocks.NewMockStream(ctrl)
	second := cameraMocks.NewMockStream(ctrl)

	first.EXPECT().ID().AnyTimes().Return("cam-1")
	second.EXPECT().ID().AnyTimes().Return("cam-2")

	gomock.InOrder(
		provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Return(first, nil),
		provider.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Return(second, nil),
	)

	surface.EXPECT().SetPlaysInline(true).Times(2)
	surface.EXPECT().Attach(gomock.Any()).Times(2).Return(nil)
	surface.EXPECT().Play().Times(2).Return(nil)
	surface.EXPECT().Pause().Times(2)
	surface.EXPECT().Detach().Times(2)
	expectSubscriptions(surface)

	// The first stream is stopped by the second Acquire, the second
	// one by the final Release.
	first.EXPECT().Stop().Times(1).Return(nil)
	second.EXPECT().Stop().Times(1).Return(nil)

	acquirer := camera.NewAcquirer(provider, nil)

	_, err := acquirer.Acquire(context.Background(), surface, "cam-1")
	req.NoError(err)

	_, err = acquirer.Acquire(context.Background(), surface, "cam-2")
	req.NoError(err)

	acquirer.Release()
	// Releasing with nothing held is a no-op.
	acquirer.Release()
}

func TestAcquirer_ListDevices(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	provider := cameraMocks.NewMockProvider(ctrl)

	devices := []camera.DeviceDescriptor{
		{ID: "2", Label: "rear camera"},
		{ID: "0", Label: "front camera"},
	}
	provider.EXPECT().EnumerateDevices(gomock.Any()).Times(1).Return(devices, nil)

	acquirer := camera.NewAcquirer(provider, nil)

	// Provider ordering is passed through unmodified.
	listed, err := acquirer.ListDevices(context.Background())
	req.NoError(err)
	req.Equal(devices, listed)

	provider.EXPECT().EnumerateDevices(gomock.Any()).Times(1).
		Return(nil, camera.NewErrorf(camera.ClassEnumerationUnsupported, "not supported"))

	_, err = acquirer.ListDevices(context.Background())
	req.Error(err)
	req.True(camera.IsClass(err, camera.ClassEnumerationUnsupported))
}
