package scan_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/danielfrey63/qr-scanner-library/camera"
	"github.com/danielfrey63/qr-scanner-library/client/api/dto"
	"github.com/danielfrey63/qr-scanner-library/client/services/scan"
	"github.com/danielfrey63/qr-scanner-library/config"
	"github.com/danielfrey63/qr-scanner-library/journal"
	"github.com/danielfrey63/qr-scanner-library/mocks/cameraMocks"
	"github.com/danielfrey63/qr-scanner-library/mocks/journalMocks"
	"github.com/danielfrey63/qr-scanner-library/mocks/qrMocks"
	"github.com/danielfrey63/qr-scanner-library/mocks/scannerMocks"
	"github.com/danielfrey63/qr-scanner-library/scanner"
)

func testScannerConfig() *config.ScannerConfig {
	return &config.ScannerConfig{
		DeviceID:       "0",
		ScanIntervalMs: 5,
		StopOnScan:     true,
	}
}

func newServiceFixture(t *testing.T, ctrl *gomock.Controller) (
	*scan.BaseScanService,
	*scannerMocks.MockStreamAcquirer,
	*cameraMocks.MockSurface,
	*qrMocks.MockDecoder,
	*journalMocks.MockJournal,
	*journalMocks.MockSink,
) {
	t.Helper()

	acquirer := scannerMocks.NewMockStreamAcquirer(ctrl)
	surface := cameraMocks.NewMockSurface(ctrl)
	decoder := qrMocks.NewMockDecoder(ctrl)
	jrnl := journalMocks.NewMockJournal(ctrl)
	sink := journalMocks.NewMockSink(ctrl)

	service, err := scan.NewService(
		context.Background(), testScannerConfig(), acquirer, decoder, surface, jrnl, sink, nil)
	require.NoError(t, err)

	return service, acquirer, surface, decoder, jrnl, sink
}

func TestScanService_ScanIsJournaledAndPublished(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	service, acquirer, surface, decoder, jrnl, sink := newServiceFixture(t, ctrl)

	surface.EXPECT().Subscribe(gomock.Any(), gomock.Any()).AnyTimes().Return(func() {})
	surface.EXPECT().Attached().AnyTimes().Return(true)
	surface.EXPECT().Paused().AnyTimes().Return(false)
	surface.EXPECT().Ended().AnyTimes().Return(false)
	surface.EXPECT().Dimensions().AnyTimes().Return(640, 480)
	surface.EXPECT().Capture(gomock.Any()).AnyTimes().Return(nil)

	acquirer.EXPECT().Acquire(gomock.Any(), surface, "cam-7").Times(1).Return(nil, nil)
	acquirer.EXPECT().Release().Times(1)
	decoder.EXPECT().Decode(gomock.Any(), 640, 480).AnyTimes().Return("payload", nil)

	var journaled int32
	jrnl.EXPECT().Append(gomock.Any()).Times(1).DoAndReturn(
		func(record journal.Record) (journal.Record, error) {
			require.Equal(t, "cam-7", record.DeviceID)
			require.Equal(t, "payload", record.Content)
			record.ID = "rec-1"
			record.Offset = 3
			atomic.AddInt32(&journaled, 1)
			return record, nil
		})

	published := make(chan journal.Record, 1)
	sink.EXPECT().Publish(gomock.Any()).Times(1).DoAndReturn(
		func(records ...journal.Record) error {
			published <- records[0]
			return nil
		})

	req.NoError(service.StartScan(&dto.StartScanDTO{DeviceID: "cam-7"}))

	select {
	case record := <-published:
		req.Equal("rec-1", record.ID)
		req.Equal(uint64(3), record.Offset)
	case <-time.After(2 * time.Second):
		t.Fatal("scan result never reached the sink")
	}
	req.Equal(int32(1), atomic.LoadInt32(&journaled))

	// StopOnScan ends the session; status settles on stopped.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := service.GetStatus()
		req.NoError(err)
		if status.State == string(scanner.StateStopped) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("session never reached the stopped state")
}

func TestScanService_StartWhileRunningFails(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	service, acquirer, surface, decoder, _, _ := newServiceFixture(t, ctrl)

	surface.EXPECT().Subscribe(gomock.Any(), gomock.Any()).AnyTimes().Return(func() {})
	surface.EXPECT().Attached().AnyTimes().Return(true)
	surface.EXPECT().Paused().AnyTimes().Return(false)
	surface.EXPECT().Ended().AnyTimes().Return(false)
	surface.EXPECT().Dimensions().AnyTimes().Return(640, 480)
	surface.EXPECT().Capture(gomock.Any()).AnyTimes().Return(nil)

	acquirer.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Times(1).Return(nil, nil)
	acquirer.EXPECT().Release().Times(1)
	decoder.EXPECT().Decode(gomock.Any(), 640, 480).AnyTimes().Return("", nil)

	req.NoError(service.StartScan(&dto.StartScanDTO{}))

	err := service.StartScan(&dto.StartScanDTO{})
	req.Error(err)
	req.Contains(err.Error(), "already running")

	req.NoError(service.StopScan())
}

func TestScanService_StartFailurePropagates(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	service, acquirer, surface, _, _, _ := newServiceFixture(t, ctrl)

	surface.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Times(1).Return(func() {})

	acquireErr := camera.NewErrorf(camera.ClassDeviceBusy, "device is busy")
	acquirer.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Times(1).Return(nil, acquireErr)
	acquirer.EXPECT().Release().Times(1)

	err := service.StartScan(&dto.StartScanDTO{})
	req.Error(err)
	req.True(camera.IsClass(err, camera.ClassDeviceBusy))

	status, err := service.GetStatus()
	req.NoError(err)
	req.Equal(string(scanner.StateStopped), status.State)
}

func TestScanService_StopWithoutSessionFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, _, _, _, _, _ := newServiceFixture(t, ctrl)
	require.Error(t, service.StopScan())
}

func TestScanService_GetRecordsPassesOffsetThrough(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	service, _, _, _, jrnl, _ := newServiceFixture(t, ctrl)

	want := []journal.Record{
		{ID: "a", Content: "one", Offset: 5},
		{ID: "b", Content: "two", Offset: 6},
	}
	jrnl.EXPECT().Records(uint64(5)).Times(1).Return(want, nil)

	records, err := service.GetRecords(&dto.RecordsDTO{Offset: 5})
	req.NoError(err)
	req.Equal(want, records)
}

func TestScanService_GetDevices(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	service, acquirer, _, _, _, _ := newServiceFixture(t, ctrl)

	want := []camera.DeviceDescriptor{{ID: "0", Label: "integrated camera"}}
	acquirer.EXPECT().ListDevices(gomock.Any()).Times(1).Return(want, nil)

	devices, err := service.GetDevices()
	req.NoError(err)
	req.Equal(want, devices)
}

func TestScanService_EncodeQR(t *testing.T) {
	var (
		req  = require.New(t)
		ctrl = gomock.NewController(t)
	)
	defer ctrl.Finish()

	service, _, _, _, _, _ := newServiceFixture(t, ctrl)

	png, err := service.EncodeQR(&dto.EncodeDTO{Data: "https://example.org"})
	req.NoError(err)
	req.NotEmpty(png)
}
