package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danielfrey63/qr-scanner-library/camera"
	"github.com/danielfrey63/qr-scanner-library/client/api/dto"
	"github.com/danielfrey63/qr-scanner-library/common"
	"github.com/danielfrey63/qr-scanner-library/config"
	"github.com/danielfrey63/qr-scanner-library/journal"
	"github.com/danielfrey63/qr-scanner-library/qr"
	"github.com/danielfrey63/qr-scanner-library/scanner"
)

// Status is the lifecycle snapshot exposed over the API.
type Status struct {
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state"`
	DeviceID  string `json:"device_id,omitempty"`
}

type ScanService interface {
	StartScan(dto *dto.StartScanDTO) error
	StopScan() error
	GetStatus() (*Status, error)
	GetDevices() ([]camera.DeviceDescriptor, error)
	GetRecords(dto *dto.RecordsDTO) ([]journal.Record, error)
	EncodeQR(dto *dto.EncodeDTO) ([]byte, error)
	Close() error
}

type BaseScanService struct {
	sync.Mutex
	ctx      context.Context
	cfg      *config.ScannerConfig
	acquirer scanner.StreamAcquirer
	decoder  qr.Decoder
	surface  camera.Surface
	journal  journal.Journal
	sink     journal.Sink
	Logger   common.Logger

	session  *scanner.Session
	deviceID string
}

func NewService(
	ctx context.Context,
	cfg *config.ScannerConfig,
	acquirer scanner.StreamAcquirer,
	decoder qr.Decoder,
	surface camera.Surface,
	jrnl journal.Journal,
	sink journal.Sink,
	logger common.Logger,
) (*BaseScanService, error) {
	if acquirer == nil || decoder == nil || surface == nil {
		return nil, fmt.Errorf("acquirer, decoder and surface are required")
	}
	if jrnl == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("scanner config is required")
	}
	if logger == nil {
		logger = common.NewNopLogger()
	}

	return &BaseScanService{
		ctx:      ctx,
		cfg:      cfg,
		acquirer: acquirer,
		decoder:  decoder,
		surface:  surface,
		journal:  jrnl,
		sink:     sink,
		Logger:   logger,
	}, nil
}

// StartScan spins up a fresh scan session. Only one session runs at a
// time; starting while one is active is an error to the caller.
func (s *BaseScanService) StartScan(request *dto.StartScanDTO) error {
	deviceID := request.DeviceID
	if deviceID == "" {
		deviceID = s.cfg.DeviceID
	}

	s.Lock()
	if s.session != nil {
		switch s.session.State() {
		case scanner.StateAcquiring, scanner.StateScanning:
			id := s.session.ID()
			s.Unlock()
			return fmt.Errorf("scan session %s is already running", id)
		}
	}

	session, err := scanner.NewSession(s.acquirer, s.decoder, scanner.Config{
		Surface:      s.surface,
		DeviceID:     deviceID,
		ScanInterval: s.cfg.ScanInterval(),
		StopOnScan:   s.cfg.StopOnScan,
		OnScan: func(content string) {
			s.handleScan(deviceID, content)
		},
		OnError: func(err error) {
			s.Logger.Log("scan session failed: %v", err)
		},
		Logger: s.Logger,
	})
	if err != nil {
		s.Unlock()
		return fmt.Errorf("failed to create scan session: %w", err)
	}
	s.session = session
	s.deviceID = deviceID
	s.Unlock()

	if err := session.Start(s.ctx); err != nil {
		return fmt.Errorf("failed to start scan session: %w", err)
	}

	s.Logger.Log("scan session %s started on device %q", session.ID(), deviceID)
	return nil
}

func (s *BaseScanService) StopScan() error {
	s.Lock()
	session := s.session
	s.Unlock()

	if session == nil {
		return fmt.Errorf("no scan session to stop")
	}
	session.Stop()
	return nil
}

func (s *BaseScanService) GetStatus() (*Status, error) {
	s.Lock()
	defer s.Unlock()

	if s.session == nil {
		return &Status{State: string(scanner.StateIdle)}, nil
	}
	return &Status{
		SessionID: s.session.ID(),
		State:     string(s.session.State()),
		DeviceID:  s.deviceID,
	}, nil
}

func (s *BaseScanService) GetDevices() ([]camera.DeviceDescriptor, error) {
	devices, err := s.acquirer.ListDevices(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return devices, nil
}

func (s *BaseScanService) GetRecords(request *dto.RecordsDTO) ([]journal.Record, error) {
	records, err := s.journal.Records(request.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return records, nil
}

func (s *BaseScanService) EncodeQR(request *dto.EncodeDTO) ([]byte, error) {
	data, err := qr.EncodeQR([]byte(request.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	return data, nil
}

// handleScan journals every decoded payload and forwards it to the
// sink when one is configured. Sink failures are logged, never fatal.
func (s *BaseScanService) handleScan(deviceID, content string) {
	record, err := s.journal.Append(journal.Record{
		DeviceID:  deviceID,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.Logger.Log("failed to journal scan result: %v", err)
		return
	}
	s.Logger.Log("journaled scan %s at offset %d", record.ID, record.Offset)

	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(record); err != nil {
		s.Logger.Log("failed to publish scan %s to sink: %v", record.ID, err)
	}
}

func (s *BaseScanService) Close() error {
	s.Lock()
	session := s.session
	s.Unlock()

	if session != nil {
		session.Stop()
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			s.Logger.Log("failed to close sink: %v", err)
		}
	}
	if err := s.journal.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}
