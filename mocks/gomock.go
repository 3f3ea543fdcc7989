package mocks

//go:generate mockgen -source=./../camera/types.go -destination=./cameraMocks/camera_mock.go -package=cameraMocks
//go:generate mockgen -source=./../qr/decoder.go -destination=./qrMocks/decoder_mock.go -package=qrMocks
//go:generate mockgen -source=./../journal/types.go -destination=./journalMocks/journal_mock.go -package=journalMocks
//go:generate mockgen -source=./../scanner/session.go -destination=./scannerMocks/acquirer_mock.go -package=scannerMocks
