package dto

type StartScanDTO struct {
	DeviceID string
}

type RecordsDTO struct {
	Offset uint64
}

type EncodeDTO struct {
	Data string
}
