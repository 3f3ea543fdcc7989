package requests

type StartScanForm struct {
	DeviceID string `json:"device_id"`
}

type RecordsForm struct {
	Offset uint64 `query:"offset" json:"offset"`
}

type EncodeForm struct {
	Data string `json:"data" validate:"attr=data,min=1"`
}
