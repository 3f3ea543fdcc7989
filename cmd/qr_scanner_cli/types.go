package main

import (
	"github.com/danielfrey63/qr-scanner-library/camera"
	"github.com/danielfrey63/qr-scanner-library/client/services/scan"
	"github.com/danielfrey63/qr-scanner-library/journal"
)

type OkResponse struct {
	ErrorMessage string `json:"error_message,omitempty"`
	Result       string `json:"result"`
}

type StatusResponse struct {
	ErrorMessage string       `json:"error_message,omitempty"`
	Result       *scan.Status `json:"result"`
}

type DevicesResponse struct {
	ErrorMessage string                    `json:"error_message,omitempty"`
	Result       []camera.DeviceDescriptor `json:"result"`
}

type RecordsResponse struct {
	ErrorMessage string           `json:"error_message,omitempty"`
	Result       []journal.Record `json:"result"`
}
