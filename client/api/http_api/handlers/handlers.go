package handlers

import (
	"github.com/danielfrey63/qr-scanner-library/client/services/scan"
)

type HTTPApp struct {
	scan scan.ScanService
}

func NewHTTPApp(scanService scan.ScanService) *HTTPApp {
	return &HTTPApp{
		scan: scanService,
	}
}
