package router

import (
	"github.com/labstack/echo/v4"

	"github.com/danielfrey63/qr-scanner-library/client/api/http_api/handlers"
	"github.com/danielfrey63/qr-scanner-library/client/services/scan"
)

func SetRouter(e *echo.Echo, scanService scan.ScanService) {
	h := handlers.NewHTTPApp(scanService)

	e.POST("/startScan", h.StartScan)
	e.POST("/stopScan", h.StopScan)

	e.GET("/getStatus", h.GetStatus)
	e.GET("/getDevices", h.GetDevices)
	e.GET("/getRecords", h.GetRecords)

	e.POST("/encodeQR", h.EncodeQR)
}
