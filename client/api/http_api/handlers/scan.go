package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	. "github.com/danielfrey63/qr-scanner-library/client/api/dto"
	cs "github.com/danielfrey63/qr-scanner-library/client/api/http_api/context_service"
	req "github.com/danielfrey63/qr-scanner-library/client/api/http_api/requests"
)

func (a *HTTPApp) StartScan(c echo.Context) error {
	ctx := c.(*cs.ContextService)

	request := &req.StartScanForm{}
	formDTO := &StartScanDTO{}
	if err := ctx.BindToDTO(request, formDTO); err != nil {
		return err
	}

	if err := a.scan.StartScan(formDTO); err != nil {
		return ctx.JsonError(http.StatusInternalServerError, err)
	}
	return ctx.Json(http.StatusOK, "ok")
}

func (a *HTTPApp) StopScan(c echo.Context) error {
	ctx := c.(*cs.ContextService)

	if err := a.scan.StopScan(); err != nil {
		return ctx.JsonError(http.StatusInternalServerError, err)
	}
	return ctx.Json(http.StatusOK, "ok")
}

func (a *HTTPApp) GetStatus(c echo.Context) error {
	ctx := c.(*cs.ContextService)

	status, err := a.scan.GetStatus()
	if err != nil {
		return ctx.JsonError(http.StatusInternalServerError, err)
	}
	return ctx.Json(http.StatusOK, status)
}

func (a *HTTPApp) GetDevices(c echo.Context) error {
	ctx := c.(*cs.ContextService)

	devices, err := a.scan.GetDevices()
	if err != nil {
		return ctx.JsonError(http.StatusInternalServerError, err)
	}
	return ctx.Json(http.StatusOK, devices)
}

func (a *HTTPApp) GetRecords(c echo.Context) error {
	ctx := c.(*cs.ContextService)

	request := &req.RecordsForm{}
	formDTO := &RecordsDTO{}
	if err := ctx.BindToDTO(request, formDTO); err != nil {
		return err
	}

	records, err := a.scan.GetRecords(formDTO)
	if err != nil {
		return ctx.JsonError(http.StatusInternalServerError, err)
	}
	return ctx.Json(http.StatusOK, records)
}

func (a *HTTPApp) EncodeQR(c echo.Context) error {
	ctx := c.(*cs.ContextService)

	request := &req.EncodeForm{}
	formDTO := &EncodeDTO{}
	if err := ctx.BindToDTO(request, formDTO); err != nil {
		return err
	}

	png, err := a.scan.EncodeQR(formDTO)
	if err != nil {
		return ctx.JsonError(http.StatusInternalServerError, err)
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}
