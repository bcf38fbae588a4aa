package api

import (
	"github.com/labstack/echo/v4"
	"net/http"
)

type connectRequest struct {
	Port string `json:"port" validate:"omitempty,max=255"`
}

type setpointRequest struct {
	Voltage string `json:"voltage" validate:"required"`
	Current string `json:"current" validate:"required"`
}

type outputRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type selectPortRequest struct {
	Port string `json:"port" validate:"required,max=255"`
}

type portsResponse struct {
	Ports        []string `json:"ports"`
	SelectedPort string   `json:"selectedPort"`
}

func (h *handler) registerPsuEndpoints(rest *echo.Echo) {
	group := rest.Group("/psu")

	group.GET("/", h.getPsu)
	group.POST("/connect/", h.connect)
	group.POST("/disconnect/", h.disconnect)
	group.POST("/reset/", h.resetCom)
	group.POST("/setpoint/", h.applySetpoint)
	group.POST("/output/", h.toggleOutput)
	group.PUT("/output/", h.setOutput)
}

func (h *handler) registerPortEndpoints(rest *echo.Echo) {
	group := rest.Group("/port")

	group.GET("/", h.getPorts)
	group.PUT("/", h.selectPort)
	group.POST("/rescan/", h.rescanPorts)
}

// returns the current state of the panel
func (h *handler) getPsu(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, h.panel.Snapshot(), indentationChar)
}

// connects to the port given in the body, or the selected one
func (h *handler) connect(c echo.Context) error {
	var request connectRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &request); err != nil {
			return returnError(c, err)
		}
	}
	if len(request.Port) > 0 {
		if err := h.panel.SelectPort(request.Port); err != nil {
			return returnError(c, err)
		}
	}
	return h.returnState(c, h.panel.Connect())
}

func (h *handler) disconnect(c echo.Context) error {
	return h.returnState(c, h.panel.Disconnect())
}

func (h *handler) resetCom(c echo.Context) error {
	return h.returnState(c, h.panel.ResetCom())
}

func (h *handler) applySetpoint(c echo.Context) error {
	var request setpointRequest
	if err := bindAndValidate(c, &request); err != nil {
		return returnError(c, err)
	}
	return h.returnState(c, h.panel.ApplySetpoint(request.Voltage, request.Current))
}

func (h *handler) toggleOutput(c echo.Context) error {
	return h.returnState(c, h.panel.ToggleOutput())
}

func (h *handler) setOutput(c echo.Context) error {
	var request outputRequest
	if err := bindAndValidate(c, &request); err != nil {
		return returnError(c, err)
	}
	return h.returnState(c, h.panel.SetOutput(*request.Enabled))
}

func (h *handler) getPorts(c echo.Context) error {
	state := h.panel.Snapshot()
	return c.JSONPretty(http.StatusOK, portsResponse{
		Ports:        state.Ports,
		SelectedPort: state.SelectedPort,
	}, indentationChar)
}

func (h *handler) selectPort(c echo.Context) error {
	var request selectPortRequest
	if err := bindAndValidate(c, &request); err != nil {
		return returnError(c, err)
	}
	if err := h.panel.SelectPort(request.Port); err != nil {
		return returnError(c, err)
	}
	return h.getPorts(c)
}

func (h *handler) rescanPorts(c echo.Context) error {
	if err := h.panel.RescanPorts(); err != nil {
		return returnError(c, err)
	}
	return h.getPorts(c)
}
