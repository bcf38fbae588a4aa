package api

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/markusressel/psu2go/internal/panel"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/prometheus/client_golang/prometheus"
	"net/http"
)

const (
	urlParamId      = "id"
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

// Panel is the part of the panel controlled through the API
type Panel interface {
	Snapshot() panel.State
	Subscribe() (<-chan panel.State, func())
	Done() <-chan struct{}

	RescanPorts() error
	SelectPort(port string) error
	Connect() error
	Disconnect() error
	ResetCom() error
	ApplySetpoint(voltageText string, currentText string) error
	ToggleOutput() error
	SetOutput(enabled bool) error
	ApplyPreset(name string) error
	EditPresets() *preset.Editor
	UpdatePresets(fn func(editor *preset.Editor) error) error
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

type handler struct {
	panel   Panel
	clients cmap.ConcurrentMap[string, *websocket.Conn]
}

// CreateRestService creates the REST API for the given panel.
// HTTP metrics are registered with the given registerer.
func CreateRestService(p Panel, registerer prometheus.Registerer) *echo.Echo {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	echoRest := echo.New()
	echoRest.HideBanner = true
	echoRest.Validator = &requestValidator{validator: validator.New()}

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())

	echoRest.Use(middleware.Logger())
	echoRest.Use(middleware.Recover())
	echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "psu2go",
		Subsystem:  "api",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/ws/"
		},
	}))

	echoRest.GET("/alive/", isAlive)

	h := &handler{
		panel:   p,
		clients: cmap.New[*websocket.Conn](),
	}
	registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "psu2go",
		Subsystem: "api",
		Name:      "websocket_clients",
		Help:      "Number of connected websocket clients",
	}, func() float64 {
		return float64(h.clients.Count())
	}))
	h.registerPsuEndpoints(echoRest)
	h.registerPortEndpoints(echoRest)
	h.registerPresetEndpoints(echoRest)
	h.registerWebsocketEndpoint(echoRest)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	code, name := errorStatus(e)
	message := e.Error()
	var httpError *echo.HTTPError
	if errors.As(e, &httpError) {
		message = fmt.Sprint(httpError.Message)
	}
	return c.JSONPretty(code, &Result{
		Name:    name,
		Message: message,
	}, indentationChar)
}

func errorStatus(e error) (int, string) {
	var validationErrors validator.ValidationErrors
	var httpError *echo.HTTPError
	switch {
	case errors.As(e, &validationErrors),
		errors.Is(e, util.ErrBadNumberFormat),
		errors.Is(e, preset.ErrEmptyName),
		errors.Is(e, preset.ErrInvalidValue),
		errors.Is(e, preset.ErrNotAnObject):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(e, psu.ErrNotConnected),
		errors.Is(e, psu.ErrPortNotSelected):
		return http.StatusConflict, "Conflict"
	case errors.Is(e, preset.ErrUnknown):
		return http.StatusNotFound, "Not found"
	case errors.Is(e, panel.ErrStopped):
		return http.StatusServiceUnavailable, "Unavailable"
	case errors.Is(e, psu.ErrConnectionFailed):
		return http.StatusInternalServerError, "Connection Error"
	case errors.Is(e, psu.ErrIo):
		return http.StatusInternalServerError, "Device Error"
	case errors.Is(e, preset.ErrPersistence):
		return http.StatusInternalServerError, "Persistence Error"
	case errors.As(e, &httpError):
		return httpError.Code, http.StatusText(httpError.Code)
	default:
		return http.StatusInternalServerError, "Unknown Error"
	}
}

// bindAndValidate reads the request body into the given struct and validates it
func bindAndValidate(c echo.Context, i interface{}) error {
	if err := c.Bind(i); err != nil {
		return err
	}
	return c.Validate(i)
}

// returnState answers with the current panel state, or the error if there is one
func (h *handler) returnState(c echo.Context, err error) error {
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, h.panel.Snapshot(), indentationChar)
}
