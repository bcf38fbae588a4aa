package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/labstack/echo/v4"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/qdm12/reprint"
	"net/http"
	"strings"
)

type presetRequest struct {
	Voltage string `json:"voltage" validate:"required"`
	Current string `json:"current" validate:"required"`
}

func (h *handler) registerPresetEndpoints(rest *echo.Echo) {
	group := rest.Group("/preset")

	group.GET("/", h.getPresets)
	group.PUT("/", h.replacePresets)
	group.GET("/:"+urlParamId+"/", h.getPreset)
	group.PUT("/:"+urlParamId+"/", h.putPreset)
	group.DELETE("/:"+urlParamId+"/", h.deletePreset)
	group.POST("/:"+urlParamId+"/apply/", h.applyPreset)
}

// returns a list of all presets, in order
func (h *handler) getPresets(c echo.Context) error {
	data := reprint.This(h.panel.Snapshot().Presets)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handler) getPreset(c echo.Context) error {
	id := c.Param(urlParamId)
	setpoint, exists := h.panel.EditPresets().Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, preset.Preset{Name: id, Setpoint: setpoint}, indentationChar)
}

// replaces all presets with the JSON object in the body, e.g. {"5V 1A": {"U": 5, "I": 1}}
func (h *handler) replacePresets(c echo.Context) error {
	presets := preset.NewPresets()
	if err := json.NewDecoder(c.Request().Body).Decode(presets); err != nil {
		return returnError(c, fmt.Errorf("%w: %w", preset.ErrNotAnObject, err))
	}

	err := h.panel.UpdatePresets(func(editor *preset.Editor) error {
		editor.Replace(presets)
		return nil
	})
	if err != nil {
		return returnError(c, err)
	}
	return h.getPresets(c)
}

// creates or overwrites the preset with the given name
func (h *handler) putPreset(c echo.Context) error {
	id := c.Param(urlParamId)
	var request presetRequest
	if err := bindAndValidate(c, &request); err != nil {
		return returnError(c, err)
	}

	var created preset.Preset
	err := h.panel.UpdatePresets(func(editor *preset.Editor) error {
		if err := editor.PutText(id, request.Voltage, request.Current); err != nil {
			return err
		}
		setpoint, _ := editor.Get(strings.TrimSpace(id))
		created = preset.Preset{Name: strings.TrimSpace(id), Setpoint: setpoint}
		return nil
	})
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, created, indentationChar)
}

func (h *handler) deletePreset(c echo.Context) error {
	id := c.Param(urlParamId)
	err := h.panel.UpdatePresets(func(editor *preset.Editor) error {
		if _, exists := editor.Get(id); !exists {
			return fmt.Errorf("%w: %s", preset.ErrUnknown, id)
		}
		editor.Remove(id)
		return nil
	})
	if errors.Is(err, preset.ErrUnknown) {
		return returnNotFound(c, id)
	}
	if err != nil {
		return returnError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) applyPreset(c echo.Context) error {
	return h.returnState(c, h.panel.ApplyPreset(c.Param(urlParamId)))
}
