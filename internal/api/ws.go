package api

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/markusressel/psu2go/internal/ui"
	"net/http"
	"time"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *handler) registerWebsocketEndpoint(rest *echo.Echo) {
	rest.GET("/ws/", h.streamState)
}

// streamState pushes the panel state to the client after every change
func (h *handler) streamState(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already answered the request
		ui.Warning("Websocket upgrade failed: %v", err)
		return nil
	}
	defer func() {
		_ = conn.Close()
	}()

	id := uuid.NewString()
	h.clients.Set(id, conn)
	defer h.clients.Remove(id)
	ui.Debug("Websocket client %s connected (%d total)", id, h.clients.Count())

	updates, unsubscribe := h.panel.Subscribe()
	defer unsubscribe()

	// only used to detect a closed connection
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, h.panel.Snapshot()); err != nil {
		return nil
	}

	for {
		select {
		case <-closed:
			ui.Debug("Websocket client %s disconnected", id)
			return nil
		case <-h.panel.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(wsWriteTimeout),
			)
			return nil
		case state := <-updates:
			if err := h.write(conn, state); err != nil {
				return nil
			}
		}
	}
}

func (h *handler) write(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
