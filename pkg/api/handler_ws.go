package api

import (
	echo "github.com/labstack/echo/v5"
)

// wsHandler upgrades HTTP connections to WebSocket and registers the client
// with the hub (§4.10). Echo's *echo.Response embeds http.ResponseWriter,
// satisfying gorilla/websocket's Upgrader.Upgrade signature directly.
func (s *Server) wsHandler(c *echo.Context) error {
	s.hub.HandleUpgrade(c.Response(), c.Request())
	return nil
}
