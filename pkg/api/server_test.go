package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/eventpulse/eventpulse/pkg/ws"
)

// TestSetupRoutesRegistersBareWSPath guards against the WebSocket upgrade
// endpoint drifting back under the /api/v1 group: clients dial the bare
// path, not a versioned one.
func TestSetupRoutesRegistersBareWSPath(t *testing.T) {
	s := &Server{echo: echo.New(), hub: ws.NewHub(nil)}
	s.setupRoutes()

	var sawBareWS, sawVersionedWS bool
	for _, r := range s.echo.Routes() {
		switch r.Path {
		case "/ws":
			sawBareWS = true
		case "/api/v1/ws":
			sawVersionedWS = true
		}
	}
	assert.True(t, sawBareWS, "/ws must be registered on the root router")
	assert.False(t, sawVersionedWS, "/ws must not be nested under /api/v1")

	// A plain GET without upgrade headers reaches wsHandler, which fails the
	// handshake itself (400) — but that's below the routing layer this test
	// guards against: any non-404 response proves /ws is reachable.
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}
