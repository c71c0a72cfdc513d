package server

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed overlay.html
var overlayHTML []byte

// handleOverlay serves the OBS browser-source page. It renders the
// now-playing card from the websocket feed.
func (s *Server) handleOverlay(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", overlayHTML)
}
