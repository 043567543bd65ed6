package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleConnect starts the OAuth flow for the authenticated user. Browsers
// are redirected; ?format=json returns the URL for SPA clients that attach
// the bearer token with fetch.
func (s *Server) handleConnect(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}

	authURL, err := s.connect.Begin(c.Request.Context(), userID, c.Param("platform"))
	if err != nil {
		s.respondError(c, err, "Failed to start account connection")
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"url": authURL})
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// handleCallback completes the flow and always redirects to the frontend.
// A provider-side denial arrives without a code and fails as such.
func (s *Server) handleCallback(c *gin.Context) {
	res := s.connect.Complete(c.Request.Context(), c.Param("platform"), c.Query("code"), c.Query("state"))
	c.Redirect(http.StatusFound, res.RedirectURL)
}
