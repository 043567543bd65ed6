package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/middleware"
	"github.com/socialsync/socialsync/internal/models"
)

func (s *Server) handleListAccounts(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}
	accounts, err := s.store.ListAccountsByUser(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err, "Failed to fetch accounts")
		return
	}

	out := make([]models.AccountSummary, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].Summary())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetAccount(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}
	platform, ok := models.ParsePlatform(c.Param("platform"))
	if !ok {
		s.respondError(c, &errors.ErrUnsupportedPlatform{Platform: c.Param("platform")}, "")
		return
	}

	acc, err := s.store.GetAccountByPlatform(c.Request.Context(), userID, platform)
	if err != nil {
		s.respondError(c, err, "Failed to fetch account")
		return
	}
	middleware.SetAuditResource(c, acc.ID)
	c.JSON(http.StatusOK, acc)
}

// handleDisconnect removes every account the user has on the platform.
func (s *Server) handleDisconnect(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}
	platform, ok := models.ParsePlatform(c.Param("platform"))
	if !ok {
		s.respondError(c, &errors.ErrUnsupportedPlatform{Platform: c.Param("platform")}, "")
		return
	}

	ctx := c.Request.Context()
	removed, err := s.store.DeleteAccountsByPlatform(ctx, userID, platform)
	event := logging.NewAuditEvent(logging.AccountDelete, "disconnect_account", logging.StatusSuccess).
		WithUserID(userID).
		WithPlatform(string(platform)).
		WithIPAddress(c.ClientIP())
	if err != nil {
		s.logger.Audit(ctx, event.WithError(err))
		s.respondError(c, err, "Failed to disconnect account")
		return
	}
	s.logger.Audit(ctx, event.WithDetail("removed", removed))

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"platform": platform,
		"removed":  removed,
	})
}
