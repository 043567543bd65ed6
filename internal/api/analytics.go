package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

const analyticsFailure = "Failed to fetch analytics"

func (s *Server) handleOverview(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}
	overview, err := s.analytics.Overview(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err, analyticsFailure)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) handlePerformance(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}
	series, err := s.analytics.Performance(c.Request.Context(), userID, c.Query("username"))
	if err != nil {
		s.respondError(c, err, analyticsFailure)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleSentiment(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}
	mood, err := s.analytics.Sentiment(c.Request.Context(), userID, c.Query("username"))
	if err != nil {
		s.respondError(c, err, analyticsFailure)
		return
	}
	c.JSON(http.StatusOK, mood)
}

// handleHistory serves stored daily records. ?days defaults to 30.
func (s *Server) handleHistory(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}

	var platform models.Platform
	if raw := c.Query("platform"); raw != "" {
		p, ok := models.ParsePlatform(raw)
		if !ok {
			s.respondError(c, &errors.ErrUnsupportedPlatform{Platform: raw}, "")
			return
		}
		platform = p
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Error:   "bad_request",
				Message: "days must be a positive integer",
				Code:    http.StatusBadRequest,
			})
			return
		}
		days = n
	}

	records, err := s.analytics.History(c.Request.Context(), userID, platform, days)
	if err != nil {
		s.respondError(c, err, analyticsFailure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// handleMetaInsights serves /meta (all Meta accounts) and /meta/:platform.
func (s *Server) handleMetaInsights(c *gin.Context) {
	userID, err := CurrentUser(c)
	if err != nil {
		s.respondError(c, err, "Unauthorized")
		return
	}

	var platform models.Platform
	if raw := c.Param("platform"); raw != "" {
		p, ok := models.ParsePlatform(raw)
		if !ok {
			s.respondError(c, &errors.ErrUnsupportedPlatform{Platform: raw}, "")
			return
		}
		platform = p
	}

	insights, err := s.analytics.MetaInsights(c.Request.Context(), userID, platform)
	if err != nil {
		s.respondError(c, err, "Failed to fetch insights")
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights})
}
