package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/logging"
)

// Middleware records HTTP metrics for each request. Unmatched routes are
// labelled "unmatched" so probing clients cannot blow up label cardinality.
func Middleware(m *Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncHTTPRequestsInFlight()
		defer m.DecHTTPRequestsInFlight()

		c.Next()

		code := c.Writer.Status()
		status := strconv.Itoa(code)
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		method := c.Request.Method

		m.RecordRequestLatency(endpoint, method, status, time.Since(start).Seconds())
		m.RecordHTTPRequest(endpoint, method, status)

		switch {
		case code >= http.StatusInternalServerError:
			m.RecordError("server", endpoint, method)
		case code == http.StatusUnauthorized:
			m.RecordError("unauthorized", endpoint, method)
		}

		if len(c.Errors) > 0 {
			logger.ErrorWithContext(c.Request.Context(), "request error",
				"endpoint", endpoint,
				"status", code,
				"error", c.Errors.String(),
			)
		}
	}
}
