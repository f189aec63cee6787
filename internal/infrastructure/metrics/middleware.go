package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request count and latency per route template.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || IsHealthCheckEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		m.RequestsInProgress.Inc()
		start := time.Now()

		// a panicking handler is counted as a 500 before Recovery sees the panic
		defer func() {
			m.RequestsInProgress.Dec()
			status := c.Writer.Status()
			p := recover()
			if p != nil {
				status = http.StatusInternalServerError
			}
			m.RecordRequest(c.FullPath(), c.Request.Method, status, time.Since(start))
			if p != nil {
				panic(p)
			}
		}()

		c.Next()
	}
}
