package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"kaimaku/internal/cooldown"
	"kaimaku/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Cooldown rejects a request that arrives inside the gate's window of the
// previous one from the same client. Rejected attempts are not queued.
func Cooldown(gate *cooldown.Gate, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if p := Principal(c); p != nil {
			key = "user:" + p.UserID
		}

		ok, remaining := gate.Allow(key, time.Now())
		if !ok {
			metrics.CooldownRejectionsTotal.WithLabelValues(name).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(remaining.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": cooldown.WaitMessage(remaining),
				"code":  "cooldown",
			})
			return
		}
		c.Next()
	}
}
