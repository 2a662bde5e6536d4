package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/clearcity/api/internal/limiter"
	"github.com/gin-gonic/gin"
)

type RateChecker interface {
	Check(ctx context.Context, clientID, action string) (*limiter.CheckResult, error)
}

// RateLimitMiddleware limits authenticated callers per action. A nil checker
// or a failing backend lets the request through.
func RateLimitMiddleware(checker RateChecker, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.Next()
			return
		}
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		result, err := checker.Check(c.Request.Context(), "user:"+strconv.FormatInt(userID, 10), action)
		if err != nil {
			log.Printf("Rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many reports, try again later"})
			c.Abort()
			return
		}

		c.Next()
	}
}
