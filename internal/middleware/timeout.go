package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medtrack-server/internal/utils"
)

// LoadingTimeout puts a deadline on the request context. Handlers pass that
// context to the store, so a slow load fails with context.DeadlineExceeded;
// when nothing has been written by then the client gets a 504 it may retry.
//
// Websocket paths are long-lived and are not limited.
func LoadingTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 || strings.HasSuffix(c.Request.URL.Path, "/events/ws") {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			utils.GatewayTimeout(c, "Loading took too long, please try again")
		}
	}
}
