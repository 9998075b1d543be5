// api/middleware/caller.go

package middleware

import "github.com/gin-gonic/gin"

// CallerIdentity copies the caller identity asserted by the fronting proxy
// into the request context, where handlers attribute actions to an actor.
func CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller := c.GetHeader("X-Caller"); caller != "" {
			c.Set("caller", caller)
		}
		c.Next()
	}
}
