// api/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/warden-labs/warden/api/logging"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

func GetCallerFromContext(c *gin.Context) (string, error) {
	caller, exists := c.Get("caller")
	if !exists {
		return "", nil
	}
	return caller.(string), nil
}
