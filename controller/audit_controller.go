// api/controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warden-labs/warden/api/audit"
	"github.com/warden-labs/warden/api/util"
)

type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{auditService: auditService}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/verdicts", ac.QueryVerdicts)
}

// QueryVerdicts endpoint searches the verdict audit trail by time range,
// optionally filtered by sender and template. The range defaults to the
// last 24 hours.
func (ac *AuditController) QueryVerdicts(c *gin.Context) {
	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp, expected RFC3339", err)
			return
		}
		to = parsed
	}

	from := to.Add(-24 * time.Hour)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp, expected RFC3339", err)
			return
		}
		from = parsed
	}

	if from.After(to) {
		util.RespondWithError(c, http.StatusBadRequest, "'from' must not be after 'to'", nil)
		return
	}

	verdicts, err := ac.auditService.QueryVerdicts(c, from, to, c.Query("sender"), c.Query("templateId"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query verdicts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"verdicts": verdicts, "count": len(verdicts)})
}
