// api/controller/audit_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/warden-labs/warden/api/audit"
	"github.com/warden-labs/warden/api/controller"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/test/mock"
)

func TestAuditController(t *testing.T) {
	logger.InitTestLogger()

	auditService := new(mock.MockAuditService)
	auditController := controller.NewAuditController(auditService)
	router := setupRouter()
	api := router.Group("/")
	auditController.RegisterRoutes(api)

	t.Run("QueryVerdicts_Success", func(t *testing.T) {
		from, _ := time.Parse(time.RFC3339, "2024-05-15T00:00:00Z")
		to, _ := time.Parse(time.RFC3339, "2024-05-16T00:00:00Z")
		auditService.On("QueryVerdicts", tmock.Anything, from, to, "0xabc", "tmpl-1").
			Return([]audit.VerdictLog{
				{Sender: "0xabc", TemplateID: "tmpl-1", Allowed: true},
				{Sender: "0xabc", TemplateID: "tmpl-1", Allowed: false},
			}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET",
			"/verdicts?from=2024-05-15T00:00:00Z&to=2024-05-16T00:00:00Z&sender=0xabc&templateId=tmpl-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Count    int                `json:"count"`
			Verdicts []audit.VerdictLog `json:"verdicts"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
		assert.Len(t, body.Verdicts, 2)
	})

	t.Run("QueryVerdicts_DefaultsToLastDay", func(t *testing.T) {
		auditService.On("QueryVerdicts", tmock.Anything,
			tmock.MatchedBy(func(from time.Time) bool { return time.Since(from) < 25*time.Hour }),
			tmock.MatchedBy(func(to time.Time) bool { return time.Since(to) < time.Hour }),
			"", "").
			Return([]audit.VerdictLog{}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/verdicts", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("QueryVerdicts_BadTimestamp", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/verdicts?from=yesterday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("QueryVerdicts_InvertedRange", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET",
			"/verdicts?from=2024-05-16T00:00:00Z&to=2024-05-15T00:00:00Z", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("QueryVerdicts_BackendFailure", func(t *testing.T) {
		auditService.On("QueryVerdicts", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything).
			Return(nil, assert.AnError).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/verdicts", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	auditService.AssertExpectations(t)
}
