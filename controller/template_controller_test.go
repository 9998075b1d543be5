// api/controller/template_controller_test.go
package controller_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/warden-labs/warden/api/controller"
	wardenerrors "github.com/warden-labs/warden/api/errors"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/test/mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestTemplateController(t *testing.T) {
	logger.InitTestLogger()

	templateService := new(mock.MockTemplateService)
	templateController := controller.NewTemplateController(templateService)
	router := setupRouter()
	api := router.Group("/")
	templateController.RegisterRoutes(api)

	t.Run("CreateTemplate_Success", func(t *testing.T) {
		templateService.On("CreateTemplate", tmock.Anything, tmock.Anything).
			Return(&model.Template{ID: "1", Name: "Treasury Guard"}, nil).Once()

		body := strings.NewReader(`{"name":"Treasury Guard"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/templates", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateTemplate_Failure_Conflict", func(t *testing.T) {
		templateService.On("CreateTemplate", tmock.Anything, tmock.Anything).
			Return(nil, wardenerrors.ErrTemplateConflict).Once()

		body := strings.NewReader(`{"id":"1","name":"Treasury Guard"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/templates", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("CreateTemplate_Failure_InvalidBody", func(t *testing.T) {
		body := strings.NewReader(`{not json`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/templates", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UpdateTemplate_Success", func(t *testing.T) {
		templateService.On("UpdateTemplate", tmock.Anything, tmock.Anything).
			Return(&model.Template{ID: "1", Name: "Updated Guard"}, nil).Once()

		body := strings.NewReader(`{"name":"Updated Guard"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/templates/1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpdateTemplate_Failure_NotFound", func(t *testing.T) {
		templateService.On("UpdateTemplate", tmock.Anything, tmock.Anything).
			Return(nil, wardenerrors.ErrTemplateNotFound).Once()

		body := strings.NewReader(`{"name":"Updated Guard"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/templates/1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DeleteTemplate_Success", func(t *testing.T) {
		templateService.On("DeleteTemplate", tmock.Anything, "1").
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/templates/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("DeleteTemplate_Failure_NotFound", func(t *testing.T) {
		templateService.On("DeleteTemplate", tmock.Anything, "1").
			Return(wardenerrors.ErrTemplateNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/templates/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetTemplate_Success", func(t *testing.T) {
		templateService.On("GetTemplate", tmock.Anything, "1").
			Return(&model.Template{ID: "1", Name: "Treasury Guard"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/templates/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Treasury Guard")
	})

	t.Run("GetTemplate_Failure_NotFound", func(t *testing.T) {
		templateService.On("GetTemplate", tmock.Anything, "missing").
			Return(nil, wardenerrors.ErrTemplateNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/templates/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListTemplates_Success", func(t *testing.T) {
		templateService.On("ListTemplates", tmock.Anything, 10, 0).
			Return([]*model.Template{{ID: "1", Name: "Treasury Guard"}}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/templates", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ListTemplates_ClampsBadPagination", func(t *testing.T) {
		templateService.On("ListTemplates", tmock.Anything, 10, 0).
			Return([]*model.Template{}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/templates?limit=-3&offset=oops", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	templateService.AssertExpectations(t)
}
