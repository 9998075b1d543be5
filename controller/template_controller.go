// api/controller/template_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/service"
	"github.com/warden-labs/warden/api/util"
)

type TemplateController struct {
	templateService service.ITemplateService
}

func NewTemplateController(templateService service.ITemplateService) *TemplateController {
	return &TemplateController{
		templateService: templateService,
	}
}

// RegisterRoutes registers the API routes
func (tc *TemplateController) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.POST("", tc.CreateTemplate)
		templates.PUT("/:id", tc.UpdateTemplate)
		templates.DELETE("/:id", tc.DeleteTemplate)
		templates.GET("/:id", tc.GetTemplate)
		templates.GET("", tc.ListTemplates)
	}
}

// CreateTemplate endpoint
func (tc *TemplateController) CreateTemplate(c *gin.Context) {
	var template model.Template
	if err := c.ShouldBindJSON(&template); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid template data", wardenerrors.ErrInvalidTemplateData)
		return
	}

	createdTemplate, err := tc.templateService.CreateTemplate(c, template)
	if err != nil {
		switch err {
		case wardenerrors.ErrTemplateConflict:
			util.RespondWithError(c, http.StatusConflict, "Template already exists", err)
		case wardenerrors.ErrDatabaseOperation:
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create template", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdTemplate)
}

// UpdateTemplate endpoint
func (tc *TemplateController) UpdateTemplate(c *gin.Context) {
	templateID := c.Param("id")
	var template model.Template
	if err := c.ShouldBindJSON(&template); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid template data", err)
		return
	}
	template.ID = templateID

	updatedTemplate, err := tc.templateService.UpdateTemplate(c, template)
	if err != nil {
		switch err {
		case wardenerrors.ErrTemplateNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Template not found", err)
		case wardenerrors.ErrDatabaseOperation:
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to update template", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedTemplate)
}

// DeleteTemplate endpoint
func (tc *TemplateController) DeleteTemplate(c *gin.Context) {
	templateID := c.Param("id")

	if err := tc.templateService.DeleteTemplate(c, templateID); err != nil {
		switch err {
		case wardenerrors.ErrTemplateNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Template not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete template", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTemplate endpoint
func (tc *TemplateController) GetTemplate(c *gin.Context) {
	templateID := c.Param("id")

	template, err := tc.templateService.GetTemplate(c, templateID)
	if err != nil {
		switch err {
		case wardenerrors.ErrTemplateNotFound:
			util.RespondWithError(c, http.StatusNotFound, "Template not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve template", err)
		}
		return
	}

	c.JSON(http.StatusOK, template)
}

// ListTemplates endpoint
func (tc *TemplateController) ListTemplates(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	templates, err := tc.templateService.ListTemplates(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	c.JSON(http.StatusOK, templates)
}
