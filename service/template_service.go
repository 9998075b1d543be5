// api/service/template_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warden-labs/warden/api/dao"
	wardenerrors "github.com/warden-labs/warden/api/errors"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/util"
)

type ITemplateService interface {
	CreateTemplate(ctx context.Context, template model.Template) (*model.Template, error)
	UpdateTemplate(ctx context.Context, template model.Template) (*model.Template, error)
	DeleteTemplate(ctx context.Context, templateID string) error
	GetTemplate(ctx context.Context, templateID string) (*model.Template, error)
	ListTemplates(ctx context.Context, limit int, offset int) ([]*model.Template, error)
}

// TemplateService handles business logic for template operations
type TemplateService struct {
	templateDAO    *dao.TemplateDAO
	validationUtil *util.ValidationUtil
	cacheService   *util.CacheService
	eventBus       *util.EventBus
}

// NewTemplateService creates a new instance of TemplateService
func NewTemplateService(templateDAO *dao.TemplateDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, eventBus *util.EventBus) *TemplateService {
	return &TemplateService{
		templateDAO:    templateDAO,
		validationUtil: validationUtil,
		cacheService:   cacheService,
		eventBus:       eventBus,
	}
}

// CreateTemplate validates and persists a new template
func (s *TemplateService) CreateTemplate(ctx context.Context, template model.Template) (*model.Template, error) {
	if err := s.validationUtil.ValidateTemplate(template); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	template.CreatedAt = time.Now().UTC()
	template.UpdatedAt = template.CreatedAt
	template.Version = 1

	templateID, err := s.templateDAO.CreateTemplate(ctx, template)
	if err != nil {
		logger.Error("Error creating template", zap.Error(err), zap.String("templateName", template.Name))
		return nil, err
	}
	template.ID = templateID

	if err := s.cacheService.SetTemplate(ctx, template); err != nil {
		logger.Warn("Failed to cache new template", zap.Error(err), zap.String("templateID", templateID))
	}

	s.eventBus.Publish(ctx, util.EventTemplateCreated, template)

	logger.Info("Template created successfully", zap.String("templateID", templateID))
	return &template, nil
}

// UpdateTemplate handles updates to an existing template
func (s *TemplateService) UpdateTemplate(ctx context.Context, template model.Template) (*model.Template, error) {
	if err := s.validationUtil.ValidateTemplate(template); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	oldTemplate, err := s.templateDAO.GetTemplate(ctx, template.ID)
	if err != nil {
		logger.Error("Error retrieving existing template", zap.Error(err), zap.String("templateID", template.ID))
		return nil, err
	}

	template.CreatedAt = oldTemplate.CreatedAt
	template.UpdatedAt = time.Now().UTC()
	template.Version = oldTemplate.Version + 1

	if err := s.templateDAO.UpdateTemplate(ctx, template); err != nil {
		logger.Error("Error updating template", zap.Error(err), zap.String("templateID", template.ID))
		return nil, err
	}

	if err := s.cacheService.SetTemplate(ctx, template); err != nil {
		logger.Warn("Failed to update template in cache", zap.Error(err), zap.String("templateID", template.ID))
	}

	s.eventBus.Publish(ctx, util.EventTemplateUpdated, map[string]interface{}{
		"old": *oldTemplate,
		"new": template,
	})

	logger.Info("Template updated successfully", zap.String("templateID", template.ID))
	return &template, nil
}

// DeleteTemplate handles the deletion of a template
func (s *TemplateService) DeleteTemplate(ctx context.Context, templateID string) error {
	if err := s.templateDAO.DeleteTemplate(ctx, templateID); err != nil {
		logger.Error("Error deleting template", zap.Error(err), zap.String("templateID", templateID))
		return err
	}

	if err := s.cacheService.DeleteTemplate(ctx, templateID); err != nil {
		logger.Warn("Failed to delete template from cache", zap.Error(err), zap.String("templateID", templateID))
	}

	s.eventBus.Publish(ctx, util.EventTemplateDeleted, templateID)

	logger.Info("Template deleted successfully", zap.String("templateID", templateID))
	return nil
}

// GetTemplate retrieves a template by its ID, cache first
func (s *TemplateService) GetTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	cachedTemplate, err := s.cacheService.GetTemplate(ctx, templateID)
	if err == nil && cachedTemplate != nil {
		return cachedTemplate, nil
	}

	template, err := s.templateDAO.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, wardenerrors.ErrTemplateNotFound) {
			return nil, wardenerrors.ErrTemplateNotFound
		}
		logger.Error("Error retrieving template", zap.Error(err), zap.String("templateID", templateID))
		return nil, wardenerrors.ErrInternalServer
	}

	if err := s.cacheService.SetTemplate(ctx, *template); err != nil {
		logger.Warn("Failed to cache template", zap.Error(err), zap.String("templateID", templateID))
	}

	return template, nil
}

// ListTemplates retrieves templates with pagination
func (s *TemplateService) ListTemplates(ctx context.Context, limit int, offset int) ([]*model.Template, error) {
	templates, err := s.templateDAO.ListTemplates(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing templates", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
