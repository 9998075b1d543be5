// api/dao/template_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/warden-labs/warden/api/db"
	wardenerrors "github.com/warden-labs/warden/api/errors"
	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
)

type TemplateDAO struct {
	Driver neo4j.Driver
}

func NewTemplateDAO(driver neo4j.Driver) *TemplateDAO {
	dao := &TemplateDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Template ID
func (dao *TemplateDAO) EnsureUniqueConstraint(ctx context.Context) error {
	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_template_id IF NOT EXISTS
        FOR (t:TEMPLATE) REQUIRE t.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Template ID", zap.Error(err))
		return err
	}
	return nil
}

// CreateTemplate creates a new template node in Neo4j. Rule lists are
// JSON-encoded into node properties; the graph stores templates, the
// evaluator owns their semantics.
func (dao *TemplateDAO) CreateTemplate(ctx context.Context, template model.Template) (string, error) {
	start := time.Now()
	logger.Info("Creating new template", zap.String("templateName", template.Name))

	if template.ID == "" {
		template.ID = uuid.New().String()
	}

	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (t:TEMPLATE {id: $id})
        RETURN t.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": template.ID})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, wardenerrors.ErrTemplateConflict
		}

		createQuery := `
            MERGE (t:TEMPLATE {id: $id})
            ON CREATE SET t += $props
            RETURN t.id as id
        `

		props, err := templateProps(template)
		if err != nil {
			return nil, err
		}

		result, err := transaction.Run(createQuery, map[string]interface{}{
			"id":    template.ID,
			"props": props,
		})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		return result.Record().Values[0], nil
	})
	if err != nil {
		logger.Error("Failed to create template",
			zap.Error(err),
			zap.String("templateName", template.Name),
			zap.Duration("duration", time.Since(start)))
		return "", err
	}

	logger.Info("Template created successfully",
		zap.String("templateID", template.ID),
		zap.Duration("duration", time.Since(start)))
	return template.ID, nil
}

// GetTemplate retrieves a template by id.
func (dao *TemplateDAO) GetTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	result, err := db.ExecuteReadTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (t:TEMPLATE {id: $id})
        RETURN t
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": templateID})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if !records.Next() {
			return nil, wardenerrors.ErrTemplateNotFound
		}
		node := records.Record().Values[0].(neo4j.Node)
		return templateFromProps(node.Props)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Template), nil
}

// UpdateTemplate replaces the stored definition and bumps the version.
func (dao *TemplateDAO) UpdateTemplate(ctx context.Context, template model.Template) error {
	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		props, err := templateProps(template)
		if err != nil {
			return nil, err
		}
		delete(props, "created_at")

		query := `
        MATCH (t:TEMPLATE {id: $id})
        SET t += $props, t.version = coalesce(t.version, 0) + 1
        RETURN t.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":    template.ID,
			"props": props,
		})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, wardenerrors.ErrTemplateNotFound
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to update template", zap.Error(err), zap.String("templateID", template.ID))
	}
	return err
}

// DeleteTemplate removes a template node.
func (dao *TemplateDAO) DeleteTemplate(ctx context.Context, templateID string) error {
	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (t:TEMPLATE {id: $id})
        WITH t, t.id as id
        DETACH DELETE t
        RETURN id
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": templateID})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, wardenerrors.ErrTemplateNotFound
		}
		return nil, nil
	})
	return err
}

// ListTemplates returns templates, most recently created first.
func (dao *TemplateDAO) ListTemplates(ctx context.Context, limit, offset int) ([]*model.Template, error) {
	result, err := db.ExecuteReadTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (t:TEMPLATE)
        RETURN t
        ORDER BY t.created_at DESC
        SKIP $offset LIMIT $limit
        `
		records, err := transaction.Run(query, map[string]interface{}{"limit": limit, "offset": offset})
		if err != nil {
			return nil, wardenerrors.ErrDatabaseOperation
		}

		var templates []*model.Template
		for records.Next() {
			node := records.Record().Values[0].(neo4j.Node)
			t, err := templateFromProps(node.Props)
			if err != nil {
				logger.Warn("Skipping undecodable template node", zap.Error(err))
				continue
			}
			templates = append(templates, t)
		}
		return templates, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*model.Template), nil
}

func templateProps(template model.Template) (map[string]interface{}, error) {
	authJSON, err := json.Marshal(template.Authorization)
	if err != nil {
		return nil, fmt.Errorf("failed to encode authorization rule: %w", err)
	}
	rateJSON, err := json.Marshal(template.RateLimits)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rate-limit rules: %w", err)
	}
	timingJSON, err := json.Marshal(template.Timing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode timing rules: %w", err)
	}
	modeJSON, err := json.Marshal(template.ExecutionMode)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution mode: %w", err)
	}

	return map[string]interface{}{
		"name":           template.Name,
		"description":    template.Description,
		"tags":           template.Tags,
		"authorization":  string(authJSON),
		"rate_limits":    string(rateJSON),
		"timing":         string(timingJSON),
		"execution_mode": string(modeJSON),
		"version":        template.Version,
		"created_at":     time.Now().UTC().Format(time.RFC3339),
		"updated_at":     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func templateFromProps(props map[string]interface{}) (*model.Template, error) {
	t := &model.Template{}
	t.ID, _ = props["id"].(string)
	t.Name, _ = props["name"].(string)
	t.Description, _ = props["description"].(string)
	if tags, ok := props["tags"].([]interface{}); ok {
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				t.Tags = append(t.Tags, s)
			}
		}
	}
	if v, ok := props["version"].(int64); ok {
		t.Version = int(v)
	}

	if raw, ok := props["authorization"].(string); ok && raw != "" && raw != "null" {
		var rule model.Rule
		if err := json.Unmarshal([]byte(raw), &rule); err != nil {
			return nil, fmt.Errorf("failed to decode authorization rule: %w", err)
		}
		t.Authorization = &rule
	}
	if raw, ok := props["rate_limits"].(string); ok && raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &t.RateLimits); err != nil {
			return nil, fmt.Errorf("failed to decode rate-limit rules: %w", err)
		}
	}
	if raw, ok := props["timing"].(string); ok && raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &t.Timing); err != nil {
			return nil, fmt.Errorf("failed to decode timing rules: %w", err)
		}
	}
	if raw, ok := props["execution_mode"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &t.ExecutionMode); err != nil {
			return nil, fmt.Errorf("failed to decode execution mode: %w", err)
		}
	}

	if raw, ok := props["created_at"].(string); ok {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			t.CreatedAt = at
		}
	}
	if raw, ok := props["updated_at"].(string); ok {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			t.UpdatedAt = at
		}
	}
	return t, nil
}
