// api/model/template.go
package model

import (
	"fmt"
	"time"
)

// ExecutionModeKind selects how an approved action is scheduled.
type ExecutionModeKind string

const (
	ExecutionImmediate  ExecutionModeKind = "immediate"
	ExecutionDelayed    ExecutionModeKind = "delayed"
	ExecutionOptimistic ExecutionModeKind = "optimistic"
)

// ExecutionMode is scheduling configuration attached to a template. The
// challenge bond is advisory data for the settlement layer, not enforced
// during evaluation.
type ExecutionMode struct {
	Kind                   ExecutionModeKind `json:"kind"`
	Confirmations          int               `json:"confirmations,omitempty"`
	DelaySeconds           int64             `json:"delaySeconds,omitempty"`
	Cancellable            bool              `json:"cancellable,omitempty"`
	ChallengePeriodSeconds int64             `json:"challengePeriodSeconds,omitempty"`
	ChallengeBond          *Amount           `json:"challengeBond,omitempty"`
}

func (m ExecutionMode) Validate() error {
	switch m.Kind {
	case ExecutionImmediate:
		if m.Confirmations < 0 {
			return fmt.Errorf("confirmations must be non-negative, got %d", m.Confirmations)
		}
	case ExecutionDelayed:
		if m.DelaySeconds <= 0 {
			return fmt.Errorf("delaySeconds must be positive, got %d", m.DelaySeconds)
		}
	case ExecutionOptimistic:
		if m.ChallengePeriodSeconds <= 0 {
			return fmt.Errorf("challengePeriodSeconds must be positive, got %d", m.ChallengePeriodSeconds)
		}
	default:
		return fmt.Errorf("unknown execution mode %q", m.Kind)
	}
	return nil
}

// Template is a named, composed set of rules plus an execution mode. Built
// once via TemplateBuilder, then treated as immutable configuration for
// repeated evaluation.
type Template struct {
	ID            string        `json:"id,omitempty"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Authorization *Rule         `json:"authorization,omitempty"`
	RateLimits    []Rule        `json:"rateLimits,omitempty"`
	Timing        []Rule        `json:"timing,omitempty"`
	ExecutionMode ExecutionMode `json:"executionMode"`
	Version       int           `json:"version,omitempty"`
	CreatedAt     time.Time     `json:"created_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at,omitempty"`
}

// TemplateBuilder assembles a template step by step. Build validates the
// whole composition and returns an immutable Template.
type TemplateBuilder struct {
	template Template
	err      error
}

func NewTemplateBuilder(name string) *TemplateBuilder {
	return &TemplateBuilder{template: Template{Name: name}}
}

func (b *TemplateBuilder) WithDescription(description string) *TemplateBuilder {
	b.template.Description = description
	return b
}

func (b *TemplateBuilder) WithTags(tags ...string) *TemplateBuilder {
	b.template.Tags = append(b.template.Tags, tags...)
	return b
}

// WithAuthorization sets the zero-or-one authorization rule.
func (b *TemplateBuilder) WithAuthorization(rule Rule) *TemplateBuilder {
	if b.template.Authorization != nil && b.err == nil {
		b.err = fmt.Errorf("template %q already has an authorization rule", b.template.Name)
		return b
	}
	b.template.Authorization = &rule
	return b
}

// AddRateLimit appends a rate-limit rule; declaration order is evaluation order.
func (b *TemplateBuilder) AddRateLimit(rule Rule) *TemplateBuilder {
	b.template.RateLimits = append(b.template.RateLimits, rule)
	return b
}

// AddTiming appends a timing rule; declaration order is evaluation order.
func (b *TemplateBuilder) AddTiming(rule Rule) *TemplateBuilder {
	b.template.Timing = append(b.template.Timing, rule)
	return b
}

func (b *TemplateBuilder) WithExecutionMode(mode ExecutionMode) *TemplateBuilder {
	b.template.ExecutionMode = mode
	return b
}

// Build validates and returns the composed template.
func (b *TemplateBuilder) Build() (*Template, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.template.Name == "" {
		return nil, fmt.Errorf("template name cannot be empty")
	}
	if err := b.template.ExecutionMode.Validate(); err != nil {
		return nil, fmt.Errorf("template %q: %w", b.template.Name, err)
	}
	t := b.template
	return &t, nil
}
