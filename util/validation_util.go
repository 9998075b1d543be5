// api/util/validation_util.go

package util

import (
	"fmt"

	"github.com/warden-labs/warden/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateTemplate(template model.Template) error {
	if template.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if template.Authorization == nil && len(template.RateLimits) == 0 && len(template.Timing) == 0 {
		return fmt.Errorf("template must contain at least one rule")
	}
	if template.Authorization != nil {
		if err := template.Authorization.Config.Validate(); err != nil {
			return fmt.Errorf("invalid authorization rule: %w", err)
		}
	}
	for i, rule := range template.RateLimits {
		if err := rule.Config.Validate(); err != nil {
			return fmt.Errorf("invalid rate-limit rule at index %d: %w", i, err)
		}
	}
	for i, rule := range template.Timing {
		if err := rule.Config.Validate(); err != nil {
			return fmt.Errorf("invalid timing rule at index %d: %w", i, err)
		}
	}
	if err := template.ExecutionMode.Validate(); err != nil {
		return fmt.Errorf("invalid execution mode: %w", err)
	}
	return nil
}

func (v *ValidationUtil) ValidateAction(action model.ActionInput) error {
	if action.Type == "" {
		return fmt.Errorf("action type cannot be empty")
	}
	if action.Sender == "" {
		return fmt.Errorf("action sender cannot be empty")
	}
	return nil
}
