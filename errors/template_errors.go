// api/errors/template_errors.go
package errors

import "errors"

var (
	ErrTemplateNotFound      = errors.New("template not found")
	ErrTemplateConflict      = errors.New("template conflict")
	ErrDatabaseOperation     = errors.New("database operation failed")
	ErrInvalidTemplateData   = errors.New("invalid template data")
	ErrInternalServer        = errors.New("internal server error")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")
)
