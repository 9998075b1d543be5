// api/audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	LogVerdict(ctx context.Context, log VerdictLog) error
	QueryVerdicts(ctx context.Context, from, to time.Time, sender, templateID string) ([]VerdictLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogVerdict(ctx context.Context, log VerdictLog) error {
	return s.repo.LogVerdict(ctx, log)
}

func (s *service) QueryVerdicts(ctx context.Context, from, to time.Time, sender, templateID string) ([]VerdictLog, error) {
	return s.repo.QueryVerdicts(ctx, from, to, sender, templateID)
}
