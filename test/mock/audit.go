// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/warden-labs/warden/api/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogVerdict(ctx context.Context, log audit.VerdictLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditService) QueryVerdicts(ctx context.Context, from, to time.Time, sender, templateID string) ([]audit.VerdictLog, error) {
	args := m.Called(ctx, from, to, sender, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.VerdictLog), args.Error(1)
}
