// test/mock/evaluation.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/warden-labs/warden/api/policy/checker"
	"github.com/warden-labs/warden/api/policy/execution"
	"github.com/warden-labs/warden/api/service"
)

// MockEvaluationService is a mock implementation of service.IEvaluationService
type MockEvaluationService struct {
	mock.Mock
}

func (m *MockEvaluationService) Evaluate(ctx context.Context, req service.EvaluationRequest) (*service.EvaluationOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EvaluationOutcome), args.Error(1)
}

func (m *MockEvaluationService) ResolveApproval(ctx context.Context, requestID, actor string, approved bool) error {
	args := m.Called(ctx, requestID, actor, approved)
	return args.Error(0)
}

func (m *MockEvaluationService) CancelApproval(ctx context.Context, requestID, actor string) error {
	args := m.Called(ctx, requestID, actor)
	return args.Error(0)
}

func (m *MockEvaluationService) PendingApprovals() []*checker.PendingRequest {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*checker.PendingRequest)
}

func (m *MockEvaluationService) GetScheduledAction(id string) (*execution.ScheduledAction, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*execution.ScheduledAction), args.Bool(1)
}

func (m *MockEvaluationService) CancelScheduledAction(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockEvaluationService) ReportExecuted(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockEvaluationService) ReportChallenge(id string) error {
	args := m.Called(id)
	return args.Error(0)
}
