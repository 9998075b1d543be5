// api/policy/execution/mode.go

// Package execution decides how an approved action is scheduled: run now,
// queue behind a delay, or hold open for an optimistic challenge period.
// Funds never move here; terminal states are reached only when the external
// execution collaborator reports back.
package execution

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/warden-labs/warden/api/logging"
	"github.com/warden-labs/warden/api/model"
)

// State is the scheduling position of one approved action.
type State string

const (
	StatePending           State = "pending"
	StateImmediateExecuted State = "immediate-executed"
	StateQueued            State = "queued"
	StatePendingChallenge  State = "pending-challenge-period"
	StateExecuted          State = "executed"
	StateCancelled         State = "cancelled"
	StateChallenged        State = "challenged"
)

// ScheduledAction tracks one approved action through the scheduling state
// machine. ChallengeBond is advisory data for the settlement layer.
type ScheduledAction struct {
	ID                string                  `json:"id"`
	TemplateID        string                  `json:"templateId,omitempty"`
	Mode              model.ExecutionModeKind `json:"mode"`
	State             State                   `json:"state"`
	CreatedAt         int64                   `json:"createdAt"`
	ExecuteAt         int64                   `json:"executeAt,omitempty"`
	ChallengeDeadline int64                   `json:"challengeDeadline,omitempty"`
	Confirmations     int                     `json:"confirmations,omitempty"`
	Cancellable       bool                    `json:"cancellable,omitempty"`
	ChallengeBond     *model.Amount           `json:"challengeBond,omitempty"`
}

// Scheduler applies an execution mode to approved actions and tracks their
// lifecycle until the execution collaborator reports completion.
type Scheduler struct {
	mu      sync.Mutex
	actions map[string]*ScheduledAction
}

func NewScheduler() *Scheduler {
	return &Scheduler{actions: make(map[string]*ScheduledAction)}
}

// Schedule transitions a pending approved action according to the mode:
// immediate executes now, delayed queues until now+delay, optimistic opens a
// challenge window.
func (s *Scheduler) Schedule(templateID string, mode model.ExecutionMode, now int64) (*ScheduledAction, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	action := &ScheduledAction{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Mode:       mode.Kind,
		State:      StatePending,
		CreatedAt:  now,
	}

	switch mode.Kind {
	case model.ExecutionImmediate:
		action.State = StateImmediateExecuted
		action.Confirmations = mode.Confirmations

	case model.ExecutionDelayed:
		action.State = StateQueued
		action.ExecuteAt = now + mode.DelaySeconds*1000
		action.Cancellable = mode.Cancellable

	case model.ExecutionOptimistic:
		action.State = StatePendingChallenge
		action.ChallengeDeadline = now + mode.ChallengePeriodSeconds*1000
		action.ChallengeBond = mode.ChallengeBond
	}

	s.mu.Lock()
	s.actions[action.ID] = action
	s.mu.Unlock()

	logger.Info("Action scheduled",
		zap.String("actionID", action.ID),
		zap.String("mode", string(mode.Kind)),
		zap.String("state", string(action.State)))
	return action, nil
}

// Get returns a tracked action.
func (s *Scheduler) Get(id string) (*ScheduledAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	return a, ok
}

// Cancel aborts a queued action before its execution time. Only delayed,
// cancellable actions can be cancelled.
func (s *Scheduler) Cancel(id string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return fmt.Errorf("unknown scheduled action %q", id)
	}
	if a.State != StateQueued {
		return fmt.Errorf("action %s is %s, only queued actions can be cancelled", id, a.State)
	}
	if !a.Cancellable {
		return fmt.Errorf("action %s is not cancellable", id)
	}
	if now >= a.ExecuteAt {
		return fmt.Errorf("action %s passed its execution time", id)
	}
	a.State = StateCancelled
	return nil
}

// ReportExecuted records the external collaborator's completion report for a
// queued or challenge-windowed action.
func (s *Scheduler) ReportExecuted(id string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return fmt.Errorf("unknown scheduled action %q", id)
	}
	switch a.State {
	case StateQueued:
		if now < a.ExecuteAt {
			return fmt.Errorf("action %s is queued until %d", id, a.ExecuteAt)
		}
	case StatePendingChallenge:
		if now < a.ChallengeDeadline {
			return fmt.Errorf("action %s is challengeable until %d", id, a.ChallengeDeadline)
		}
	default:
		return fmt.Errorf("action %s is %s, nothing to execute", id, a.State)
	}
	a.State = StateExecuted
	return nil
}

// ReportChallenge records a challenge raised inside the challenge window.
// Resolution of the challenge itself belongs to the settlement layer.
func (s *Scheduler) ReportChallenge(id string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return fmt.Errorf("unknown scheduled action %q", id)
	}
	if a.State != StatePendingChallenge {
		return fmt.Errorf("action %s is %s, not awaiting challenges", id, a.State)
	}
	if now >= a.ChallengeDeadline {
		return fmt.Errorf("challenge window for %s closed at %d", id, a.ChallengeDeadline)
	}
	a.State = StateChallenged
	return nil
}
