// api/policy/state/memory.go

package state

import (
	"context"
	"sync"

	"github.com/warden-labs/warden/api/model"
)

type weightedExecution struct {
	at     int64
	amount *model.Amount
}

// MemoryStore is an in-process Store for single-node deployments and tests.
// One mutex guards all keys; every read-compare-increment runs under it, so
// the atomicity contract holds trivially.
type MemoryStore struct {
	mu         sync.Mutex
	executions map[string][]int64
	sums       map[string][]weightedExecution
	spent      map[string]*model.Amount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		executions: make(map[string][]int64),
		sums:       make(map[string][]weightedExecution),
		spent:      make(map[string]*model.Amount),
	}
}

func (s *MemoryStore) GetExecutionCount(ctx context.Context, key string, windowMs, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(key, windowMs, now), nil
}

func (s *MemoryStore) GetWindowSum(ctx context.Context, key string, windowMs, now int64) (*model.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(key, windowMs, now), nil
}

func (s *MemoryStore) GetLastExecution(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.executions[key]
	if len(entries) == 0 {
		return 0, false, nil
	}
	last := entries[0]
	for _, at := range entries[1:] {
		if at > last {
			last = at
		}
	}
	return last, true, nil
}

func (s *MemoryStore) RecordExecution(ctx context.Context, key string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[key] = append(s.executions[key], at)
	return nil
}

func (s *MemoryStore) RecordSum(ctx context.Context, key string, at int64, amount *model.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sums[key] = append(s.sums[key], weightedExecution{at: at, amount: amount})
	return nil
}

func (s *MemoryStore) GetDailySpent(ctx context.Context, sender, date string) (*model.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, ok := s.spent[sender+"|"+date]
	if !ok {
		return model.MustAmount("0"), nil
	}
	return total, nil
}

func (s *MemoryStore) RecordSpent(ctx context.Context, sender, date string, amount *model.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sender + "|" + date
	total, ok := s.spent[key]
	if !ok {
		total = model.MustAmount("0")
	}
	s.spent[key] = total.Add(amount)
	return nil
}

func (s *MemoryStore) CheckAndRecord(ctx context.Context, key string, windowMs, now, limit int64) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.countLocked(key, windowMs, now)
	if count >= limit {
		return false, count, nil
	}
	s.executions[key] = append(s.executions[key], now)
	return true, count + 1, nil
}

func (s *MemoryStore) CheckAndRecordSum(ctx context.Context, key string, windowMs, now int64, amount, max *model.Amount) (bool, *model.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := s.sumLocked(key, windowMs, now)
	if sum.Add(amount).Cmp(max) > 0 {
		return false, sum, nil
	}
	s.sums[key] = append(s.sums[key], weightedExecution{at: now, amount: amount})
	return true, sum, nil
}

func (s *MemoryStore) CheckAndRecordSpent(ctx context.Context, sender, date string, amount, max *model.Amount) (bool, *model.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sender + "|" + date
	total, ok := s.spent[key]
	if !ok {
		total = model.MustAmount("0")
	}
	if total.Add(amount).Cmp(max) > 0 {
		return false, total, nil
	}
	s.spent[key] = total.Add(amount)
	return true, total, nil
}

func (s *MemoryStore) ReleaseExecution(ctx context.Context, key string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.executions[key]
	for i, e := range entries {
		if e == at {
			s.executions[key] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) ReleaseSum(ctx context.Context, key string, at int64, amount *model.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.sums[key]
	for i, e := range entries {
		if e.at == at && e.amount.Cmp(amount) == 0 {
			s.sums[key] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) ReleaseSpent(ctx context.Context, sender, date string, amount *model.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sender + "|" + date
	total, ok := s.spent[key]
	if !ok {
		return nil
	}
	s.spent[key] = total.Sub(amount)
	return nil
}

// sumLocked prunes weighted entries outside the window and totals the
// remainder. Caller holds the mutex.
func (s *MemoryStore) sumLocked(key string, windowMs, now int64) *model.Amount {
	cutoff := now - windowMs
	kept := s.sums[key][:0]
	sum := model.MustAmount("0")
	for _, e := range s.sums[key] {
		if e.at <= cutoff {
			continue
		}
		kept = append(kept, e)
		sum = sum.Add(e.amount)
	}
	s.sums[key] = kept
	return sum
}

// countLocked prunes entries outside the window and returns the remainder.
// Caller holds the mutex.
func (s *MemoryStore) countLocked(key string, windowMs, now int64) int64 {
	cutoff := now - windowMs
	kept := s.executions[key][:0]
	for _, at := range s.executions[key] {
		if at > cutoff {
			kept = append(kept, at)
		}
	}
	s.executions[key] = kept
	return int64(len(kept))
}
