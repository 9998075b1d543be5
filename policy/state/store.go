// api/policy/state/store.go

package state

import (
	"context"

	"github.com/warden-labs/warden/api/model"
)

// Store is the external mutable storage consulted by stateful checkers:
// sliding-window execution counts, cumulative window sums (value, gas),
// last-execution timestamps and daily spend totals.
//
// Checks are pure reads; mutations are invoked separately, only after the
// gated action is committed. The read-then-compare-then-increment sequence
// for a key must be atomic, which the CheckAndRecord family provides: two
// concurrent callers must never both observe "one slot remaining" and both
// proceed. The Release methods compensate a granted reservation when a later
// rule in the same commit pass denies.
type Store interface {
	// GetExecutionCount returns how many executions were recorded for key
	// within the windowMs preceding now (both unix ms).
	GetExecutionCount(ctx context.Context, key string, windowMs, now int64) (int64, error)

	// GetWindowSum returns the cumulative amount recorded for key within the
	// window. Used by value- and gas-limit rules, which track quantity
	// rather than raw counts.
	GetWindowSum(ctx context.Context, key string, windowMs, now int64) (*model.Amount, error)

	// GetLastExecution returns the most recent execution timestamp for key,
	// with ok=false when the key has never executed.
	GetLastExecution(ctx context.Context, key string) (int64, bool, error)

	// RecordExecution appends an execution at the given timestamp.
	RecordExecution(ctx context.Context, key string, at int64) error

	// RecordSum appends a weighted execution (value or gas) at the timestamp.
	RecordSum(ctx context.Context, key string, at int64, amount *model.Amount) error

	// GetDailySpent returns the total recorded spend for the sender on the
	// given UTC date (YYYY-MM-DD). Dates never seen return zero.
	GetDailySpent(ctx context.Context, sender, date string) (*model.Amount, error)

	// RecordSpent adds amount to the sender's total for the UTC date.
	RecordSpent(ctx context.Context, sender, date string, amount *model.Amount) error

	// CheckAndRecord atomically verifies that fewer than limit executions
	// fall inside the window and, only if so, records one at now. Returns
	// whether the slot was granted and the count observed.
	CheckAndRecord(ctx context.Context, key string, windowMs, now, limit int64) (bool, int64, error)

	// CheckAndRecordSum atomically verifies that the window sum plus amount
	// stays within max and, only if so, records the weighted execution at
	// now. Returns whether it was granted and the sum observed beforehand.
	CheckAndRecordSum(ctx context.Context, key string, windowMs, now int64, amount, max *model.Amount) (bool, *model.Amount, error)

	// CheckAndRecordSpent atomically verifies that the sender's total for
	// the UTC date plus amount stays within max and, only if so, adds it.
	// Returns whether it was granted and the total observed beforehand.
	CheckAndRecordSpent(ctx context.Context, sender, date string, amount, max *model.Amount) (bool, *model.Amount, error)

	// ReleaseExecution removes one execution recorded at the timestamp.
	ReleaseExecution(ctx context.Context, key string, at int64) error

	// ReleaseSum removes one weighted execution recorded at the timestamp
	// with the given amount.
	ReleaseSum(ctx context.Context, key string, at int64, amount *model.Amount) error

	// ReleaseSpent subtracts amount from the sender's total for the date.
	ReleaseSpent(ctx context.Context, sender, date string, amount *model.Amount) error
}
