// Package sequence allocates monotonically increasing order numbers
// from a single counter row, one number per call, safe under
// concurrent allocators.
package sequence

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/models"
)

// ErrRetriesExhausted is returned when the counter transaction keeps
// aborting on contention past the configured retry limit.
var ErrRetriesExhausted = errors.New("sequence: retries exhausted")

const defaultMaxRetries = 3

// Allocator hands out the next order number for a named counter.
type Allocator struct {
	db         *gorm.DB
	name       string
	maxRetries int
}

// New returns an allocator for the given counter name. retries <= 0
// falls back to the default limit.
func New(db *gorm.DB, name string, retries int) *Allocator {
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &Allocator{db: db, name: name, maxRetries: retries}
}

// Next reserves and returns the next value. The read-increment-write
// happens inside one transaction with the counter row locked, so two
// concurrent callers never see the same value. Transient aborts
// (serialization failures, sqlite busy) are retried with a short
// backoff; exhaustion returns ErrRetriesExhausted.
func (a *Allocator) Next(ctx context.Context) (int64, error) {
	var next int64
	err := a.withRetry(ctx, func(ctx context.Context) error {
		n, err := a.nextOnce(ctx)
		if err != nil {
			return err
		}
		next = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Advance raises the counter to at least n. Callers that accept an
// order number from outside the sequence must advance past it, or
// Next would eventually hand the same number out again.
func (a *Allocator) Advance(ctx context.Context, n int64) error {
	return a.withRetry(ctx, func(ctx context.Context) error {
		return a.advanceOnce(ctx, n)
	})
}

func (a *Allocator) withRetry(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
			}
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return errors.Join(ErrRetriesExhausted, lastErr)
}

func (a *Allocator) nextOnce(ctx context.Context) (int64, error) {
	var next int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The UPDATE takes the row lock, so the read that follows sees
		// our own increment and nobody else's.
		res := tx.Model(&models.Counter{}).
			Where("name = ?", a.name).
			Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// First allocation ever: create the counter at 1. A
			// concurrent first allocation loses on the primary key and
			// retries into the UPDATE path.
			if err := tx.Create(&models.Counter{Name: a.name, Value: 1}).Error; err != nil {
				return err
			}
			next = 1
			return nil
		}
		var c models.Counter
		if err := tx.Where("name = ?", a.name).First(&c).Error; err != nil {
			return err
		}
		next = c.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (a *Allocator) advanceOnce(ctx context.Context, n int64) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Counter{}).
			Where("name = ? AND value < ?", a.name, n).
			Update("value", n)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// Either the counter is already at or past n, or it does not
		// exist yet.
		var c models.Counter
		err := tx.Where("name = ?", a.name).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.Counter{Name: a.name, Value: n}).Error
		}
		return err
	})
}

// retryable matches the store's contention signatures: postgres
// serialization/deadlock aborts and sqlite busy locks. Anything else
// is surfaced immediately.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlstate 40001"),
		strings.Contains(msg, "sqlstate 40p01"),
		strings.Contains(msg, "deadlock detected"),
		strings.Contains(msg, "could not serialize access"):
		return true
	}
	// Unique violation on the lazy counter insert: another caller
	// created the row first, the retry will lock it instead.
	return strings.Contains(msg, "unique") && strings.Contains(msg, "counters")
}
