package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/bankrates/internal/model"
)

// RateStore is the persistence contract used by ingestion.
type RateStore interface {
	// Latest returns the most recent quote for the pair, or nil when none exists.
	Latest(ctx context.Context, src model.Source, cur model.Currency) (*model.Quote, error)

	// Insert persists q atomically. A zero ID is replaced with a new UUID.
	Insert(ctx context.Context, q model.Quote) error
}

// RateReader exposes the read paths used by the API and the latest-rates aggregate.
type RateReader interface {
	LatestAll(ctx context.Context) ([]model.Quote, error)
	List(ctx context.Context, f RateFilter) ([]model.Quote, error)
}

// ContactStore persists contact-form submissions.
type ContactStore interface {
	Create(ctx context.Context, m model.ContactMessage) error
	List(ctx context.Context, f ContactFilter) ([]model.ContactMessage, error)
}

// Error wraps a failure of the backing store.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DefaultListLimit caps List results when the filter sets no limit.
const DefaultListLimit = 100

// MaxListLimit is the largest page a caller may request.
const MaxListLimit = 1000

// Range is a set of optional comparison bounds on one column.
type Range[T any] struct {
	Lt    *T
	Lte   *T
	Gt    *T
	Gte   *T
	Exact *T
}

// IsZero reports whether no bound is set.
func (r Range[T]) IsZero() bool {
	return r.Lt == nil && r.Lte == nil && r.Gt == nil && r.Gte == nil && r.Exact == nil
}

// RateFilter selects quotes for List.
type RateFilter struct {
	Source   model.Source   // empty matches all
	Currency model.Currency // empty matches all
	Bid      Range[decimal.Decimal]
	Ask      Range[decimal.Decimal]
	Limit    int
	Offset   int
}

// ContactFilter selects contact messages for List.
type ContactFilter struct {
	Created Range[time.Time]
	Limit   int
	Offset  int
}

func pageLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	}
	return n
}

func pageOffset(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Match reports whether v satisfies every bound set on r.
func (r Range[T]) Match(v T, cmp func(a, b T) int) bool {
	if r.Lt != nil && cmp(v, *r.Lt) >= 0 {
		return false
	}
	if r.Lte != nil && cmp(v, *r.Lte) > 0 {
		return false
	}
	if r.Gt != nil && cmp(v, *r.Gt) <= 0 {
		return false
	}
	if r.Gte != nil && cmp(v, *r.Gte) < 0 {
		return false
	}
	if r.Exact != nil && cmp(v, *r.Exact) != 0 {
		return false
	}
	return true
}
