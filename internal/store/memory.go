package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/bankrates/internal/model"
)

// MemoryRates is an in-process RateStore. Insertion order breaks ties on
// ObservedAt, matching the seq column of the SQL schema.
type MemoryRates struct {
	mu     sync.RWMutex
	quotes []model.Quote         // insertion order
	latest map[model.PairKey]int // index into quotes
}

// NewMemoryRates creates an empty MemoryRates.
func NewMemoryRates() *MemoryRates {
	return &MemoryRates{latest: make(map[model.PairKey]int)}
}

// Latest returns a copy of the newest quote for the pair, or nil.
func (s *MemoryRates) Latest(ctx context.Context, src model.Source, cur model.Currency) (*model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "latest", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.latest[model.PairKey{Source: src, Currency: cur}]
	if !ok {
		return nil, nil
	}
	q := s.quotes[i]
	return &q, nil
}

// Insert appends q.
func (s *MemoryRates) Insert(ctx context.Context, q model.Quote) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "insert", Err: err}
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes = append(s.quotes, q)
	idx := len(s.quotes) - 1
	if cur, ok := s.latest[q.Key()]; !ok || !q.ObservedAt.Before(s.quotes[cur].ObservedAt) {
		s.latest[q.Key()] = idx
	}
	return nil
}

// LatestAll returns the newest quote per pair, ordered by source then currency.
func (s *MemoryRates) LatestAll(ctx context.Context) ([]model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "latest all", Err: err}
	}
	s.mu.RLock()
	out := make([]model.Quote, 0, len(s.latest))
	for _, i := range s.latest {
		out = append(out, s.quotes[i])
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Quote) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Currency, b.Currency)
	})
	return out, nil
}

// List returns quotes matching f, newest first.
func (s *MemoryRates) List(ctx context.Context, f RateFilter) ([]model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "list rates", Err: err}
	}
	s.mu.RLock()
	matched := make([]model.Quote, 0)
	for i := len(s.quotes) - 1; i >= 0; i-- {
		q := s.quotes[i]
		if f.Source != "" && q.Source != f.Source {
			continue
		}
		if f.Currency != "" && q.Currency != f.Currency {
			continue
		}
		if !f.Bid.Match(q.Bid, decimal.Decimal.Cmp) || !f.Ask.Match(q.Ask, decimal.Decimal.Cmp) {
			continue
		}
		matched = append(matched, q)
	}
	s.mu.RUnlock()

	// Stable so equal ObservedAt keeps newest-insertion-first.
	slices.SortStableFunc(matched, func(a, b model.Quote) int {
		return b.ObservedAt.Compare(a.ObservedAt)
	})
	return paginate(matched, f.Limit, f.Offset), nil
}

// Len returns the number of stored quotes.
func (s *MemoryRates) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}

// MemoryContacts is an in-process ContactStore.
type MemoryContacts struct {
	mu   sync.RWMutex
	msgs []model.ContactMessage
}

// NewMemoryContacts creates an empty MemoryContacts.
func NewMemoryContacts() *MemoryContacts {
	return &MemoryContacts{}
}

// Create stores m. Zero ID and CreatedAt are filled in.
func (s *MemoryContacts) Create(ctx context.Context, m model.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "create contact", Err: err}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	return nil
}

// List returns messages matching f, newest first.
func (s *MemoryContacts) List(ctx context.Context, f ContactFilter) ([]model.ContactMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "list contacts", Err: err}
	}
	s.mu.RLock()
	matched := make([]model.ContactMessage, 0)
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if f.Created.Match(s.msgs[i].CreatedAt, time.Time.Compare) {
			matched = append(matched, s.msgs[i])
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b model.ContactMessage) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return paginate(matched, f.Limit, f.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	offset = pageOffset(offset)
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if n := pageLimit(limit); len(items) > n {
		items = items[:n]
	}
	return items
}

var (
	_ RateStore    = (*MemoryRates)(nil)
	_ RateReader   = (*MemoryRates)(nil)
	_ ContactStore = (*MemoryContacts)(nil)
)
