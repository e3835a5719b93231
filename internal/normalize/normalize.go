// Package normalize maps raw source records onto the internal currency set
// and canonical two-digit decimal prices.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/source"
)

// Places is the number of fractional digits kept for every price.
const Places = 2

// Error reports a record whose price could not be parsed. It is scoped to
// that record only.
type Error struct {
	Source model.Source
	Token  string
	Field  string // "bid" or "ask"
	Value  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s %s: %s %q: %v", e.Source, e.Token, e.Field, e.Value, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	errEmpty    = errors.New("empty value")
	errNegative = errors.New("negative value")
)

// Normalizer converts RawQuotes to Quotes using each source's mapping table.
type Normalizer struct {
	descs map[model.Source]source.Descriptor
	now   func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the time source used for ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer for the given descriptors.
func New(descs []source.Descriptor, opts ...Option) *Normalizer {
	n := &Normalizer{
		descs: make(map[model.Source]source.Descriptor, len(descs)),
		now:   time.Now,
	}
	for _, d := range descs {
		n.descs[d.ID()] = d
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps raw to a Quote. ok is false when the token is not in the
// source's mapping table; the record should then be discarded silently.
// A non-nil error is always a *Error.
func (n *Normalizer) Normalize(src model.Source, raw model.RawQuote) (q model.Quote, ok bool, err error) {
	desc, found := n.descs[src]
	if !found {
		return model.Quote{}, false, nil
	}
	currency, found := desc.Lookup(strings.TrimSpace(raw.Token))
	if !found {
		return model.Quote{}, false, nil
	}

	bid, err := ParseValue(raw.Bid)
	if err != nil {
		return model.Quote{}, false, &Error{Source: src, Token: raw.Token, Field: "bid", Value: raw.Bid, Err: err}
	}
	ask, err := ParseValue(raw.Ask)
	if err != nil {
		return model.Quote{}, false, &Error{Source: src, Token: raw.Token, Field: "ask", Value: raw.Ask, Err: err}
	}

	return model.Quote{
		Source:     src,
		Currency:   currency,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: n.now().UTC(),
	}, true, nil
}

// ParseValue parses a native price and rounds it to two places, half away
// from zero. Surrounding and grouping spaces are ignored and a lone decimal
// comma is accepted ("27,50").
func ParseValue(s string) (decimal.Decimal, error) {
	v := strings.Join(strings.Fields(s), "")
	if v == "" {
		return decimal.Decimal{}, errEmpty
	}
	if !strings.Contains(v, ".") && strings.Count(v, ",") == 1 {
		v = strings.Replace(v, ",", ".", 1)
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errNegative
	}
	return Round(d), nil
}

// Round rounds d to two places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
