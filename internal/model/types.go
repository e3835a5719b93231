package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Enumerations
// -----------------------------------------------------------------------------

// Source identifies an external rate provider.
type Source string

const (
	SourcePrivatBank Source = "privatbank"
	SourceMonoBank   Source = "monobank"
	SourceVkurse     Source = "vkurse"
	SourceMinfin     Source = "minfin"
	SourcePUMB       Source = "pumb"
)

// Sources lists every known source in a stable order.
func Sources() []Source {
	return []Source{SourcePrivatBank, SourceMonoBank, SourceVkurse, SourceMinfin, SourcePUMB}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourcePrivatBank, SourceMonoBank, SourceVkurse, SourceMinfin, SourcePUMB:
		return true
	}
	return false
}

func (s Source) String() string { return string(s) }

// ParseSource converts a string to a Source.
func ParseSource(v string) (Source, error) {
	s := Source(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown source %q", v)
	}
	return s, nil
}

// Currency is the normalized currency set. Raw source tokens never leave the
// normalizer; only these values are stored.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyUAH Currency = "UAH" // national baseline
)

// Currencies lists every supported currency.
func Currencies() []Currency {
	return []Currency{CurrencyUSD, CurrencyEUR, CurrencyUAH}
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyUAH:
		return true
	}
	return false
}

func (c Currency) String() string { return string(c) }

// ParseCurrency converts a string to a Currency.
func ParseCurrency(v string) (Currency, error) {
	c := Currency(v)
	if !c.Valid() {
		return "", fmt.Errorf("unknown currency %q", v)
	}
	return c, nil
}

// -----------------------------------------------------------------------------
// Rate Types
// -----------------------------------------------------------------------------

// RawQuote is a record as extracted by a source adapter, before normalization.
type RawQuote struct {
	Token string // Native currency token ("USD", "840", "Dollar")
	Bid   string // Native buy value, as text
	Ask   string // Native sell value, as text
}

// Quote is a normalized rate observation. Stored quotes are never mutated.
type Quote struct {
	ID         uuid.UUID       `json:"id"`
	Source     Source          `json:"source"`
	Currency   Currency        `json:"currency"`
	Bid        decimal.Decimal `json:"bid"` // Price the source buys at
	Ask        decimal.Decimal `json:"ask"` // Price the source sells at
	ObservedAt time.Time       `json:"observed_at"`
}

// Key returns the dedup key for the quote.
func (q Quote) Key() PairKey {
	return PairKey{Source: q.Source, Currency: q.Currency}
}

// PairKey identifies a (source, currency) series.
type PairKey struct {
	Source   Source
	Currency Currency
}

// -----------------------------------------------------------------------------
// Auxiliary Records
// -----------------------------------------------------------------------------

// Field limits for ContactMessage.
const (
	MaxEmailLen   = 32
	MaxSubjectLen = 128
	MaxMessageLen = 2047
)

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	EmailFrom string    `json:"email_from"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxPathLen bounds ResponseLog.Path.
const MaxPathLen = 255

// ResponseLog records one served HTTP response.
type ResponseLog struct {
	Path         string
	StatusCode   int
	ResponseTime int64 // milliseconds
	CreatedAt    time.Time
}
