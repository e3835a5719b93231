package source

import (
	"context"
	"fmt"
	"maps"

	"github.com/rickgao/bankrates/internal/config"
	"github.com/rickgao/bankrates/internal/fetch"
	"github.com/rickgao/bankrates/internal/model"
)

// Adapter fetches raw quotes from one source.
type Adapter interface {
	Source() model.Source
	Fetch(ctx context.Context) ([]model.RawQuote, error)
}

// FetchError reports that a source was unusable for this cycle.
type FetchError struct {
	Source model.Source
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Shape describes the response format of a source.
type Shape int

const (
	ShapeJSON Shape = iota
	ShapeHTMLTable
	ShapeHTMLFragment
)

func (s Shape) String() string {
	switch s {
	case ShapeJSON:
		return "json"
	case ShapeHTMLTable:
		return "html_table"
	case ShapeHTMLFragment:
		return "html_fragment"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// Descriptor is the static configuration of a source. Its fields are
// unexported and accessors return copies, so a Descriptor cannot change once
// built.
type Descriptor struct {
	id        model.Source
	name      string
	shape     Shape
	endpoints []string
	mapping   map[string]model.Currency
}

// NewDescriptor builds a descriptor, copying endpoints and mapping.
func NewDescriptor(id model.Source, name string, shape Shape, endpoints []string, mapping map[string]model.Currency) Descriptor {
	return Descriptor{
		id:        id,
		name:      name,
		shape:     shape,
		endpoints: append([]string(nil), endpoints...),
		mapping:   maps.Clone(mapping),
	}
}

func (d Descriptor) ID() model.Source { return d.id }
func (d Descriptor) Name() string { return d.name }
func (d Descriptor) Shape() Shape { return d.shape }

// Endpoints returns a copy of the endpoint URLs.
func (d Descriptor) Endpoints() []string {
	return append([]string(nil), d.endpoints...)
}

// Mapping returns a copy of the native token to currency table.
func (d Descriptor) Mapping() map[string]model.Currency {
	return maps.Clone(d.mapping)
}

// Lookup maps a native token to a currency.
func (d Descriptor) Lookup(token string) (model.Currency, bool) {
	c, ok := d.mapping[token]
	return c, ok
}

// WithEndpoints returns a copy of d with its endpoints replaced. An empty list
// keeps the current endpoints.
func (d Descriptor) WithEndpoints(endpoints []string) Descriptor {
	if len(endpoints) == 0 {
		return d
	}
	return NewDescriptor(d.id, d.name, d.shape, endpoints, d.mapping)
}

// Defaults returns the built-in descriptors for every known source.
func Defaults() []Descriptor {
	return []Descriptor{
		NewDescriptor(model.SourcePrivatBank, "PrivatBank", ShapeJSON,
			[]string{"https://api.privatbank.ua/p24api/pubinfo?json&exchange&coursid=5"},
			map[string]model.Currency{"USD": model.CurrencyUSD, "EUR": model.CurrencyEUR}),
		NewDescriptor(model.SourceMonoBank, "MonoBank", ShapeJSON,
			[]string{"https://api.monobank.ua/bank/currency"},
			map[string]model.Currency{"840": model.CurrencyUSD, "978": model.CurrencyEUR, "980": model.CurrencyUAH}),
		NewDescriptor(model.SourceVkurse, "Vkurse.ua", ShapeJSON,
			[]string{"http://vkurse.dp.ua/course.json"},
			map[string]model.Currency{"Dollar": model.CurrencyUSD, "Euro": model.CurrencyEUR}),
		NewDescriptor(model.SourceMinfin, "MinFin", ShapeHTMLFragment,
			[]string{"https://minfin.com.ua/currency/banks/usd/", "https://minfin.com.ua/currency/banks/eur/"},
			map[string]model.Currency{"USD": model.CurrencyUSD, "EUR": model.CurrencyEUR}),
		NewDescriptor(model.SourcePUMB, "PUMB", ShapeHTMLTable,
			[]string{"https://about.pumb.ua/ru/info/currency_converter"},
			map[string]model.Currency{"USD": model.CurrencyUSD, "EUR": model.CurrencyEUR}),
	}
}

// Descriptors returns the built-in descriptors with per-source overrides
// applied. Disabled sources are left out.
func Descriptors(overrides map[string]config.SourceConfig) []Descriptor {
	descs := make([]Descriptor, 0, len(model.Sources()))
	for _, d := range Defaults() {
		o := overrides[string(d.id)]
		if !o.IsEnabled() {
			continue
		}
		descs = append(descs, d.WithEndpoints(o.Endpoints))
	}
	return descs
}

// New returns the adapter for a descriptor. The set of adapters is closed:
// an unknown source is an error.
func New(desc Descriptor, client *fetch.Client) (Adapter, error) {
	if len(desc.endpoints) == 0 {
		return nil, fmt.Errorf("source %s: no endpoints", desc.id)
	}
	switch desc.id {
	case model.SourcePrivatBank:
		return &privatBank{desc: desc, client: client}, nil
	case model.SourceMonoBank:
		return &monoBank{desc: desc, client: client}, nil
	case model.SourceVkurse:
		return &vkurse{desc: desc, client: client}, nil
	case model.SourceMinfin:
		return &minfin{desc: desc, client: client}, nil
	case model.SourcePUMB:
		return &pumb{desc: desc, client: client}, nil
	}
	return nil, fmt.Errorf("source %q: no adapter", desc.id)
}

// NewAll builds adapters for every descriptor.
func NewAll(descs []Descriptor, client *fetch.Client) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(descs))
	for _, d := range descs {
		a, err := New(d, client)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
