package source

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/rickgao/bankrates/internal/fetch"
	"github.com/rickgao/bankrates/internal/model"
)

// privatBank reads the PrivatBank cash rate list.
type privatBank struct {
	desc   Descriptor
	client *fetch.Client
}

func (a *privatBank) Source() model.Source { return a.desc.id }

func (a *privatBank) Fetch(ctx context.Context) ([]model.RawQuote, error) {
	var rows []any
	if err := a.client.GetJSON(ctx, a.desc.endpoints[0], &rows); err != nil {
		return nil, &FetchError{Source: a.desc.id, Op: "get rates", Err: err}
	}

	quotes := make([]model.RawQuote, 0, len(rows))
	for _, v := range rows {
		row, ok := v.(map[string]any)
		if !ok {
			continue
		}
		token, ok := text(row["ccy"])
		if !ok {
			continue
		}
		bid, okBid := text(row["buy"])
		ask, okAsk := text(row["sale"])
		if !okBid || !okAsk {
			continue
		}
		quotes = append(quotes, model.RawQuote{Token: token, Bid: bid, Ask: ask})
	}
	return quotes, nil
}

// monoBankBase is the ISO 4217 numeric code of the hryvnia. Only pairs quoted
// against it are kept.
const monoBankBase = "980"

// monoBank reads the Monobank public currency list.
type monoBank struct {
	desc   Descriptor
	client *fetch.Client
}

func (a *monoBank) Source() model.Source { return a.desc.id }

func (a *monoBank) Fetch(ctx context.Context) ([]model.RawQuote, error) {
	var rows []any
	if err := a.client.GetJSON(ctx, a.desc.endpoints[0], &rows); err != nil {
		return nil, &FetchError{Source: a.desc.id, Op: "get currency", Err: err}
	}

	quotes := make([]model.RawQuote, 0, len(rows))
	for _, v := range rows {
		row, ok := v.(map[string]any)
		if !ok {
			continue
		}
		codeA, okA := text(row["currencyCodeA"])
		codeB, okB := text(row["currencyCodeB"])
		if !okA || !okB || codeB != monoBankBase {
			continue
		}
		// Cross-only rows carry rateCross and no buy/sell.
		bid, okBid := text(row["rateBuy"])
		ask, okAsk := text(row["rateSell"])
		if !okBid || !okAsk {
			continue
		}
		quotes = append(quotes, model.RawQuote{Token: codeA, Bid: bid, Ask: ask})
	}
	return quotes, nil
}

// vkurse reads the vkurse.dp.ua course object.
type vkurse struct {
	desc   Descriptor
	client *fetch.Client
}

func (a *vkurse) Source() model.Source { return a.desc.id }

func (a *vkurse) Fetch(ctx context.Context) ([]model.RawQuote, error) {
	var course map[string]any
	if err := a.client.GetJSON(ctx, a.desc.endpoints[0], &course); err != nil {
		return nil, &FetchError{Source: a.desc.id, Op: "get course", Err: err}
	}

	names := slices.Sorted(maps.Keys(course))

	quotes := make([]model.RawQuote, 0, len(names))
	for _, name := range names {
		entry, ok := course[name].(map[string]any)
		if !ok {
			continue
		}
		bid, okBid := text(entry["buy"])
		ask, okAsk := text(entry["sale"])
		if !okBid || !okAsk {
			continue
		}
		quotes = append(quotes, model.RawQuote{Token: name, Bid: bid, Ask: ask})
	}
	return quotes, nil
}

// text returns the literal text of a decoded JSON scalar.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case json.Number:
		return x.String(), true
	case string:
		return x, true
	}
	return "", false
}
