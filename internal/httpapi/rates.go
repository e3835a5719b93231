package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/source"
	"github.com/rickgao/bankrates/internal/store"
)

// RatesReader lists stored quotes.
type RatesReader interface {
	List(ctx context.Context, f store.RateFilter) ([]model.Quote, error)
}

// LatestReader returns the latest quote per (source, currency).
type LatestReader interface {
	Get(ctx context.Context) ([]model.Quote, error)
}

type rateView struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Currency   string    `json:"currency"`
	Bid        string    `json:"bid"`
	Ask        string    `json:"ask"`
	ObservedAt time.Time `json:"observed_at"`
}

func newRateViews(quotes []model.Quote) []rateView {
	views := make([]rateView, 0, len(quotes))
	for _, q := range quotes {
		views = append(views, rateView{
			ID:         q.ID.String(),
			Source:     string(q.Source),
			Currency:   string(q.Currency),
			Bid:        q.Bid.StringFixed(2),
			Ask:        q.Ask.StringFixed(2),
			ObservedAt: q.ObservedAt,
		})
	}
	return views
}

type ratesHandler struct {
	rates   RatesReader
	latest  LatestReader
	sources []source.Descriptor
}

func (h *ratesHandler) list(c *gin.Context) {
	f, err := parseRateFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quotes, err := h.rates.List(c.Request.Context(), f)
	if err != nil {
		loggerFrom(c).Error("list rates failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": newRateViews(quotes),
		"limit":   f.Limit,
		"offset":  f.Offset,
	})
}

func (h *ratesHandler) latestRates(c *gin.Context) {
	quotes, err := h.latest.Get(c.Request.Context())
	if err != nil {
		loggerFrom(c).Error("read latest rates failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read latest rates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": newRateViews(quotes)})
}

func (h *ratesHandler) choices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"currencies": model.Currencies(),
		"sources":    model.Sources(),
	})
}

type sourceView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Shape     string   `json:"shape"`
	Endpoints []string `json:"endpoints"`
}

func (h *ratesHandler) listSources(c *gin.Context) {
	views := make([]sourceView, 0, len(h.sources))
	for _, d := range h.sources {
		views = append(views, sourceView{
			ID:        string(d.ID()),
			Name:      d.Name(),
			Shape:     d.Shape().String(),
			Endpoints: d.Endpoints(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": views})
}

func parseRateFilter(c *gin.Context) (store.RateFilter, error) {
	var f store.RateFilter

	if v := c.Query("source"); v != "" {
		src, err := model.ParseSource(v)
		if err != nil {
			return f, err
		}
		f.Source = src
	}
	if v := c.Query("currency"); v != "" {
		cur, err := model.ParseCurrency(v)
		if err != nil {
			return f, err
		}
		f.Currency = cur
	}

	var err error
	if f.Bid, err = parseRange(c, "bid", decimal.NewFromString); err != nil {
		return f, err
	}
	if f.Ask, err = parseRange(c, "ask", decimal.NewFromString); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = parsePage(c); err != nil {
		return f, err
	}
	if f.Limit == 0 {
		f.Limit = store.DefaultListLimit
	}
	return f, nil
}

// parseRange reads field__lt, field__lte, field__gt, field__gte and
// field__exact from the query string.
func parseRange[T any](c *gin.Context, field string, parse func(string) (T, error)) (store.Range[T], error) {
	var r store.Range[T]
	bounds := []struct {
		suffix string
		dst    **T
	}{
		{"lt", &r.Lt},
		{"lte", &r.Lte},
		{"gt", &r.Gt},
		{"gte", &r.Gte},
		{"exact", &r.Exact},
	}
	for _, b := range bounds {
		key := field + "__" + b.suffix
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		v, err := parse(raw)
		if err != nil {
			return r, fmt.Errorf("invalid %s: %q", key, raw)
		}
		*b.dst = &v
	}
	return r, nil
}

func parsePage(c *gin.Context) (limit, offset int, err error) {
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("invalid limit: %q", v)
		}
		if limit > store.MaxListLimit {
			limit = store.MaxListLimit
		}
	}
	if v := c.Query("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset: %q", v)
		}
	}
	return limit, offset, nil
}
