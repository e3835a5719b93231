package store

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

// add appends a condition. expr must contain a single %d for the placeholder index.
func (b *whereBuilder) add(expr string, v any) {
	b.args = append(b.args, v)
	b.conds = append(b.conds, fmt.Sprintf(expr, len(b.args)))
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the suffix.
func (b *whereBuilder) page(limit, offset int) string {
	b.args = append(b.args, pageLimit(limit))
	s := fmt.Sprintf(" LIMIT $%d", len(b.args))
	b.args = append(b.args, pageOffset(offset))
	return s + fmt.Sprintf(" OFFSET $%d", len(b.args))
}

func addRange[T any](b *whereBuilder, col string, r Range[T]) {
	if r.Lt != nil {
		b.add(col+" < $%d", *r.Lt)
	}
	if r.Lte != nil {
		b.add(col+" <= $%d", *r.Lte)
	}
	if r.Gt != nil {
		b.add(col+" > $%d", *r.Gt)
	}
	if r.Gte != nil {
		b.add(col+" >= $%d", *r.Gte)
	}
	if r.Exact != nil {
		b.add(col+" = $%d", *r.Exact)
	}
}

const rateColumns = `id, source, currency, bid, ask, observed_at`

func buildRateList(f RateFilter) (string, []any) {
	var b whereBuilder
	if f.Source != "" {
		b.add("source = $%d", string(f.Source))
	}
	if f.Currency != "" {
		b.add("currency = $%d", string(f.Currency))
	}
	addRange(&b, "bid", f.Bid)
	addRange(&b, "ask", f.Ask)

	query := "SELECT " + rateColumns + " FROM rates" + b.clause() +
		" ORDER BY observed_at DESC, seq DESC" + b.page(f.Limit, f.Offset)
	return query, b.args
}

const contactColumns = `id, email_from, subject, message, created_at`

func buildContactList(f ContactFilter) (string, []any) {
	var b whereBuilder
	addRange(&b, "created_at", f.Created)

	query := "SELECT " + contactColumns + " FROM contact_messages" + b.clause() +
		" ORDER BY created_at DESC" + b.page(f.Limit, f.Offset)
	return query, b.args
}
