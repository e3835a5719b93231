package source

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rickgao/bankrates/internal/fetch"
	"github.com/rickgao/bankrates/internal/model"
)

// minfinAverageTitle marks the average bank rate cell on minfin pages.
const minfinAverageTitle = "Средний курс"

// minfin reads one page per currency. The currency token is the last path
// segment of the page URL, upper-cased (".../banks/usd/" -> "USD").
type minfin struct {
	desc   Descriptor
	client *fetch.Client
}

func (a *minfin) Source() model.Source { return a.desc.id }

func (a *minfin) Fetch(ctx context.Context) ([]model.RawQuote, error) {
	quotes := make([]model.RawQuote, 0, len(a.desc.endpoints))
	for _, endpoint := range a.desc.endpoints {
		doc, err := a.client.GetHTML(ctx, endpoint)
		if err != nil {
			return nil, &FetchError{Source: a.desc.id, Op: "get " + endpoint, Err: err}
		}

		token := pageToken(endpoint)
		if token == "" {
			continue
		}

		// Spans hold change deltas next to the rates.
		removeAll(doc, atom.Span)

		cell := findFirst(doc, func(n *html.Node) bool {
			return n.DataAtom == atom.Td && attr(n, "data-title") == minfinAverageTitle
		})
		if cell == nil {
			continue
		}

		fields := strings.Fields(textContent(cell))
		if len(fields) < 2 {
			continue
		}
		quotes = append(quotes, model.RawQuote{Token: token, Bid: fields[0], Ask: fields[1]})
	}
	return quotes, nil
}

// pumb reads the first table of the PUMB converter page.
type pumb struct {
	desc   Descriptor
	client *fetch.Client
}

func (a *pumb) Source() model.Source { return a.desc.id }

func (a *pumb) Fetch(ctx context.Context) ([]model.RawQuote, error) {
	doc, err := a.client.GetHTML(ctx, a.desc.endpoints[0])
	if err != nil {
		return nil, &FetchError{Source: a.desc.id, Op: "get converter", Err: err}
	}

	table := findFirst(doc, isElement(atom.Table))
	if table == nil {
		return nil, &FetchError{Source: a.desc.id, Op: "parse converter", Err: errors.New("no table in page")}
	}

	var quotes []model.RawQuote
	for _, row := range findAll(table, isElement(atom.Tr)) {
		cells := children(row, atom.Td)
		// Header rows use th; short rows are malformed.
		if len(cells) < 3 {
			continue
		}
		quotes = append(quotes, model.RawQuote{
			Token: strings.TrimSpace(textContent(cells[0])),
			Bid:   strings.TrimSpace(textContent(cells[1])),
			Ask:   strings.TrimSpace(textContent(cells[2])),
		})
	}
	return quotes, nil
}

// -----------------------------------------------------------------------------
// HTML helpers
// -----------------------------------------------------------------------------

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// findFirst returns the first node in document order matching match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns all descendants of n matching match, in document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

// children returns the direct element children of n with the given atom.
func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

// removeAll detaches every element with the given atom from the tree.
func removeAll(n *html.Node, a atom.Atom) {
	for _, el := range findAll(n, isElement(a)) {
		if el.Parent != nil {
			el.Parent.RemoveChild(el)
		}
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			// Keep adjacent cells' text apart.
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// pageToken derives the currency token from a minfin page URL.
func pageToken(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimSuffix(u.Path, "/"))
	if seg == "." || seg == "/" {
		return ""
	}
	return strings.ToUpper(seg)
}
