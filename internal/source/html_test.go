package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rickgao/bankrates/internal/model"
)

const pumbPage = `<!DOCTYPE html>
<html><body>
<div class="converter">
<table class="exchange-rate">
  <tr><th>Валюта</th><th>Покупка</th><th>Продажа</th></tr>
  <tr><td>USD</td><td>27.45</td><td>27.85</td></tr>
  <tr><td>broken</td></tr>
  <tr><td>EUR</td><td>30.10</td><td>30.70</td></tr>
  <tr><td>PLN</td><td>6.80</td><td>7.10</td></tr>
</table>
<table><tr><td>GBP</td><td>1</td><td>2</td></tr></table>
</div>
</body></html>`

func TestPUMB(t *testing.T) {
	server := serve(t, "text/html; charset=utf-8", pumbPage)

	quotes, err := adapterFor(t, model.SourcePUMB, server.URL).Fetch(context.Background())
	require.NoError(t, err)

	// Header and one-cell rows are skipped; only the first table is read.
	assert.Equal(t, []model.RawQuote{
		{Token: "USD", Bid: "27.45", Ask: "27.85"},
		{Token: "EUR", Bid: "30.10", Ask: "30.70"},
		{Token: "PLN", Bid: "6.80", Ask: "7.10"},
	}, quotes)
}

func TestPUMB_MalformedRowThenEUR(t *testing.T) {
	page := `<table><tr><td>USD</td></tr><tr><td>EUR</td><td>30.10</td><td>30.70</td></tr></table>`
	server := serve(t, "text/html", page)

	quotes, err := adapterFor(t, model.SourcePUMB, server.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RawQuote{{Token: "EUR", Bid: "30.10", Ask: "30.70"}}, quotes)
}

func TestPUMB_NoTable(t *testing.T) {
	server := serve(t, "text/html", `<html><body><p>Технічні роботи</p></body></html>`)

	_, err := adapterFor(t, model.SourcePUMB, server.URL).Fetch(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "parse converter", fetchErr.Op)
}

func minfinPage(avg string) string {
	return `<html><body><table class="mfm-table">
<tr><td data-title="Банк">Середній</td>
<td data-title="Средний курс">` + avg + `</td></tr>
</table></body></html>`
}

func TestMinfin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/currency/banks/usd/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minfinPage(`27.50<span class="up">+0.05</span>
			27.80<span class="down">-0.02</span>`)))
	})
	mux.HandleFunc("/currency/banks/eur/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minfinPage(`30.12 30.75`)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := adapterFor(t, model.SourceMinfin,
		server.URL+"/currency/banks/usd/",
		server.URL+"/currency/banks/eur/",
	)
	quotes, err := a.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.RawQuote{
		{Token: "USD", Bid: "27.50", Ask: "27.80"},
		{Token: "EUR", Bid: "30.12", Ask: "30.75"},
	}, quotes)
}

func TestMinfin_MissingCellSkipsCurrency(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/usd/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>redesigned page</p></body></html>`))
	})
	mux.HandleFunc("/eur/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minfinPage(`30.12 30.75`)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	quotes, err := adapterFor(t, model.SourceMinfin, server.URL+"/usd/", server.URL+"/eur/").Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RawQuote{{Token: "EUR", Bid: "30.12", Ask: "30.75"}}, quotes)
}

func TestMinfin_PageFailureFailsSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/usd/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minfinPage(`27.50 27.80`)))
	})
	mux.HandleFunc("/eur/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := adapterFor(t, model.SourceMinfin, server.URL+"/usd/", server.URL+"/eur/").Fetch(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, model.SourceMinfin, fetchErr.Source)
}

func TestPageToken(t *testing.T) {
	tests := map[string]string{
		"https://minfin.com.ua/currency/banks/usd/": "USD",
		"https://minfin.com.ua/currency/banks/eur":  "EUR",
		"http://localhost:8080/":                    "",
		"http://localhost:8080":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, pageToken(in), in)
	}
}

func TestRemoveAll(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<td>1.00<span>x<span>y</span></span> 2.00</td>`))
	require.NoError(t, err)

	removeAll(doc, atom.Span)
	assert.Equal(t, []string{"1.00", "2.00"}, strings.Fields(textContent(doc)))
}
