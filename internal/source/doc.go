// Package source implements one adapter per external rate provider.
//
// Adapters:
//   - privatbank: JSON list {ccy, buy, sale}
//   - monobank: JSON list {currencyCodeA, currencyCodeB, rateBuy, rateSell}, UAH pairs only
//   - vkurse: JSON object keyed by currency word {Dollar: {buy, sale}}
//   - minfin: HTML page per currency, average-rate cell "buy sell"
//   - pumb: HTML table, rows of [name, buy, sell]
//
// Every adapter reports bid as the price the bank buys at and ask as the price
// it sells at. Adapters only extract; mapping tokens to currencies and parsing
// numbers is left to the normalizer. A record with a missing key or cell is
// dropped on its own. A *FetchError means the whole source was unusable.
package source
