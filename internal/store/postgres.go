package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/bankrates/internal/model"
)

// PostgresRates implements RateStore and RateReader on the rates table.
type PostgresRates struct {
	db *pgxpool.Pool
}

// NewPostgresRates creates a PostgresRates.
func NewPostgresRates(db *pgxpool.Pool) *PostgresRates {
	return &PostgresRates{db: db}
}

// Latest returns the newest quote for the pair, or nil when none exists.
func (s *PostgresRates) Latest(ctx context.Context, src model.Source, cur model.Currency) (*model.Quote, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM rates
		WHERE source = $1 AND currency = $2
		ORDER BY observed_at DESC, seq DESC
		LIMIT 1
	`
	var q model.Quote
	err := s.db.QueryRow(ctx, query, string(src), string(cur)).Scan(
		&q.ID, &q.Source, &q.Currency, &q.Bid, &q.Ask, &q.ObservedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &Error{Op: "latest", Err: err}
	}
	q.ObservedAt = q.ObservedAt.UTC()
	return &q, nil
}

// Insert writes a single quote row.
func (s *PostgresRates) Insert(ctx context.Context, q model.Quote) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO rates (id, source, currency, bid, ask, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, q.ID, string(q.Source), string(q.Currency), q.Bid, q.Ask, q.ObservedAt)
	if err != nil {
		return &Error{Op: "insert", Err: err}
	}
	return nil
}

// LatestAll returns the newest quote per (source, currency).
func (s *PostgresRates) LatestAll(ctx context.Context) ([]model.Quote, error) {
	query := `
		SELECT DISTINCT ON (source, currency) ` + rateColumns + `
		FROM rates
		ORDER BY source, currency, observed_at DESC, seq DESC
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, &Error{Op: "latest all", Err: err}
	}
	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, &Error{Op: "latest all", Err: err}
	}
	return quotes, nil
}

// List returns quotes matching f, newest first.
func (s *PostgresRates) List(ctx context.Context, f RateFilter) ([]model.Quote, error) {
	query, args := buildRateList(f)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &Error{Op: "list rates", Err: err}
	}
	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, &Error{Op: "list rates", Err: err}
	}
	return quotes, nil
}

func scanQuotes(rows pgx.Rows) ([]model.Quote, error) {
	defer rows.Close()

	quotes := make([]model.Quote, 0)
	for rows.Next() {
		var q model.Quote
		if err := rows.Scan(&q.ID, &q.Source, &q.Currency, &q.Bid, &q.Ask, &q.ObservedAt); err != nil {
			return nil, err
		}
		q.ObservedAt = q.ObservedAt.UTC()
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// PostgresContacts implements ContactStore on the contact_messages table.
type PostgresContacts struct {
	db *pgxpool.Pool
}

// NewPostgresContacts creates a PostgresContacts.
func NewPostgresContacts(db *pgxpool.Pool) *PostgresContacts {
	return &PostgresContacts{db: db}
}

// Create inserts a contact message. Zero ID and CreatedAt are filled in.
func (s *PostgresContacts) Create(ctx context.Context, m model.ContactMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO contact_messages (id, email_from, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.EmailFrom, m.Subject, m.Message, m.CreatedAt)
	if err != nil {
		return &Error{Op: "create contact", Err: err}
	}
	return nil
}

// List returns contact messages matching f, newest first.
func (s *PostgresContacts) List(ctx context.Context, f ContactFilter) ([]model.ContactMessage, error) {
	query, args := buildContactList(f)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &Error{Op: "list contacts", Err: err}
	}
	defer rows.Close()

	msgs := make([]model.ContactMessage, 0)
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.EmailFrom, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, &Error{Op: "list contacts", Err: err}
		}
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list contacts", Err: err}
	}
	return msgs, nil
}

var (
	_ RateStore    = (*PostgresRates)(nil)
	_ RateReader   = (*PostgresRates)(nil)
	_ ContactStore = (*PostgresContacts)(nil)
)
