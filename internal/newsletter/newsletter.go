// Package newsletter manages mailing-list subscriptions. Unsubscribing keeps
// the row and flips its status so a later re-subscribe reuses it.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotSubscribed is returned when unsubscribing an unknown address.
var ErrNotSubscribed = errors.New("email is not subscribed")

// ErrInvalidEmail is returned for addresses that do not parse.
var ErrInvalidEmail = errors.New("invalid email address")

// Subscription lifecycle values as stored in
// newsletter_subscribers.subscription_status.
const (
	StatusActive       = "active"
	StatusUnsubscribed = "unsubscribed"
	StatusBounced      = "bounced"
)

// Subscriber is one mailing-list entry.
type Subscriber struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscribedAt       time.Time  `json:"subscribed_at"`
	UnsubscribedAt     *time.Time `json:"unsubscribed_at,omitempty"`
	LastEmailSentAt    *time.Time `json:"last_email_sent_at,omitempty"`
	EmailCount         int        `json:"email_count"`
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists newsletter subscriptions.
type Repository interface {
	Subscribe(ctx context.Context, email string) (*Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
	IsSubscribed(ctx context.Context, email string) (bool, error)
	ListActive(ctx context.Context) ([]*Subscriber, error)
}

// PostgresRepository stores subscribers in newsletter_subscribers.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("newsletter: db required")
	}
	return &PostgresRepository{db: db}
}

// NormalizeEmail lowercases and trims an address, validating it parses.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Subscribe inserts or reactivates a subscription.
func (r *PostgresRepository) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO newsletter_subscribers (email, subscription_status)
		VALUES ($1, 'active')
		ON CONFLICT (email) DO UPDATE SET subscription_status = 'active', subscribed_at = NOW(), unsubscribed_at = NULL
		RETURNING id, email, subscription_status, subscribed_at, unsubscribed_at, last_email_sent_at, email_count
	`
	var sub Subscriber
	err = r.db.QueryRow(ctx, query, normalized).Scan(
		&sub.ID, &sub.Email, &sub.SubscriptionStatus, &sub.SubscribedAt,
		&sub.UnsubscribedAt, &sub.LastEmailSentAt, &sub.EmailCount)
	if err != nil {
		return nil, fmt.Errorf("newsletter: subscribe failed: %w", err)
	}
	return &sub, nil
}

// Unsubscribe flips the status, keeping the row.
func (r *PostgresRepository) Unsubscribe(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE newsletter_subscribers SET subscription_status = 'unsubscribed', unsubscribed_at = NOW() WHERE email = $1`,
		normalized)
	if err != nil {
		return fmt.Errorf("newsletter: unsubscribe failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// IsSubscribed reports whether an address is currently on the list.
func (r *PostgresRepository) IsSubscribed(ctx context.Context, email string) (bool, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	var status string
	err = r.db.QueryRow(ctx,
		`SELECT subscription_status FROM newsletter_subscribers WHERE email = $1`, normalized).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("newsletter: lookup failed: %w", err)
	}
	return status == StatusActive, nil
}

// ListActive returns all current subscribers, oldest first.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Subscriber, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, email, subscription_status, subscribed_at, unsubscribed_at, last_email_sent_at, email_count
		FROM newsletter_subscribers WHERE subscription_status = 'active' ORDER BY subscribed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("newsletter: list failed: %w", err)
	}
	defer rows.Close()

	var subs []*Subscriber
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.SubscriptionStatus, &sub.SubscribedAt,
			&sub.UnsubscribedAt, &sub.LastEmailSentAt, &sub.EmailCount); err != nil {
			return nil, fmt.Errorf("newsletter: scan failed: %w", err)
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}
