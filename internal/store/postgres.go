package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a looked-up record does not exist. Callers
// that can tolerate absence (the user-id resolver) must check for it
// instead of treating it as a failure.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken is returned when an identity or user record already
// exists for the normalized email.
var ErrEmailTaken = errors.New("email already registered")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// NormalizeEmail produces the canonical form used as the record key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateIdentity inserts the provider-side principal. Duplicate emails
// fail with ErrEmailTaken.
func (s *PostgresStore) CreateIdentity(ctx context.Context, identity Identity) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, NormalizeEmail(identity.Email), identity.PasswordHash, identity.DisplayName)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if rows == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, email string) (Identity, error) {
	const query = `
		SELECT email, password_hash, display_name, disabled_at, created_at
		FROM identities WHERE email = $1
	`
	var identity Identity
	err := s.db.QueryRowContext(ctx, query, NormalizeEmail(email)).Scan(
		&identity.Email, &identity.PasswordHash, &identity.DisplayName,
		&identity.DisabledAt, &identity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup identity: %w", err)
	}
	return identity, nil
}

// CreateUser inserts the durable user record. The email key is
// insert-once: a second insert for the same normalized email fails with
// ErrEmailTaken and never overwrites the existing record.
func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, user_id, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, NormalizeEmail(user.Email), user.UserID, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if rows == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `
		SELECT email, user_id, first_name, last_name, created_at
		FROM users WHERE email = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, NormalizeEmail(email)).Scan(
		&user.Email, &user.UserID, &user.FirstName, &user.LastName, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ResolveUserID returns the internal user identifier for an email, or
// ErrNotFound when the record has not been materialized yet. Absence is
// not a failure here; the orchestrator translates it.
func (s *PostgresStore) ResolveUserID(ctx context.Context, email string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM users WHERE email = $1`, NormalizeEmail(email),
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve user id: %w", err)
	}
	return userID, nil
}

// InsertDispute persists a dispute record. The creation timestamp is
// store-assigned.
func (s *PostgresStore) InsertDispute(ctx context.Context, dispute Dispute) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disputes (id, user_id, location, date_of_violation, ticket_type,
			additional_notes, ticket_image_url, status, extracted_text, appeal_letter)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, dispute.ID, dispute.UserID, dispute.Location, dispute.DateOfViolation,
		dispute.TicketType, dispute.AdditionalNotes, dispute.TicketImageURL,
		dispute.Status, dispute.ExtractedText, dispute.AppealLetter)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

// ListDisputesByUser returns every dispute owned by userID, in whatever
// order the query returns them.
func (s *PostgresStore) ListDisputesByUser(ctx context.Context, userID string) ([]Dispute, error) {
	const query = `
		SELECT id, user_id, location, date_of_violation, ticket_type,
			additional_notes, ticket_image_url, status, extracted_text, appeal_letter, created_at
		FROM disputes WHERE user_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []Dispute
	for rows.Next() {
		var d Dispute
		if err := rows.Scan(&d.ID, &d.UserID, &d.Location, &d.DateOfViolation,
			&d.TicketType, &d.AdditionalNotes, &d.TicketImageURL, &d.Status,
			&d.ExtractedText, &d.AppealLetter, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	return disputes, nil
}

func (s *PostgresStore) GetDispute(ctx context.Context, id string) (Dispute, error) {
	const query = `
		SELECT id, user_id, location, date_of_violation, ticket_type,
			additional_notes, ticket_image_url, status, extracted_text, appeal_letter, created_at
		FROM disputes WHERE id = $1
	`
	var d Dispute
	err := s.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.UserID, &d.Location,
		&d.DateOfViolation, &d.TicketType, &d.AdditionalNotes, &d.TicketImageURL,
		&d.Status, &d.ExtractedText, &d.AppealLetter, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Dispute{}, ErrNotFound
	}
	if err != nil {
		return Dispute{}, fmt.Errorf("get dispute: %w", err)
	}
	return d, nil
}

// ListPendingDisputes returns disputes awaiting letter completion,
// oldest first.
func (s *PostgresStore) ListPendingDisputes(ctx context.Context, limit int) ([]Dispute, error) {
	const query = `
		SELECT id, user_id, location, date_of_violation, ticket_type,
			additional_notes, ticket_image_url, status, extracted_text, appeal_letter, created_at
		FROM disputes WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending disputes: %w", err)
	}
	defer rows.Close()

	var disputes []Dispute
	for rows.Next() {
		var d Dispute
		if err := rows.Scan(&d.ID, &d.UserID, &d.Location, &d.DateOfViolation,
			&d.TicketType, &d.AdditionalNotes, &d.TicketImageURL, &d.Status,
			&d.ExtractedText, &d.AppealLetter, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending disputes: %w", err)
	}
	return disputes, nil
}

// UpdateDisputeOutcome records the result of letter completion for a
// pending dispute. It only touches pending records, so completion never
// overwrites a submitted letter.
func (s *PostgresStore) UpdateDisputeOutcome(ctx context.Context, id, extractedText, appealLetter, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE disputes SET extracted_text = $2, appeal_letter = $3, status = $4
		WHERE id = $1 AND status = 'pending'
	`, id, extractedText, appealLetter, status)
	if err != nil {
		return fmt.Errorf("update dispute outcome: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dispute outcome: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByID loads a durable record by its user id.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const query = `
		SELECT email, user_id, first_name, last_name, created_at
		FROM users WHERE user_id = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&user.Email, &user.UserID,
		&user.FirstName, &user.LastName, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
