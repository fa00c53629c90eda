package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"disputedesk/api/internal/auth"
	"disputedesk/api/internal/authpw"
	"disputedesk/api/internal/store"
)

// Session is the ephemeral authenticated principal for one client.
type Session struct {
	Token       string
	UserID      string
	Email       string
	DisplayName string
	JTI         string
	ExpiresAt   time.Time
}

// Authenticator is the identity-provider operations the tracker drives.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (authpw.Principal, error)
	Register(ctx context.Context, email, password, firstName, lastName string) (authpw.Principal, store.User, error)
}

// Resolver looks up the durable user identifier for an email.
type Resolver interface {
	ResolveUserID(ctx context.Context, email string) (string, error)
}

// Tracker owns the session lifecycle for the whole process: it drives
// sign-in/register/sign-out, issues and validates tokens, and sets and
// clears the advisory marker on every transition. The durable-record
// lookup happens here, in the transition handler, so there is a single
// source of truth for the session's user identifier.
type Tracker struct {
	store    *RedisStore
	authn    Authenticator
	resolver Resolver
	secret   []byte
	ttl      time.Duration
}

func NewTracker(store *RedisStore, authn Authenticator, resolver Resolver, secret string, ttl time.Duration) *Tracker {
	return &Tracker{
		store:    store,
		authn:    authn,
		resolver: resolver,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// Close releases the tracker's session storage.
func (t *Tracker) Close() error {
	return t.store.Close()
}

// Ping reports whether the session storage is reachable.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}

// SignIn authenticates against the identity provider and opens a session.
// A missing durable record does not fail the sign-in; the session simply
// carries no user id and no marker is set.
func (t *Tracker) SignIn(ctx context.Context, email, password string) (Session, error) {
	principal, err := t.authn.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}

	userID, err := t.resolver.ResolveUserID(ctx, principal.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Session{}, err
	}

	return t.open(ctx, userID, principal)
}

// Register creates the provider identity plus the durable user record and
// opens a session for the new user.
func (t *Tracker) Register(ctx context.Context, email, password, firstName, lastName string) (Session, error) {
	principal, user, err := t.authn.Register(ctx, email, password, firstName, lastName)
	if err != nil {
		return Session{}, err
	}
	return t.open(ctx, user.UserID, principal)
}

// SignOut revokes the session and clears the marker. It succeeds even when
// no session is active.
func (t *Tracker) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(t.secret, token)
	if err == nil && claims.Sub != "" {
		_ = t.store.ClearMarker(ctx, claims.Sub)
	}
	if token != "" {
		_ = t.store.RevokeSession(ctx, auth.HashToken(token))
	}
	return nil
}

// FromToken validates a token against the session storage.
func (t *Tracker) FromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(t.secret, token)
	if err != nil {
		return Session{}, err
	}
	data, err := t.store.LookupSession(ctx, auth.HashToken(token))
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:       token,
		UserID:      data.UserID,
		Email:       data.Email,
		DisplayName: data.DisplayName,
		JTI:         claims.JTI,
		ExpiresAt:   time.Unix(claims.Exp, 0),
	}, nil
}

func (t *Tracker) open(ctx context.Context, userID string, principal authpw.Principal) (Session, error) {
	expiresAt := time.Now().Add(t.ttl)
	jti := randomJTI()
	token, err := auth.IssueToken(t.secret, auth.Claims{
		Sub:   firstNonEmpty(userID, principal.Email),
		Email: principal.Email,
		Name:  principal.DisplayName,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	data := Data{
		UserID:      userID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
	}
	if err := t.store.SaveSession(ctx, auth.HashToken(token), data, expiresAt); err != nil {
		return Session{}, err
	}

	// Marker only when the durable record exists.
	if userID != "" {
		_ = t.store.SetMarker(ctx, userID, t.ttl)
	}

	return Session{
		Token:       token,
		UserID:      userID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
		JTI:         jti,
		ExpiresAt:   expiresAt,
	}, nil
}

func randomJTI() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
