// Package authpw is the identity-provider boundary: email/password
// authentication with registration, decoded into a closed set of error
// codes.
package authpw

import (
	"context"
	"errors"
	"strings"

	"disputedesk/api/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// IdentityStore holds provider-side principals.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity store.Identity) error
	GetIdentity(ctx context.Context, email string) (store.Identity, error)
}

// RecordStore holds durable user records.
type RecordStore interface {
	CreateUser(ctx context.Context, user store.User) error
}

// Throttle limits failed sign-in attempts per email.
type Throttle interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// Service provides email/password authentication.
type Service struct {
	identities IdentityStore
	records    RecordStore
	throttle   Throttle
}

func NewService(identities IdentityStore, records RecordStore, throttle Throttle) *Service {
	return &Service{identities: identities, records: records, throttle: throttle}
}

// Principal is the authenticated provider-side identity.
type Principal struct {
	Email       string
	DisplayName string
}

// SignIn authenticates a user. The email is trimmed and lower-cased
// before lookup.
func (s *Service) SignIn(ctx context.Context, email, password string) (Principal, error) {
	email = store.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return Principal{}, coded(CodeInvalidEmail)
	}
	if password == "" {
		return Principal{}, coded(CodeMissingPassword)
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err != nil {
			return Principal{}, coded(CodeNetworkFailure)
		}
		if !allowed {
			return Principal{}, coded(CodeTooManyRequests)
		}
	}

	identity, err := s.identities.GetIdentity(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Principal{}, coded(CodeUserNotFound)
	}
	if err != nil {
		return Principal{}, coded(CodeNetworkFailure)
	}
	if identity.DisabledAt != nil {
		return Principal{}, coded(CodeUserDisabled)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		if s.throttle != nil {
			_ = s.throttle.RecordFailure(ctx, email)
		}
		return Principal{}, coded(CodeWrongPassword)
	}

	if s.throttle != nil {
		_ = s.throttle.Reset(ctx, email)
	}
	return Principal{Email: identity.Email, DisplayName: identity.DisplayName}, nil
}

// Register creates a provider identity with display name "First Last" and
// then, synchronously, the durable user record. A record failure after a
// successful identity creation is surfaced but the identity is not rolled
// back; the orphaned identity is a known gap pending a compensation
// decision.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (Principal, store.User, error) {
	email = store.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return Principal{}, store.User{}, coded(CodeInvalidEmail)
	}
	if password == "" {
		return Principal{}, store.User{}, coded(CodeMissingPassword)
	}
	if len(password) < 6 {
		return Principal{}, store.User{}, coded(CodeWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Principal{}, store.User{}, unknown(err.Error())
	}

	displayName := strings.TrimSpace(firstName + " " + lastName)
	identity := store.Identity{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return Principal{}, store.User{}, coded(CodeEmailInUse)
		}
		return Principal{}, store.User{}, coded(CodeNetworkFailure)
	}

	user := store.User{
		UserID:    uuid.NewString(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.records.CreateUser(ctx, user); err != nil {
		return Principal{}, store.User{}, unknown("account created but profile setup failed: " + err.Error())
	}

	return Principal{Email: email, DisplayName: displayName}, user, nil
}
