package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/helpdesk-io/apiserver/internal/store"
	"github.com/helpdesk-io/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the one-way hash collaborator.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher implements PasswordHasher on top of x/crypto/bcrypt.
type BcryptHasher struct{}

func (BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// TokenSigner issues signed bearer tokens for an authenticated account.
type TokenSigner interface {
	Sign(email string, role types.Role) (string, error)
}

// AuthService implements registration, login, and password change.
type AuthService struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenSigner
}

func NewAuthService(users UserRepository, hasher PasswordHasher, tokens TokenSigner) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Register creates an account with the EndUser role and returns a token for
// it. The username is checked before the email; when both collide only the
// username failure is reported.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (string, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}
	if taken {
		return "", ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("check email: %w", err)
	}
	if taken {
		return "", ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		Username:     username,
		Role:         types.RoleEndUser,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.tokens.Sign(user.Email, user.Role)
}

// Login authenticates by username or email (an identifier containing '@' is
// an email) and returns a token carrying the account's canonical email and
// role. A missing account yields ErrNotFound and a password mismatch
// ErrBadCredentials; the transport presents both as one generic failure.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := lookupAccount(ctx, s.users, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrBadCredentials
	}

	return s.tokens.Sign(user.Email, user.Role)
}

// ResolveSubject loads the account behind a verified token subject, using
// the same '@' detection as login.
func (s *AuthService) ResolveSubject(ctx context.Context, subject string) (types.User, error) {
	return resolveCaller(ctx, s.users, subject)
}

// ChangePassword replaces the account password. The identifier is always
// resolved as a username here, unlike login's '@' detection; callers rely
// on that behavior.
func (s *AuthService) ChangePassword(ctx context.Context, username, current, newPassword, confirm string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrBadCurrentPassword
	}

	if newPassword != confirm {
		return NewValidationError("confirmPassword", "Passwords do not match")
	}

	// Compared via the hash, not as plaintext strings.
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.Email, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
