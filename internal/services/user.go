package services

import (
	"context"
	"errors"
	"strings"

	"github.com/helpdesk-io/apiserver/internal/store"
	"github.com/helpdesk-io/apiserver/types"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// lookupAccount loads the account behind an opaque identifier. An identifier
// containing '@' is treated as an email, anything else as a username.
func lookupAccount(ctx context.Context, repo UserRepository, identifier string) (types.User, error) {
	if strings.Contains(identifier, "@") {
		return repo.GetByEmail(ctx, identifier)
	}
	return repo.GetByUsername(ctx, identifier)
}

// resolveCaller resolves a verified token subject to its account. A missing
// account is a fatal authorization failure for the surrounding operation:
// the subject may reference an account deleted after the token was issued.
func resolveCaller(ctx context.Context, repo UserRepository, identifier string) (types.User, error) {
	user, err := lookupAccount(ctx, repo, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, err
	}
	return user, nil
}
