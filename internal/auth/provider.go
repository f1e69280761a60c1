package auth

import (
	"context"
	"errors"

	"github.com/macfarley/dream-weaver-backend/internal"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Provider is the identity collaborator: it turns a bearer credential into
// the acting user's identity. IssueToken is only supported by providers that
// mint their own credentials.
type Provider interface {
	IssueToken(user *internal.User) (string, error)
	VerifyToken(ctx context.Context, token string) (*internal.Identity, error)
}
