package session

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Result is the outcome of a login attempt.
type Result struct {
	Authorized bool
	Privileged bool
	Capability Capability
}

// Gate turns credentials into a capability.
type Gate struct {
	auth Authenticator
}

func NewGate(auth Authenticator) *Gate {
	return &Gate{auth: auth}
}

// Login returns an unauthorized Result, not an error, for bad credentials.
// Errors are reserved for authenticator failures.
func (g *Gate) Login(ctx context.Context, username, password string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Result{}, nil
	}
	grant, err := g.auth.Authenticate(ctx, username, password)
	if errors.Is(err, ErrIncorrectCredentials) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{
		Authorized: true,
		Privileged: grant.Privileged,
		Capability: Capability{
			Username:   grant.Username,
			SessionID:  uuid.NewString(),
			Privileged: grant.Privileged,
		},
	}, nil
}
