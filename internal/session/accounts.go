// Package session gates the worklist behind a login and carries the
// resulting capability in a signed cookie.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrIncorrectCredentials = errors.New("incorrect username or password")

// Role decides what a signed-in user may do.
type Role string

const (
	RoleDoctor      Role = "doctor"      // worklist only
	RoleRadiologist Role = "radiologist" // worklist and reporting
)

func (r Role) Privileged() bool { return r == RoleRadiologist }

// Grant is a successful authentication.
type Grant struct {
	Username   string
	Privileged bool
}

// Authenticator checks credentials. Real deployments plug in an external
// identity provider here.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Grant, error)
}

type Account struct {
	Username string
	Role     Role
	Hash     []byte
}

// ParseAccounts reads "username:role:bcrypthash" entries separated by commas.
// Bcrypt hashes contain '$' but never ':' or ','.
func ParseAccounts(s string) ([]Account, error) {
	var out []Account
	seen := map[string]bool{}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("account %q: want username:role:hash", entry)
		}
		role := Role(strings.ToLower(parts[1]))
		if role != RoleDoctor && role != RoleRadiologist {
			return nil, fmt.Errorf("account %q: unknown role %q", parts[0], parts[1])
		}
		if _, err := bcrypt.Cost([]byte(parts[2])); err != nil {
			return nil, fmt.Errorf("account %q: %w", parts[0], err)
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("account %q listed twice", parts[0])
		}
		seen[parts[0]] = true
		out = append(out, Account{Username: parts[0], Role: role, Hash: []byte(parts[2])})
	}
	return out, nil
}

// HashPassword returns a bcrypt hash suitable for ParseAccounts.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// StaticAuthenticator checks against a configured account list.
type StaticAuthenticator struct {
	accounts map[string]Account
	dummy    []byte
}

func NewStaticAuthenticator(accounts []Account) *StaticAuthenticator {
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		m[a.Username] = a
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)
	return &StaticAuthenticator{accounts: m, dummy: dummy}
}

func (s *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) (Grant, error) {
	acct, ok := s.lookup(username)
	if !ok {
		// Spend comparable time so unknown usernames are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return Grant{}, ErrIncorrectCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.Hash, []byte(password)); err != nil {
		return Grant{}, ErrIncorrectCredentials
	}
	return Grant{Username: acct.Username, Privileged: acct.Role.Privileged()}, nil
}

func (s *StaticAuthenticator) lookup(username string) (Account, bool) {
	for name, a := range s.accounts {
		if subtle.ConstantTimeCompare([]byte(name), []byte(username)) == 1 {
			return a, true
		}
	}
	return Account{}, false
}
