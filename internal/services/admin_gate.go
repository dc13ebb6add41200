package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

// AdminPrincipal is the caller of a privileged operation. The shared-secret
// gate has a single trusted identity, so Name is always the configured
// admin username.
type AdminPrincipal struct {
	Name            string
	AuthenticatedAt time.Time
}

// AdminGate authenticates admin logins and authorizes privileged calls.
type AdminGate interface {
	// Login exchanges username and password for a credential to present later
	Login(ctx context.Context, username, password string) (string, error)

	// Authorize checks a presented credential
	Authorize(ctx context.Context, credential string) (AdminPrincipal, error)
}

// SharedSecretGate compares every credential against one configured admin
// secret. The secret itself is the session token: any holder is fully
// trusted, and there are no roles. Swap the AdminGate implementation to move
// to per-admin identities.
type SharedSecretGate struct {
	username     string
	passwordHash []byte
	secret       []byte
}

// NewSharedSecretGate hashes the configured password once. An empty password
// yields a gate that rejects everything.
func NewSharedSecretGate(username, password string) (*SharedSecretGate, error) {
	gate := &SharedSecretGate{username: username}
	if password == "" {
		return gate, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	gate.passwordHash = hash
	gate.secret = []byte(password)
	return gate, nil
}

func (g *SharedSecretGate) Login(ctx context.Context, username, password string) (string, error) {
	const op = "admin.Login"

	if len(g.secret) == 0 {
		metrics.AdminAuthFailures.WithLabelValues("login").Inc()
		return "", apierrors.NewUnauthorized(op, ErrInvalidAdminCredentials)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		metrics.AdminAuthFailures.WithLabelValues("login").Inc()
		return "", apierrors.NewUnauthorized(op, ErrInvalidAdminCredentials)
	}

	return string(g.secret), nil
}

func (g *SharedSecretGate) Authorize(ctx context.Context, credential string) (AdminPrincipal, error) {
	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(credential), g.secret) != 1 {
		metrics.AdminAuthFailures.WithLabelValues("authorize").Inc()
		return AdminPrincipal{}, apierrors.NewUnauthorized("admin.Authorize", ErrAdminUnauthorized)
	}
	return AdminPrincipal{Name: g.username, AuthenticatedAt: time.Now().UTC()}, nil
}

type adminContextKey struct{}

// WithAdmin returns a context carrying the admin principal.
func WithAdmin(ctx context.Context, principal AdminPrincipal) context.Context {
	return context.WithValue(ctx, adminContextKey{}, principal)
}

// AdminFromContext returns the admin principal stored by WithAdmin.
func AdminFromContext(ctx context.Context) (AdminPrincipal, bool) {
	principal, ok := ctx.Value(adminContextKey{}).(AdminPrincipal)
	return principal, ok
}

func requireAdmin(ctx context.Context, op string) (AdminPrincipal, error) {
	principal, ok := AdminFromContext(ctx)
	if !ok {
		return AdminPrincipal{}, apierrors.NewUnauthorized(op, ErrAdminUnauthorized)
	}
	return principal, nil
}
