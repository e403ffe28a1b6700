package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/streetcats/report-service/internal/domain"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Identity domain.Identity
}

// Verifier resolves a raw bearer token to the identity it names. Errors are
// domain errors: unauthorized for bad tokens, internal for store failures.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	verifier Verifier
}

// NewMiddleware constructs middleware.
func NewMiddleware(verifier Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Require rejects the request with 401 unless a valid bearer token names an
// existing user.
func (m *Middleware) Require(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	principal, err := m.authenticate(c, header)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional attaches a principal when a valid token is present and otherwise
// continues as guest.
func (m *Middleware) Optional(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Next()
	}
	principal, err := m.authenticate(c, header)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			return err
		}
		return c.Next()
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *Middleware) authenticate(c *fiber.Ctx, header string) (*Principal, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	identity, err := m.verifier.Verify(c.UserContext(), strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return &Principal{Identity: identity}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// IdentityFromContext returns the caller identity, or nil for guests.
func IdentityFromContext(c *fiber.Ctx) *domain.Identity {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal == nil {
		return nil
	}
	identity := principal.Identity
	return &identity
}
