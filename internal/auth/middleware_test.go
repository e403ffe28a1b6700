package auth

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetcats/report-service/internal/domain"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

type stubVerifier struct {
	identities map[string]domain.Identity
	err        error
	seen       []string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	s.seen = append(s.seen, token)
	if s.err != nil {
		return domain.Identity{}, s.err
	}
	identity, ok := s.identities[token]
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("invalid token")
	}
	return identity, nil
}

func newTestApp(t *testing.T, verifier Verifier) *fiber.App {
	t.Helper()
	mw := NewMiddleware(verifier)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		identity := IdentityFromContext(c)
		if identity == nil {
			return c.SendString("guest")
		}
		return c.SendString(identity.DisplayName())
	}
	app.Get("/required", mw.Require, whoami)
	app.Get("/optional", mw.Optional, whoami)
	return app
}

func get(t *testing.T, app *fiber.App, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func noa() domain.Identity {
	return domain.IdentityFromUser(&domain.User{ID: "u1", FirstName: "Noa", LastName: "Cohen"})
}

func TestRequireRejectsMissingAndInvalidTokens(t *testing.T) {
	verifier := &stubVerifier{identities: map[string]domain.Identity{"good": noa()}}
	app := newTestApp(t, verifier)

	status, _ := get(t, app, "/required", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = get(t, app, "/required", "Basic abc")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = get(t, app, "/required", "Bearer garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, []string{"garbage"}, verifier.seen)
}

func TestRequireAttachesIdentity(t *testing.T) {
	app := newTestApp(t, &stubVerifier{identities: map[string]domain.Identity{"good": noa()}})

	status, body := get(t, app, "/required", "Bearer  good ")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Noa Cohen", body)
}

func TestOptionalFallsBackToGuest(t *testing.T) {
	app := newTestApp(t, &stubVerifier{})

	status, body := get(t, app, "/optional", "Bearer garbage")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "guest", body)

	status, body = get(t, app, "/optional", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "guest", body)
}

func TestOptionalSurfacesStoreFailures(t *testing.T) {
	app := newTestApp(t, &stubVerifier{err: apperrors.NewInternalError(errors.New("db down"))})

	status, _ := get(t, app, "/optional", "Bearer good")
	assert.Equal(t, fiber.StatusInternalServerError, status)
}
