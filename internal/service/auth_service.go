package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/streetcats/report-service/internal/auth"
	"github.com/streetcats/report-service/internal/config"
	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/repository"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

// Auth error codes.
const (
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)

var _ auth.Verifier = (*AuthService)(nil)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		bcryptCost: cfg.BcryptCost,
	}
}

// RegisterInput describes a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Company   *string
}

// Register creates an account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Session, error) {
	email := normalizeEmail(input.Email)
	details := map[string]any{}
	if strings.TrimSpace(input.FirstName) == "" {
		details["firstName"] = "is required"
	}
	if strings.TrimSpace(input.LastName) == "" {
		details["lastName"] = "is required"
	}
	if email == "" {
		details["email"] = "is required"
	}
	switch {
	case input.Password == "":
		details["password"] = "is required"
	case len(input.Password) > auth.MaxPasswordBytes:
		details["password"] = fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid registration", details)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, userExists()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var company *string
	if input.Company != nil {
		if trimmed := strings.TrimSpace(*input.Company); trimmed != "" {
			company = &trimmed
		}
	}
	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		Company:      company,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, userExists()
		}
		return nil, apperrors.NewInternalError(err)
	}
	return s.session(user)
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}
	return s.session(user)
}

// Verify resolves a bearer token to the identity it names.
func (s *AuthService) Verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return domain.Identity{}, apperrors.NewUnauthorized("invalid token")
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, apperrors.NewUnauthorized("invalid token")
		}
		return domain.Identity{}, apperrors.NewInternalError(err)
	}
	return domain.IdentityFromUser(user), nil
}

func (s *AuthService) session(user *domain.User) (*domain.Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userExists() error {
	return apperrors.NewConflict(CodeUserExists, "User already exists", nil)
}

func invalidCredentials() error {
	return apperrors.NewDomainError(CodeInvalidCredentials, "Invalid email or password", http.StatusBadRequest, nil)
}
