package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/service"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

// AuthHandler exposes register and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := dto.Validate(req); err != nil {
		return err
	}

	session, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Company:   req.Company,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		User:  dto.UserFromDomain(session.User),
		Token: session.Token,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		User:  dto.UserFromDomain(session.User),
		Token: session.Token,
	})
}
