package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/auth"
	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/service"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

// ReportsHandler manages report endpoints.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// List GET /api/reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	reports, err := h.service.ListReports(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ReportsFromDomain(reports))
}

// Create POST /api/reports. Guests may create reports.
func (h *ReportsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.CreateReportInput{
		Description: req.Description,
		Type:        req.Type,
		Lat:         req.Location.Lat,
		Lng:         req.Location.Lng,
		Address:     req.Location.Address,
		Media:       req.Media,
	}
	report, err := h.service.CreateReport(c.UserContext(), input, auth.IdentityFromContext(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.ReportFromDomain(report))
}

// Mine GET /api/reports/me.
func (h *ReportsHandler) Mine(c *fiber.Ctx) error {
	actor, err := requireIdentity(c)
	if err != nil {
		return err
	}
	reports, err := h.service.ListMyReports(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.ReportsFromDomain(reports))
}

// Claim PATCH /api/reports/:id/claim.
func (h *ReportsHandler) Claim(c *fiber.Ctx) error {
	actor, err := requireIdentity(c)
	if err != nil {
		return err
	}
	report, err := h.service.ClaimReport(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.ReportFromDomain(report))
}

// Resolve PATCH /api/reports/:id/resolve.
func (h *ReportsHandler) Resolve(c *fiber.Ctx) error {
	actor, err := requireIdentity(c)
	if err != nil {
		return err
	}
	report, err := h.service.ResolveReport(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.ReportFromDomain(report))
}

// Stats GET /api/reports/stats.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.GlobalStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.GlobalStats{
		Total:      stats.Total,
		Resolved:   stats.Resolved,
		InProgress: stats.InProgress,
		New:        stats.New,
	})
}

// MyStats GET /api/reports/stats/me.
func (h *ReportsHandler) MyStats(c *fiber.Ctx) error {
	actor, err := requireIdentity(c)
	if err != nil {
		return err
	}
	stats, err := h.service.UserStats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.UserStats{
		Total:      stats.Total,
		Resolved:   stats.Resolved,
		InProgress: stats.InProgress,
	})
}

func requireIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity := auth.IdentityFromContext(c)
	if identity == nil {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return *identity, nil
}
