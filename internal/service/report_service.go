package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/events"
	"github.com/streetcats/report-service/internal/repository"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

// Error codes returned by report transitions.
const (
	CodeAlreadyClaimed = "ALREADY_CLAIMED"
	CodeNotAssignee    = "NOT_ASSIGNEE"
)

// StatsCache caches the global counters. Implementations may fail; the
// service then reads the store.
//
// Invalidate bumps the generation. Set records the generation read before
// counting, and Get ignores entries written under an older one, so counts
// taken across an invalidation are never served.
type StatsCache interface {
	Get(ctx context.Context) (domain.ReportStats, bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, stats domain.ReportStats, generation int64) error
	Invalidate(ctx context.Context) error
}

// ReportService coordinates report workflows.
type ReportService struct {
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
	stats      StatsCache
	logger     *zap.Logger
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo repository.ReportRepository
	Dispatcher events.Dispatcher
	StatsCache StatsCache
	Logger     *zap.Logger
}

// NewReportService builds the service. Dispatcher and StatsCache are optional.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:    deps.ReportRepo,
		dispatcher: deps.Dispatcher,
		stats:      deps.StatsCache,
		logger:     logger,
	}
}

// CreateReportInput describes a new sighting. Lat and Lng are pointers so a
// missing coordinate can be told apart from zero.
type CreateReportInput struct {
	Description string
	Type        domain.ReportType
	Lat         *float64
	Lng         *float64
	Address     string
	Media       []string
}

// CreateReport stores a new report. A nil actor creates a guest report.
func (s *ReportService) CreateReport(ctx context.Context, input CreateReportInput, actor *domain.Identity) (*domain.Report, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	media := make([]string, 0, len(input.Media))
	for _, url := range input.Media {
		if url = strings.TrimSpace(url); url != "" {
			media = append(media, url)
		}
	}

	report := &domain.Report{
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		Status:      domain.ReportStatusNew,
		Location: domain.Location{
			Lat:     *input.Lat,
			Lng:     *input.Lng,
			Address: strings.TrimSpace(input.Address),
		},
		Media:         media,
		CreatedByName: domain.GuestName,
	}
	if actor != nil {
		report.CreatedBy = domain.Unresolved(actor.ID)
		if name := actor.DisplayName(); name != "" {
			report.CreatedByName = name
		}
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishEvent(ctx, events.NewEvent(events.EventReportCreated, report.ID, events.ActorFrom(actor), events.ReportCreatedPayload{
		Type:       report.Type,
		Lat:        report.Location.Lat,
		Lng:        report.Location.Lng,
		MediaCount: len(report.Media),
	}))
	return report, nil
}

// ListReports returns every report newest first with populated refs and
// display names filled in.
func (s *ReportService) ListReports(ctx context.Context) ([]domain.Report, error) {
	return s.list(ctx, repository.ReportFilter{})
}

// ListMyReports returns the reports assigned to actor.
func (s *ReportService) ListMyReports(ctx context.Context, actor domain.Identity) ([]domain.Report, error) {
	id := actor.ID
	return s.list(ctx, repository.ReportFilter{AssignedTo: &id})
}

func (s *ReportService) list(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for i := range reports {
		reports[i].CreatedByName = reports[i].ReporterName()
		reports[i].AssignedToName = reports[i].AssigneeName()
	}
	return reports, nil
}

// ClaimReport assigns a new report to actor. Concurrent claims are settled by
// the store: exactly one succeeds and the rest get ALREADY_CLAIMED.
func (s *ReportService) ClaimReport(ctx context.Context, id string, actor domain.Identity) (*domain.Report, error) {
	report, err := s.reports.Claim(ctx, id, actor.ID, actor.DisplayName())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewNotFound("report", map[string]any{"id": id})
	case errors.Is(err, repository.ErrConditionFailed):
		return nil, apperrors.NewConflict(CodeAlreadyClaimed, "Report already claimed", map[string]any{"id": id})
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventReportClaimed, report.ID, events.ActorFrom(&actor), events.ReportTransitionPayload{
		OldStatus: domain.ReportStatusNew,
		NewStatus: report.Status,
		Assignee:  report.AssignedToName,
	}))
	return report, nil
}

// ResolveReport marks a report resolved. Only the assignee may resolve. A
// repeat resolve returns the stored report and publishes nothing.
func (s *ReportService) ResolveReport(ctx context.Context, id string, actor domain.Identity) (*domain.Report, error) {
	report, changed, err := s.reports.Resolve(ctx, id, actor.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewNotFound("report", map[string]any{"id": id})
	case errors.Is(err, repository.ErrConditionFailed):
		return nil, apperrors.NewForbidden(CodeNotAssignee, "Only the assigned user can resolve this report")
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	}
	if !changed {
		return report, nil
	}

	s.publishEvent(ctx, events.NewEvent(events.EventReportResolved, report.ID, events.ActorFrom(&actor), events.ReportTransitionPayload{
		OldStatus: domain.ReportStatusInProgress,
		NewStatus: report.Status,
		Assignee:  report.AssignedToName,
	}))
	return report, nil
}

// GlobalStats counts every report by status, through the cache when present.
func (s *ReportService) GlobalStats(ctx context.Context) (domain.ReportStats, error) {
	cacheable := false
	var generation int64
	if s.stats != nil {
		cached, hit, err := s.stats.Get(ctx)
		switch {
		case err != nil:
			s.logger.Warn("stats cache read failed", zap.Error(err))
		case hit:
			return cached, nil
		default:
			generation, err = s.stats.Generation(ctx)
			if err != nil {
				s.logger.Warn("stats cache read failed", zap.Error(err))
			}
			cacheable = err == nil
		}
	}

	stats, err := s.reports.CountByStatus(ctx, repository.ReportFilter{})
	if err != nil {
		return domain.ReportStats{}, apperrors.NewInternalError(err)
	}

	if cacheable {
		if err := s.stats.Set(ctx, stats, generation); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// UserStats counts the reports assigned to actor. New is always zero since
// assigned reports have left the new state.
func (s *ReportService) UserStats(ctx context.Context, actor domain.Identity) (domain.ReportStats, error) {
	id := actor.ID
	stats, err := s.reports.CountByStatus(ctx, repository.ReportFilter{AssignedTo: &id})
	if err != nil {
		return domain.ReportStats{}, apperrors.NewInternalError(err)
	}
	return stats, nil
}

// Ping checks the report store.
func (s *ReportService) Ping(ctx context.Context) error {
	return s.reports.Ping(ctx)
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("report_id", event.ReportID),
			zap.Error(err))
	}
}

func validateCreate(input CreateReportInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "is required"
	}
	if !input.Type.Valid() {
		details["type"] = "must be one of [emergency food general]"
	}
	switch {
	case input.Lat == nil || input.Lng == nil:
		details["location"] = "lat and lng are required"
	case !validCoordinate(*input.Lat, 90) || !validCoordinate(*input.Lng, 180):
		details["location"] = "lat must be within [-90, 90] and lng within [-180, 180]"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid report", details)
	}
	return nil
}

func validCoordinate(v, bound float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -bound && v <= bound
}
