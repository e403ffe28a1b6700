package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streetcats/report-service/internal/domain"
)

const leanReportColumns = `id, description, type, status, lat, lng, COALESCE(address, ''), media,
        created_by, COALESCE(created_by_name, ''), assigned_to, COALESCE(assigned_to_name, ''),
        created_at, updated_at`

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates the Postgres report store.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (description, type, status, lat, lng, address, media, created_by, created_by_name)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''))
        RETURNING id, created_at, updated_at`
	media := report.Media
	if media == nil {
		media = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		report.Description,
		report.Type,
		report.Status,
		report.Location.Lat,
		report.Location.Lng,
		report.Location.Address,
		media,
		refID(report.CreatedBy),
		report.CreatedByName,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
}

func (r *reportRepository) getByID(ctx context.Context, id string) (*domain.Report, error) {
	query := `SELECT ` + leanReportColumns + ` FROM reports WHERE id=$1`
	report, err := scanLeanReport(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return report, err
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	base := `SELECT r.id, r.description, r.type, r.status, r.lat, r.lng, COALESCE(r.address, ''), r.media,
                    r.created_by, COALESCE(r.created_by_name, ''), r.assigned_to, COALESCE(r.assigned_to_name, ''),
                    r.created_at, r.updated_at,
                    c.first_name, c.last_name, c.display_name,
                    a.first_name, a.last_name, a.display_name
             FROM reports r
             LEFT JOIN users c ON c.id = r.created_by
             LEFT JOIN users a ON a.id = r.assigned_to`
	clauses, args := filterClauses(filter, "r.")
	if clauses == nil {
		return []domain.Report{}, nil
	}
	query := fmt.Sprintf(`%s WHERE %s ORDER BY r.created_at DESC, r.id DESC`, base, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPopulatedReports(rows)
}

func (r *reportRepository) Claim(ctx context.Context, id, assigneeID, assigneeName string) (*domain.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `
        UPDATE reports SET status=$2, assigned_to=$3, assigned_to_name=NULLIF($4, ''), updated_at=NOW()
        WHERE id=$1 AND status=$5
        RETURNING ` + leanReportColumns
	report, err := scanLeanReport(r.pool.QueryRow(ctx, query,
		id, domain.ReportStatusInProgress, assigneeID, assigneeName, domain.ReportStatusNew))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrConflict(ctx, id)
	}
	return report, err
}

func (r *reportRepository) Resolve(ctx context.Context, id, assigneeID string) (*domain.Report, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, ErrNotFound
	}
	if _, err := uuid.Parse(assigneeID); err != nil {
		return nil, false, r.missOrConflict(ctx, id)
	}
	query := `
        UPDATE reports SET status=$2, updated_at=NOW()
        WHERE id=$1 AND assigned_to=$3 AND status<>$2
        RETURNING ` + leanReportColumns
	report, err := scanLeanReport(r.pool.QueryRow(ctx, query, id, domain.ReportStatusResolved, assigneeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.alreadyResolved(ctx, id, assigneeID)
	}
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}

// alreadyResolved classifies a resolve that matched no row.
func (r *reportRepository) alreadyResolved(ctx context.Context, id, assigneeID string) (*domain.Report, bool, error) {
	current, err := r.getByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !current.ResolvedBy(assigneeID) {
		return nil, false, ErrConditionFailed
	}
	return current, false, nil
}

func (r *reportRepository) CountByStatus(ctx context.Context, filter ReportFilter) (domain.ReportStats, error) {
	var stats domain.ReportStats
	clauses, args := filterClauses(filter, "")
	if clauses == nil {
		return stats, nil
	}
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM reports WHERE %s GROUP BY status`, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status domain.ReportStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.Add(status, count)
	}
	return stats, rows.Err()
}

func (r *reportRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

func (r *reportRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reports WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConditionFailed
}

// filterClauses returns nil clauses when the filter can never match.
func filterClauses(filter ReportFilter, prefix string) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.AssignedTo != nil {
		if _, err := uuid.Parse(*filter.AssignedTo); err != nil {
			return nil, nil
		}
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("%sassigned_to=$%d", prefix, len(args)))
	}
	return clauses, args
}

func scanLeanReport(row pgx.Row) (*domain.Report, error) {
	var (
		report     domain.Report
		createdBy  *string
		assignedTo *string
	)
	if err := row.Scan(
		&report.ID,
		&report.Description,
		&report.Type,
		&report.Status,
		&report.Location.Lat,
		&report.Location.Lng,
		&report.Location.Address,
		&report.Media,
		&createdBy,
		&report.CreatedByName,
		&assignedTo,
		&report.AssignedToName,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if createdBy != nil {
		report.CreatedBy = domain.Unresolved(*createdBy)
	}
	if assignedTo != nil {
		report.AssignedTo = domain.Unresolved(*assignedTo)
	}
	return &report, nil
}

func scanPopulatedReports(rows pgx.Rows) ([]domain.Report, error) {
	result := []domain.Report{}
	for rows.Next() {
		var (
			report                      domain.Report
			createdBy, assignedTo       *string
			creatorFirst, creatorLast   *string
			creatorName                 *string
			assigneeFirst, assigneeLast *string
			assigneeName                *string
		)
		if err := rows.Scan(
			&report.ID,
			&report.Description,
			&report.Type,
			&report.Status,
			&report.Location.Lat,
			&report.Location.Lng,
			&report.Location.Address,
			&report.Media,
			&createdBy,
			&report.CreatedByName,
			&assignedTo,
			&report.AssignedToName,
			&report.CreatedAt,
			&report.UpdatedAt,
			&creatorFirst,
			&creatorLast,
			&creatorName,
			&assigneeFirst,
			&assigneeLast,
			&assigneeName,
		); err != nil {
			return nil, err
		}
		report.CreatedBy = populatedRef(createdBy, creatorFirst, creatorLast, creatorName)
		report.AssignedTo = populatedRef(assignedTo, assigneeFirst, assigneeLast, assigneeName)
		result = append(result, report)
	}
	return result, rows.Err()
}

// populatedRef falls back to an unresolved ref when the joined user is gone.
func populatedRef(id, first, last, name *string) *domain.UserRef {
	if id == nil {
		return nil
	}
	if first == nil && last == nil {
		return domain.Unresolved(*id)
	}
	return domain.Resolved(domain.UserSummary{
		ID:        *id,
		FirstName: deref(first),
		LastName:  deref(last),
		Name:      deref(name),
	})
}

func refID(ref *domain.UserRef) *string {
	if ref == nil || ref.ID == "" {
		return nil
	}
	id := ref.ID
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
