package repository

import (
	"context"
	"errors"

	"github.com/streetcats/report-service/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConditionFailed is returned when a conditional write matched no record
	// although the record exists.
	ErrConditionFailed = errors.New("write condition not met")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ReportFilter narrows report queries.
type ReportFilter struct {
	AssignedTo *string
}

// ReportRepository encapsulates report persistence.
//
// List resolves createdBy/assignedTo to populated user refs. Every other
// method returns lean reports whose refs are unresolved ids.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
	// Claim moves a new report to in-progress in a single conditional write.
	Claim(ctx context.Context, id, assigneeID, assigneeName string) (*domain.Report, error)
	// Resolve marks the report resolved when assigneeID holds it. When the
	// assignee had already resolved it nothing is written and changed is false.
	Resolve(ctx context.Context, id, assigneeID string) (report *domain.Report, changed bool, err error)
	CountByStatus(ctx context.Context, filter ReportFilter) (domain.ReportStats, error)
	Ping(ctx context.Context) error
}

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
