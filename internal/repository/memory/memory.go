// Package memory holds mutex-guarded in-process stores. They back the
// "memory" storage driver for local development and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/repository"
)

// Users is an in-memory repository.UserRepository.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewUsers returns an empty user store.
func NewUsers() *Users {
	return &Users{byID: map[string]domain.User{}, byEmail: map[string]string{}, now: time.Now}
}

func (u *Users) Create(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := u.byEmail[key]; exists {
		return repository.ErrDuplicateEmail
	}
	user.ID = uuid.NewString()
	user.CreatedAt = u.now()
	user.UpdatedAt = user.CreatedAt
	u.byID[user.ID] = *user
	u.byEmail[key] = user.ID
	return nil
}

func (u *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := u.byID[id]
	return &user, nil
}

func (u *Users) summary(id string) (domain.UserSummary, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.byID[id]
	if !ok {
		return domain.UserSummary{}, false
	}
	return user.Summary(), true
}

// Reports is an in-memory repository.ReportRepository. List populates refs
// from the attached Users store.
type Reports struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
	seq     map[string]uint64
	next    uint64
	users   *Users
	now     func() time.Time
}

// NewReports returns an empty report store resolving refs through users.
func NewReports(users *Users) *Reports {
	return &Reports{
		reports: map[string]*domain.Report{},
		seq:     map[string]uint64{},
		users:   users,
		now:     time.Now,
	}
}

// SetClock overrides the timestamp source.
func (r *Reports) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *Reports) Create(_ context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report.ID = uuid.NewString()
	report.CreatedAt = r.now()
	report.UpdatedAt = report.CreatedAt
	if report.Media == nil {
		report.Media = []string{}
	}
	r.next++
	r.seq[report.ID] = r.next
	stored := leanCopy(report)
	r.reports[report.ID] = &stored
	return nil
}

func (r *Reports) List(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	r.mu.Lock()
	type entry struct {
		report domain.Report
		seq    uint64
	}
	entries := make([]entry, 0, len(r.reports))
	for id, report := range r.reports {
		if !matches(report, filter) {
			continue
		}
		entries = append(entries, entry{report: leanCopy(report), seq: r.seq[id]})
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].report.CreatedAt.Equal(entries[j].report.CreatedAt) {
			return entries[i].report.CreatedAt.After(entries[j].report.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	result := make([]domain.Report, 0, len(entries))
	for _, e := range entries {
		e.report.CreatedBy = r.populate(e.report.CreatedBy)
		e.report.AssignedTo = r.populate(e.report.AssignedTo)
		result = append(result, e.report)
	}
	return result, nil
}

func (r *Reports) Claim(_ context.Context, id, assigneeID, assigneeName string) (*domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !report.CanClaim() {
		return nil, repository.ErrConditionFailed
	}
	report.Status = domain.ReportStatusInProgress
	report.AssignedTo = domain.Unresolved(assigneeID)
	report.AssignedToName = assigneeName
	report.UpdatedAt = r.now()
	out := leanCopy(report)
	return &out, nil
}

func (r *Reports) Resolve(_ context.Context, id, assigneeID string) (*domain.Report, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if !report.CanResolve(assigneeID) {
		return nil, false, repository.ErrConditionFailed
	}
	changed := !report.ResolvedBy(assigneeID)
	if changed {
		report.Status = domain.ReportStatusResolved
		report.UpdatedAt = r.now()
	}
	out := leanCopy(report)
	return &out, changed, nil
}

func (r *Reports) CountByStatus(_ context.Context, filter repository.ReportFilter) (domain.ReportStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats domain.ReportStats
	for _, report := range r.reports {
		if matches(report, filter) {
			stats.Add(report.Status, 1)
		}
	}
	return stats, nil
}

func (r *Reports) Ping(context.Context) error {
	return nil
}

func (r *Reports) populate(ref *domain.UserRef) *domain.UserRef {
	if ref == nil || r.users == nil {
		return ref
	}
	summary, ok := r.users.summary(ref.ID)
	if !ok {
		return ref
	}
	return domain.Resolved(summary)
}

func matches(report *domain.Report, filter repository.ReportFilter) bool {
	if filter.AssignedTo != nil {
		return report.AssignedTo != nil && report.AssignedTo.ID == *filter.AssignedTo
	}
	return true
}

func leanCopy(report *domain.Report) domain.Report {
	out := *report
	out.Media = append([]string{}, report.Media...)
	if report.CreatedBy != nil {
		out.CreatedBy = domain.Unresolved(report.CreatedBy.ID)
	}
	if report.AssignedTo != nil {
		out.AssignedTo = domain.Unresolved(report.AssignedTo.ID)
	}
	return out
}
