package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/repository"
)

func TestClaimIsSingleWinner(t *testing.T) {
	ctx := context.Background()
	reports := NewReports(NewUsers())
	report := &domain.Report{Description: "cat", Type: domain.ReportTypeFood, Status: domain.ReportStatusNew}
	require.NoError(t, reports.Create(ctx, report))

	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reports.Claim(ctx, report.ID, "user", "User")
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, repository.ErrConditionFailed):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(31), conflicts.Load())
}

func TestListNewestFirstAndPopulated(t *testing.T) {
	ctx := context.Background()
	users := NewUsers()
	reports := NewReports(users)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	reports.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	author := &domain.User{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}
	require.NoError(t, users.Create(ctx, author))

	first := &domain.Report{Description: "first", Status: domain.ReportStatusNew, CreatedBy: domain.Unresolved(author.ID)}
	second := &domain.Report{Description: "second", Status: domain.ReportStatusNew}
	require.NoError(t, reports.Create(ctx, first))
	require.NoError(t, reports.Create(ctx, second))

	list, err := reports.List(ctx, repository.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Description)
	assert.Equal(t, "first", list[1].Description)
	require.True(t, list[1].CreatedBy.IsResolved())
	assert.Equal(t, "Ann Lee", list[1].CreatedBy.DisplayName())

	lean, err := reports.Claim(ctx, first.ID, author.ID, "Ann Lee")
	require.NoError(t, err)
	assert.False(t, lean.CreatedBy.IsResolved())
	assert.False(t, lean.AssignedTo.IsResolved())
}

func TestResolveRequiresAssignee(t *testing.T) {
	ctx := context.Background()
	reports := NewReports(nil)
	report := &domain.Report{Description: "cat", Status: domain.ReportStatusNew}
	require.NoError(t, reports.Create(ctx, report))

	_, _, err := reports.Resolve(ctx, report.ID, "a")
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	_, err = reports.Claim(ctx, report.ID, "a", "A")
	require.NoError(t, err)

	_, _, err = reports.Resolve(ctx, report.ID, "b")
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	resolved, changed, err := reports.Resolve(ctx, report.ID, "a")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.ReportStatusResolved, resolved.Status)

	_, _, err = reports.Resolve(ctx, "missing", "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRepeatResolveWritesNothing(t *testing.T) {
	ctx := context.Background()
	reports := NewReports(nil)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reports.SetClock(func() time.Time { return clock })

	report := &domain.Report{Description: "cat", Status: domain.ReportStatusNew}
	require.NoError(t, reports.Create(ctx, report))
	_, err := reports.Claim(ctx, report.ID, "a", "A")
	require.NoError(t, err)
	first, changed, err := reports.Resolve(ctx, report.ID, "a")
	require.NoError(t, err)
	require.True(t, changed)

	clock = clock.Add(time.Hour)
	again, changed, err := reports.Resolve(ctx, report.ID, "a")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.ReportStatusResolved, again.Status)
	assert.Equal(t, first.UpdatedAt, again.UpdatedAt)

	_, _, err = reports.Resolve(ctx, report.ID, "b")
	assert.ErrorIs(t, err, repository.ErrConditionFailed)
}

func TestUsersDuplicateEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	users := NewUsers()
	require.NoError(t, users.Create(ctx, &domain.User{Email: "cat@example.com"}))
	err := users.Create(ctx, &domain.User{Email: "CAT@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}
