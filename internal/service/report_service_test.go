package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/events"
	"github.com/streetcats/report-service/internal/repository/memory"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

type fakeStatsCache struct {
	mu          sync.Mutex
	value       *domain.ReportStats
	valueGen    int64
	generation  int64
	getErr      error
	sets        int
	invalidated int
	// onGeneration runs after the generation is read, before counting.
	onGeneration func()
}

func (f *fakeStatsCache) Get(context.Context) (domain.ReportStats, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.ReportStats{}, false, f.getErr
	}
	if f.value == nil || f.valueGen != f.generation {
		return domain.ReportStats{}, false, nil
	}
	return *f.value, true, nil
}

func (f *fakeStatsCache) Generation(context.Context) (int64, error) {
	f.mu.Lock()
	generation, hook := f.generation, f.onGeneration
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return generation, nil
}

func (f *fakeStatsCache) Set(_ context.Context, stats domain.ReportStats, generation int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.value = &stats
	f.valueGen = generation
	return nil
}

func (f *fakeStatsCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	f.generation++
	f.value = nil
	return nil
}

type reportFixture struct {
	svc    *ReportService
	users  *memory.Users
	events []events.Event
}

func newReportFixture(t *testing.T, cache StatsCache) *reportFixture {
	t.Helper()
	f := &reportFixture{users: memory.NewUsers()}
	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	}
	dispatcher.Subscribe(events.EventReportCreated, record)
	dispatcher.Subscribe(events.EventReportClaimed, record)
	dispatcher.Subscribe(events.EventReportResolved, record)

	f.svc = NewReportService(ReportDependencies{
		ReportRepo: memory.NewReports(f.users),
		Dispatcher: dispatcher,
		StatsCache: cache,
	})
	return f
}

func (f *reportFixture) user(t *testing.T, first, last string) domain.Identity {
	t.Helper()
	u := &domain.User{FirstName: first, LastName: last, Email: first + "@example.com"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return domain.IdentityFromUser(u)
}

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

func (f *reportFixture) create(t *testing.T, description string, actor *domain.Identity) *domain.Report {
	t.Helper()
	lat, lng := coords(32.08, 34.78)
	report, err := f.svc.CreateReport(context.Background(), CreateReportInput{
		Description: description,
		Type:        domain.ReportTypeGeneral,
		Lat:         lat,
		Lng:         lng,
	}, actor)
	require.NoError(t, err)
	return report
}

func TestGuestCreateReport(t *testing.T) {
	f := newReportFixture(t, nil)
	lat, lng := coords(32.08, 34.78)

	report, err := f.svc.CreateReport(context.Background(), CreateReportInput{
		Description: "  Injured cat near station ",
		Type:        domain.ReportTypeEmergency,
		Lat:         lat,
		Lng:         lng,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Injured cat near station", report.Description)
	assert.Equal(t, domain.ReportStatusNew, report.Status)
	assert.Equal(t, "Guest", report.CreatedByName)
	assert.Nil(t, report.CreatedBy)
	assert.Nil(t, report.AssignedTo)
	assert.Equal(t, []string{}, report.Media)

	list, err := f.svc.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, report.ID, list[0].ID)
	assert.Equal(t, domain.ReportStatusNew, list[0].Status)
	assert.Nil(t, list[0].AssignedTo)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventReportCreated, f.events[0].Type)
}

func TestCreateReportValidation(t *testing.T) {
	f := newReportFixture(t, nil)
	lat, lng := coords(32.08, 34.78)
	bad, _ := coords(91, 0)

	cases := map[string]CreateReportInput{
		"blank description": {Description: "   ", Type: domain.ReportTypeFood, Lat: lat, Lng: lng},
		"unknown type":      {Description: "cat", Type: "party", Lat: lat, Lng: lng},
		"missing location":  {Description: "cat", Type: domain.ReportTypeFood},
		"lat out of range":  {Description: "cat", Type: domain.ReportTypeFood, Lat: bad, Lng: lng},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateReport(context.Background(), input, nil)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "got %v", err)
		})
	}
	assert.Empty(t, f.events)
}

func TestCreateReportByUserUsesDisplayName(t *testing.T) {
	f := newReportFixture(t, nil)
	ann := f.user(t, "Ann", "Lee")

	report := f.create(t, "hungry kitten", &ann)
	require.NotNil(t, report.CreatedBy)
	assert.Equal(t, ann.ID, report.CreatedBy.ID)
	assert.Equal(t, "Ann Lee", report.CreatedByName)
}

func TestClaimThenSecondClaimConflicts(t *testing.T) {
	f := newReportFixture(t, nil)
	a := f.user(t, "Avi", "Ben")
	b := f.user(t, "Bat", "Sheva")
	report := f.create(t, "cat on roof", nil)

	claimed, err := f.svc.ClaimReport(context.Background(), report.ID, a)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, a.ID, claimed.AssignedTo.ID)
	assert.False(t, claimed.AssignedTo.IsResolved())
	assert.Equal(t, "Avi Ben", claimed.AssignedToName)

	_, err = f.svc.ClaimReport(context.Background(), report.ID, b)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeAlreadyClaimed, domainErr.Code)
	assert.Equal(t, 400, domainErr.HTTPStatus)

	list, err := f.svc.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].AssignedTo.ID)
	assert.Equal(t, "Avi Ben", list[0].AssigneeName())
}

func TestClaimMissingReport(t *testing.T) {
	f := newReportFixture(t, nil)
	a := f.user(t, "Avi", "Ben")
	_, err := f.svc.ClaimReport(context.Background(), "nope", a)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestResolveOnlyByAssignee(t *testing.T) {
	f := newReportFixture(t, nil)
	a := f.user(t, "Avi", "Ben")
	c := f.user(t, "Chen", "Dor")
	report := f.create(t, "cat stuck", nil)

	_, err := f.svc.ClaimReport(context.Background(), report.ID, a)
	require.NoError(t, err)

	_, err = f.svc.ResolveReport(context.Background(), report.ID, c)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeNotAssignee, domainErr.Code)
	assert.Equal(t, 403, domainErr.HTTPStatus)

	mine, err := f.svc.ListMyReports(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.ReportStatusInProgress, mine[0].Status)

	resolved, err := f.svc.ResolveReport(context.Background(), report.ID, a)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, resolved.Status)

	again, err := f.svc.ResolveReport(context.Background(), report.ID, a)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, again.Status)

	_, err = f.svc.ResolveReport(context.Background(), "nope", a)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestRepeatResolvePublishesOnce(t *testing.T) {
	f := newReportFixture(t, nil)
	a := f.user(t, "Avi", "Ben")
	report := f.create(t, "cat on a roof", nil)
	_, err := f.svc.ClaimReport(context.Background(), report.ID, a)
	require.NoError(t, err)

	first, err := f.svc.ResolveReport(context.Background(), report.ID, a)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		again, err := f.svc.ResolveReport(context.Background(), report.ID, a)
		require.NoError(t, err)
		assert.Equal(t, domain.ReportStatusResolved, again.Status)
		assert.Equal(t, first.UpdatedAt, again.UpdatedAt)
	}

	var resolved []events.Event
	for _, e := range f.events {
		if e.Type == events.EventReportResolved {
			resolved = append(resolved, e)
		}
	}
	require.Len(t, resolved, 1)
	payload, ok := resolved[0].Payload.(events.ReportTransitionPayload)
	require.True(t, ok)
	assert.Equal(t, domain.ReportStatusInProgress, payload.OldStatus)
	assert.Equal(t, domain.ReportStatusResolved, payload.NewStatus)
}

func TestListMyReportsFiltersByAssignee(t *testing.T) {
	f := newReportFixture(t, nil)
	a := f.user(t, "Avi", "Ben")
	b := f.user(t, "Bat", "Sheva")
	mineReport := f.create(t, "claimed by a", &b)
	f.create(t, "created by a", &a)

	_, err := f.svc.ClaimReport(context.Background(), mineReport.ID, a)
	require.NoError(t, err)

	mine, err := f.svc.ListMyReports(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, mineReport.ID, mine[0].ID)
	assert.Equal(t, "Bat Sheva", mine[0].ReporterName())
}

func TestAssignmentMatchesStatus(t *testing.T) {
	f := newReportFixture(t, nil)
	a := f.user(t, "Avi", "Ben")
	r1 := f.create(t, "one", nil)
	f.create(t, "two", nil)
	_, err := f.svc.ClaimReport(context.Background(), r1.ID, a)
	require.NoError(t, err)

	list, err := f.svc.ListReports(context.Background())
	require.NoError(t, err)
	for _, r := range list {
		assert.Equal(t, r.Status != domain.ReportStatusNew, r.AssignedTo != nil, r.Description)
	}
}

func TestGlobalAndUserStats(t *testing.T) {
	cache := &fakeStatsCache{}
	f := newReportFixture(t, cache)
	a := f.user(t, "Avi", "Ben")

	var ids []string
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, f.create(t, d, nil).ID)
	}
	_, err := f.svc.ClaimReport(context.Background(), ids[0], a)
	require.NoError(t, err)
	_, err = f.svc.ClaimReport(context.Background(), ids[1], a)
	require.NoError(t, err)
	_, err = f.svc.ResolveReport(context.Background(), ids[1], a)
	require.NoError(t, err)

	stats, err := f.svc.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStats{Total: 5, New: 3, InProgress: 1, Resolved: 1}, stats)
	assert.Equal(t, 1, cache.sets)

	cached, err := f.svc.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats, cached)
	assert.Equal(t, 1, cache.sets)

	mine, err := f.svc.UserStats(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Equal(t, int64(1), mine.InProgress)
	assert.Equal(t, int64(1), mine.Resolved)
}

func TestGlobalStatsSkipsCountsTakenAcrossInvalidation(t *testing.T) {
	cache := &fakeStatsCache{}
	f := newReportFixture(t, cache)
	f.create(t, "a", nil)
	cache.onGeneration = func() {
		cache.onGeneration = nil
		require.NoError(t, cache.Invalidate(context.Background()))
	}

	_, err := f.svc.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	_, hit, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = f.svc.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets)
	_, hit, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestGlobalStatsFallsThroughCacheErrors(t *testing.T) {
	cache := &fakeStatsCache{getErr: errors.New("redis down")}
	f := newReportFixture(t, cache)
	f.create(t, "a", nil)

	stats, err := f.svc.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.New)
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newReportFixture(t, nil)
	report := f.create(t, "popular cat", nil)
	volunteers := make([]domain.Identity, 10)
	for i := range volunteers {
		volunteers[i] = f.user(t, string(rune('a'+i)), "v")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for _, v := range volunteers {
		wg.Add(1)
		go func(v domain.Identity) {
			defer wg.Done()
			_, err := f.svc.ClaimReport(context.Background(), report.ID, v)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else if apperrors.IsCode(err, CodeAlreadyClaimed) {
				conflicts++
			}
		}(v)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
	assert.Equal(t, 9, conflicts)
}
