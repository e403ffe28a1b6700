package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/domain"
)

func TestFilterReports(t *testing.T) {
	reports := []dto.Report{
		report("a", domain.ReportTypeFood, domain.ReportStatusNew, 1),
		report("b", domain.ReportTypeEmergency, domain.ReportStatusInProgress, 2),
		report("c", domain.ReportTypeFood, domain.ReportStatusResolved, 3),
	}

	assert.Len(t, FilterReports(reports, Filter{}), 3)

	food := FilterReports(reports, Filter{Types: []domain.ReportType{domain.ReportTypeFood}})
	require.Len(t, food, 2)
	assert.Equal(t, "a", food[0].ID)
	assert.Equal(t, "c", food[1].ID)

	active := FilterReports(reports, Filter{
		Types:    []domain.ReportType{domain.ReportTypeFood},
		Statuses: []domain.ReportStatus{domain.ReportStatusInProgress, domain.ReportStatusResolved},
	})
	require.Len(t, active, 1)
	assert.Equal(t, "c", active[0].ID)

	assert.Empty(t, FilterReports(reports, Filter{Types: []domain.ReportType{}}))
}

func TestMapCenterFallbacks(t *testing.T) {
	all := []dto.Report{
		report("a", domain.ReportTypeFood, domain.ReportStatusNew, 1),
		report("b", domain.ReportTypeFood, domain.ReportStatusNew, 2),
	}
	assert.Equal(t, 1.0, MapCenter(all[:1], all).Lat)
	assert.Equal(t, 2.0, MapCenter(nil, all).Lat)
	assert.Equal(t, DefaultCenter, MapCenter(nil, nil))
}

func TestLegendCounts(t *testing.T) {
	legend := LegendCounts([]dto.Report{
		report("a", domain.ReportTypeFood, domain.ReportStatusNew, 1),
		report("b", domain.ReportTypeFood, domain.ReportStatusInProgress, 1),
		report("c", domain.ReportTypeGeneral, domain.ReportStatusResolved, 1),
		report("d", domain.ReportTypeEmergency, "", 1),
	})
	assert.Equal(t, 2, legend.Types[domain.ReportTypeFood])
	assert.Equal(t, 1, legend.Types[domain.ReportTypeEmergency])
	assert.Equal(t, 2, legend.Statuses[domain.ReportStatusNew])
	assert.Equal(t, 1, legend.Statuses[domain.ReportStatusInProgress])
	assert.Equal(t, 1, legend.Statuses[domain.ReportStatusResolved])
}

func TestStoreView(t *testing.T) {
	store := NewStore(&fakeAPI{})
	store.replace([]dto.Report{
		report("a", domain.ReportTypeFood, domain.ReportStatusNew, 1),
		report("b", domain.ReportTypeEmergency, domain.ReportStatusNew, 2),
	})
	view := store.View(Filter{Statuses: []domain.ReportStatus{domain.ReportStatusResolved}})
	assert.Empty(t, view.Reports)
	assert.Equal(t, 2.0, view.Center.Lat)
	assert.Equal(t, 2, view.Legend.Statuses[domain.ReportStatusNew])
}
