package client

import (
	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/domain"
)

// DefaultCenter is used when there is no report to center on.
var DefaultCenter = dto.Location{Lat: 32.0853, Lng: 34.7818}

// Filter selects reports by type and status. A nil slice accepts every
// value; an empty non-nil slice accepts none.
type Filter struct {
	Types    []domain.ReportType
	Statuses []domain.ReportStatus
}

func (f Filter) match(r dto.Report) bool {
	return accepts(f.Types, r.Type) && accepts(f.Statuses, r.Status)
}

func accepts[T comparable](allowed []T, v T) bool {
	if allowed == nil {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// FilterReports keeps the reports f accepts, preserving order.
func FilterReports(reports []dto.Report, f Filter) []dto.Report {
	out := make([]dto.Report, 0, len(reports))
	for _, r := range reports {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// MapCenter returns the location of the last filtered report, else the last
// report overall, else DefaultCenter.
func MapCenter(filtered, all []dto.Report) dto.Location {
	switch {
	case len(filtered) > 0:
		return filtered[len(filtered)-1].Location
	case len(all) > 0:
		return all[len(all)-1].Location
	}
	return DefaultCenter
}

// Legend counts reports per type and per status.
type Legend struct {
	Types    map[domain.ReportType]int
	Statuses map[domain.ReportStatus]int
}

// LegendCounts tallies reports. Unknown statuses count as new.
func LegendCounts(reports []dto.Report) Legend {
	legend := Legend{
		Types:    make(map[domain.ReportType]int, len(domain.ReportTypes)),
		Statuses: make(map[domain.ReportStatus]int, len(domain.ReportStatuses)),
	}
	for _, r := range reports {
		legend.Types[r.Type]++
		switch r.Status {
		case domain.ReportStatusInProgress, domain.ReportStatusResolved:
			legend.Statuses[r.Status]++
		default:
			legend.Statuses[domain.ReportStatusNew]++
		}
	}
	return legend
}

// View is the filtered list with its center and legend, as a map screen
// renders it. The legend covers the whole cache.
type View struct {
	Reports []dto.Report
	Center  dto.Location
	Legend  Legend
}

// View derives the map view from the cache.
func (s *Store) View(f Filter) View {
	all := s.Reports()
	filtered := FilterReports(all, f)
	return View{
		Reports: filtered,
		Center:  MapCenter(filtered, all),
		Legend:  LegendCounts(all),
	}
}
