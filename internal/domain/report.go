package domain

import "time"

// ReportType classifies a sighting.
type ReportType string

const (
	ReportTypeEmergency ReportType = "emergency"
	ReportTypeFood      ReportType = "food"
	ReportTypeGeneral   ReportType = "general"
)

// ReportTypes lists every valid type in legend order.
var ReportTypes = []ReportType{ReportTypeEmergency, ReportTypeFood, ReportTypeGeneral}

// Valid reports whether t is a known type.
func (t ReportType) Valid() bool {
	for _, candidate := range ReportTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ReportStatus enumerates lifecycle states for reports.
type ReportStatus string

const (
	ReportStatusNew        ReportStatus = "new"
	ReportStatusInProgress ReportStatus = "in-progress"
	ReportStatusResolved   ReportStatus = "resolved"
)

// ReportStatuses lists every status in lifecycle order.
var ReportStatuses = []ReportStatus{ReportStatusNew, ReportStatusInProgress, ReportStatusResolved}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	for _, candidate := range ReportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// GuestName is shown for reports created without a session.
const GuestName = "Guest"

// Location is where the cat was seen.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
}

// Report is the aggregate for a single sighting.
type Report struct {
	ID             string
	Description    string
	Type           ReportType
	Status         ReportStatus
	Location       Location
	Media          []string
	CreatedBy      *UserRef
	CreatedByName  string
	AssignedTo     *UserRef
	AssignedToName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanClaim reports whether the claim transition applies.
func (r *Report) CanClaim() bool {
	return r.Status == ReportStatusNew
}

// CanResolve reports whether userID may apply the resolve transition.
func (r *Report) CanResolve(userID string) bool {
	return r.AssignedTo != nil && r.AssignedTo.ID == userID
}

// ResolvedBy reports whether userID already resolved the report.
func (r *Report) ResolvedBy(userID string) bool {
	return r.Status == ReportStatusResolved && r.CanResolve(userID)
}

// ReporterName returns the stored name, the populated creator's name, or Guest.
func (r *Report) ReporterName() string {
	if r.CreatedByName != "" {
		return r.CreatedByName
	}
	if name := r.CreatedBy.DisplayName(); name != "" {
		return name
	}
	return GuestName
}

// AssigneeName returns the stored name or the populated assignee's name.
func (r *Report) AssigneeName() string {
	if r.AssignedToName != "" {
		return r.AssignedToName
	}
	return r.AssignedTo.DisplayName()
}

// ReportStats aggregates counts by status.
type ReportStats struct {
	Total      int64
	New        int64
	InProgress int64
	Resolved   int64
}

// Add counts n reports in status s.
func (s *ReportStats) Add(status ReportStatus, n int64) {
	s.Total += n
	switch status {
	case ReportStatusNew:
		s.New += n
	case ReportStatusInProgress:
		s.InProgress += n
	case ReportStatusResolved:
		s.Resolved += n
	}
}
