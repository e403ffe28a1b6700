package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/streetcats/report-service/internal/domain"
)

// UserSummary is the populated form of a user reference on the wire.
type UserSummary struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name,omitempty"`
}

// DisplayName follows domain.UserSummary.DisplayName.
func (s UserSummary) DisplayName() string {
	return domain.UserSummary{ID: s.ID, FirstName: s.FirstName, LastName: s.LastName, Name: s.Name}.DisplayName()
}

// UserRef is encoded as a bare id string when unresolved and as a
// UserSummary object when resolved. A nil *UserRef encodes as null.
type UserRef struct {
	ID   string
	User *UserSummary
}

// Resolved reports whether the summary is present.
func (r *UserRef) Resolved() bool {
	return r != nil && r.User != nil
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.User != nil {
		return json.Marshal(r.User)
	}
	return json.Marshal(r.ID)
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty user reference")
	}
	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = UserRef{ID: id}
		return nil
	case '{':
		var raw struct {
			ObjectID  string `json:"_id"`
			ID        string `json:"id"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Name      string `json:"name"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		id := raw.ObjectID
		if id == "" {
			id = raw.ID
		}
		*r = UserRef{ID: id, User: &UserSummary{ID: id, FirstName: raw.FirstName, LastName: raw.LastName, Name: raw.Name}}
		return nil
	case 'n':
		*r = UserRef{}
		return nil
	}
	return errors.New("user reference must be a string, object or null")
}

// Location on the wire.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Report is the wire shape shared by the server and the client store.
type Report struct {
	ID             string              `json:"_id"`
	Description    string              `json:"description"`
	Type           domain.ReportType   `json:"type"`
	Status         domain.ReportStatus `json:"status"`
	Location       Location            `json:"location"`
	CreatedBy      *UserRef            `json:"createdBy"`
	CreatedByName  string              `json:"createdByName,omitempty"`
	AssignedTo     *UserRef            `json:"assignedTo"`
	AssignedToName string              `json:"assignedToName,omitempty"`
	Media          []string            `json:"media"`
	DistanceKm     *float64            `json:"distanceKm,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// ReporterName returns the stored name, the populated creator's name, or Guest.
func (r *Report) ReporterName() string {
	if r.CreatedByName != "" {
		return r.CreatedByName
	}
	if r.CreatedBy.Resolved() {
		if name := r.CreatedBy.User.DisplayName(); name != "" {
			return name
		}
	}
	return domain.GuestName
}

// AssigneeName returns the stored name or the populated assignee's name.
func (r *Report) AssigneeName() string {
	if r.AssignedToName != "" {
		return r.AssignedToName
	}
	if r.AssignedTo.Resolved() {
		return r.AssignedTo.User.DisplayName()
	}
	return ""
}

// LocationInput uses pointers so a missing coordinate is distinguishable from 0.
type LocationInput struct {
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Address string   `json:"address,omitempty"`
}

// CreateReportRequest payload.
type CreateReportRequest struct {
	Description string            `json:"description" validate:"required"`
	Type        domain.ReportType `json:"type" validate:"required,oneof=emergency food general"`
	Location    *LocationInput    `json:"location" validate:"required"`
	Media       []string          `json:"media" validate:"omitempty,dive,required"`
}

// GlobalStats response.
type GlobalStats struct {
	Total      int64 `json:"total"`
	Resolved   int64 `json:"resolved"`
	InProgress int64 `json:"inProgress"`
	New        int64 `json:"new"`
}

// UserStats response.
type UserStats struct {
	Total      int64 `json:"total"`
	Resolved   int64 `json:"resolved"`
	InProgress int64 `json:"inProgress"`
}

// ReportFromDomain converts a report to its wire shape.
func ReportFromDomain(r *domain.Report) Report {
	media := r.Media
	if media == nil {
		media = []string{}
	}
	out := Report{
		ID:          r.ID,
		Description: r.Description,
		Type:        r.Type,
		Status:      r.Status,
		Location: Location{
			Lat:     r.Location.Lat,
			Lng:     r.Location.Lng,
			Address: r.Location.Address,
		},
		CreatedBy:      refFromDomain(r.CreatedBy),
		CreatedByName:  r.CreatedByName,
		AssignedTo:     refFromDomain(r.AssignedTo),
		AssignedToName: r.AssignedToName,
		Media:          media,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	return out
}

// ReportsFromDomain converts a list, never returning nil.
func ReportsFromDomain(reports []domain.Report) []Report {
	out := make([]Report, 0, len(reports))
	for i := range reports {
		out = append(out, ReportFromDomain(&reports[i]))
	}
	return out
}

func refFromDomain(ref *domain.UserRef) *UserRef {
	if ref == nil {
		return nil
	}
	if !ref.IsResolved() {
		return &UserRef{ID: ref.ID}
	}
	return &UserRef{ID: ref.ID, User: &UserSummary{
		ID:        ref.ID,
		FirstName: ref.User.FirstName,
		LastName:  ref.User.LastName,
		Name:      ref.User.Name,
	}}
}
