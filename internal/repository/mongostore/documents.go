package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/streetcats/report-service/internal/domain"
)

const (
	usersCollection   = "users"
	reportsCollection = "reports"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	FirstName    string             `bson:"firstName"`
	LastName     string             `bson:"lastName"`
	Name         string             `bson:"name,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Company      *string            `bson:"company,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Company:      d.Company,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d userDocument) summary() domain.UserSummary {
	return domain.UserSummary{ID: d.ID.Hex(), FirstName: d.FirstName, LastName: d.LastName, Name: d.Name}
}

type locationDocument struct {
	Lat     float64 `bson:"lat"`
	Lng     float64 `bson:"lng"`
	Address string  `bson:"address,omitempty"`
}

type reportDocument struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	Description    string              `bson:"description"`
	Type           domain.ReportType   `bson:"type"`
	Status         domain.ReportStatus `bson:"status"`
	Location       locationDocument    `bson:"location"`
	Media          []string            `bson:"media"`
	CreatedBy      *primitive.ObjectID `bson:"createdBy"`
	CreatedByName  *string             `bson:"createdByName"`
	AssignedTo     *primitive.ObjectID `bson:"assignedTo"`
	AssignedToName *string             `bson:"assignedToName"`
	CreatedAt      time.Time           `bson:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt"`
}

func (d reportDocument) toDomain() domain.Report {
	report := domain.Report{
		ID:          d.ID.Hex(),
		Description: d.Description,
		Type:        d.Type,
		Status:      d.Status,
		Location: domain.Location{
			Lat:     d.Location.Lat,
			Lng:     d.Location.Lng,
			Address: d.Location.Address,
		},
		Media:     append([]string{}, d.Media...),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.CreatedBy != nil {
		report.CreatedBy = domain.Unresolved(d.CreatedBy.Hex())
	}
	if d.CreatedByName != nil {
		report.CreatedByName = *d.CreatedByName
	}
	if d.AssignedTo != nil {
		report.AssignedTo = domain.Unresolved(d.AssignedTo.Hex())
	}
	if d.AssignedToName != nil {
		report.AssignedToName = *d.AssignedToName
	}
	return report
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
