package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/domain"
)

func populatedReport() dto.Report {
	km := 1.5
	return dto.Report{
		ID:          "r1",
		Description: "cat on a roof",
		Type:        domain.ReportTypeGeneral,
		Status:      domain.ReportStatusNew,
		Location:    dto.Location{Lat: 32.1, Lng: 34.8, Address: "Dizengoff 1"},
		CreatedBy: &dto.UserRef{ID: "u1", User: &dto.UserSummary{
			ID: "u1", FirstName: "Ann", LastName: "Lee",
		}},
		CreatedByName: "Ann Lee",
		Media:         []string{"http://cdn/a.jpg"},
		DistanceKm:    &km,
		CreatedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMergePreserveKeepsPopulatedAssigneeOverBareID(t *testing.T) {
	prev := populatedReport()
	prev.Status = domain.ReportStatusInProgress
	prev.AssignedTo = &dto.UserRef{ID: "u2", User: &dto.UserSummary{ID: "u2", FirstName: "Bo", LastName: "Kim"}}
	prev.AssignedToName = "Bo Kim"

	var incoming dto.Report
	require.NoError(t, json.Unmarshal([]byte(`{
		"_id": "r1",
		"status": "resolved",
		"location": {"lat": 32.1, "lng": 34.8},
		"createdBy": "u1",
		"assignedTo": "u2",
		"assignedToName": "",
		"media": ["http://cdn/a.jpg"]
	}`), &incoming))

	merged := MergePreserve(prev, incoming)
	assert.Equal(t, domain.ReportStatusResolved, merged.Status)
	require.True(t, merged.AssignedTo.Resolved())
	assert.Equal(t, "Bo", merged.AssignedTo.User.FirstName)
	assert.Equal(t, "Bo Kim", merged.AssignedToName)
	require.True(t, merged.CreatedBy.Resolved())
	assert.Equal(t, "Ann Lee", merged.CreatedByName)
	assert.Equal(t, "Dizengoff 1", merged.Location.Address)
	require.NotNil(t, merged.DistanceKm)
	assert.Equal(t, 1.5, *merged.DistanceKm)
	assert.Equal(t, "cat on a roof", merged.Description)
}

func TestMergePreserveTakesResolvedIncomingRef(t *testing.T) {
	prev := populatedReport()
	incoming := dto.Report{
		ID:         "r1",
		Status:     domain.ReportStatusInProgress,
		AssignedTo: &dto.UserRef{ID: "u3", User: &dto.UserSummary{ID: "u3", Name: "Dana"}},
	}
	merged := MergePreserve(prev, incoming)
	require.True(t, merged.AssignedTo.Resolved())
	assert.Equal(t, "Dana", merged.AssignedTo.User.DisplayName())
	assert.Equal(t, domain.ReportStatusInProgress, merged.Status)
}

func TestMergePreserveBareIDOverNilKeepsNil(t *testing.T) {
	prev := populatedReport()
	incoming := dto.Report{ID: "r1", AssignedTo: &dto.UserRef{ID: "u9"}, AssignedToName: "Zed"}
	merged := MergePreserve(prev, incoming)
	assert.Nil(t, merged.AssignedTo)
	assert.Equal(t, "Zed", merged.AssignedToName)
}

func TestMergePreserveOverwritesPlainFields(t *testing.T) {
	prev := populatedReport()
	incoming := dto.Report{
		ID:       "r1",
		Location: dto.Location{Lat: 1, Lng: 2, Address: "Elsewhere"},
		Media:    []string{},
	}
	merged := MergePreserve(prev, incoming)
	assert.Equal(t, dto.Location{Lat: 1, Lng: 2, Address: "Elsewhere"}, merged.Location)
	assert.Empty(t, merged.Media)
	assert.Equal(t, prev.CreatedAt, merged.CreatedAt)
}
