package client

import "github.com/streetcats/report-service/internal/api/dto"

// MergePreserve overlays incoming onto prev. Zero-valued incoming fields
// count as absent and keep prev. The display fields (createdBy,
// createdByName, assignedTo, assignedToName, location.address, distanceKm)
// keep prev when incoming is empty, and the refs also when incoming is an
// unresolved id: a populated user is never traded for a bare id.
func MergePreserve(prev, incoming dto.Report) dto.Report {
	merged := prev

	if incoming.ID != "" {
		merged.ID = incoming.ID
	}
	if incoming.Description != "" {
		merged.Description = incoming.Description
	}
	if incoming.Type != "" {
		merged.Type = incoming.Type
	}
	if incoming.Status != "" {
		merged.Status = incoming.Status
	}
	if incoming.Location != (dto.Location{}) {
		merged.Location = incoming.Location
		if incoming.Location.Address == "" {
			merged.Location.Address = prev.Location.Address
		}
	}
	if incoming.Media != nil {
		merged.Media = append([]string{}, incoming.Media...)
	}
	if !incoming.CreatedAt.IsZero() {
		merged.CreatedAt = incoming.CreatedAt
	}
	if !incoming.UpdatedAt.IsZero() {
		merged.UpdatedAt = incoming.UpdatedAt
	}

	merged.CreatedBy = preserveRef(prev.CreatedBy, incoming.CreatedBy)
	merged.AssignedTo = preserveRef(prev.AssignedTo, incoming.AssignedTo)
	if incoming.CreatedByName != "" {
		merged.CreatedByName = incoming.CreatedByName
	}
	if incoming.AssignedToName != "" {
		merged.AssignedToName = incoming.AssignedToName
	}
	if incoming.DistanceKm != nil {
		merged.DistanceKm = incoming.DistanceKm
	}
	return merged
}

func preserveRef(prev, incoming *dto.UserRef) *dto.UserRef {
	if incoming.Resolved() {
		return incoming
	}
	return prev
}
