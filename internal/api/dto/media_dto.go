package dto

import "github.com/streetcats/report-service/internal/media"

// UploadResponse lists stored files in request order.
type UploadResponse struct {
	Items []media.Item `json:"items"`
}
