package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/media"
	"github.com/streetcats/report-service/internal/service"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

const mediaField = "media"

// UploadHandler accepts multipart media uploads.
type UploadHandler struct {
	media *service.MediaService
}

// NewUploadHandler constructs handler.
func NewUploadHandler(mediaService *service.MediaService) *UploadHandler {
	return &UploadHandler{media: mediaService}
}

// Media POST /api/upload/media.
func (h *UploadHandler) Media(c *fiber.Ctx) error {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return apperrors.NewDomainError(service.CodeNoFiles, "No files uploaded", fiber.StatusBadRequest, nil)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("invalid multipart payload", nil)
	}

	headers := form.File[mediaField]
	uploads := make([]media.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, media.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	items, err := h.media.Upload(c.UserContext(), uploads)
	if err != nil {
		return err
	}
	return c.JSON(dto.UploadResponse{Items: items})
}
