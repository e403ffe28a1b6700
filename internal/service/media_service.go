package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/media"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

// Media error codes.
const (
	CodeNoFiles          = "NO_FILES"
	CodeTooManyFiles     = "TOO_MANY_FILES"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
	CodeMediaTooLarge    = "MEDIA_TOO_LARGE"
)

const (
	mediaFolder    = "reports"
	discardTimeout = 10 * time.Second
)

// MediaService validates uploads and stores them.
type MediaService struct {
	store  media.Store
	policy media.Policy
	logger *zap.Logger
}

// NewMediaService builds the service.
func NewMediaService(store media.Store, policy media.Policy, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{store: store, policy: policy, logger: logger}
}

// Policy returns the upload limits.
func (s *MediaService) Policy() media.Policy {
	return s.policy
}

// Upload checks the whole batch first, then stores every file in order.
func (s *MediaService) Upload(ctx context.Context, uploads []media.Upload) ([]media.Item, error) {
	if err := s.policy.Check(uploads); err != nil {
		return nil, mediaError(err)
	}

	items := make([]media.Item, 0, len(uploads))
	keys := make([]string, 0, len(uploads))
	for _, u := range uploads {
		item, key, err := s.put(ctx, u)
		if err != nil {
			s.logger.Error("media upload failed", zap.String("file", u.Filename), zap.Error(err))
			s.discard(ctx, keys)
			return nil, apperrors.NewInternalError(err)
		}
		items = append(items, item)
		keys = append(keys, key)
	}
	return items, nil
}

// discard removes the objects of a batch that failed part way.
func (s *MediaService) discard(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	var orphaned []string
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("media cleanup failed", zap.String("key", key), zap.Error(err))
			orphaned = append(orphaned, key)
		}
	}
	if len(orphaned) > 0 {
		s.logger.Error("media objects orphaned", zap.Strings("keys", orphaned))
	}
}

func (s *MediaService) put(ctx context.Context, u media.Upload) (media.Item, string, error) {
	body, err := u.Open()
	if err != nil {
		return media.Item{}, "", err
	}
	defer body.Close()

	ext := media.Extension(u.ContentType, u.Filename)
	publicID := mediaFolder + "/" + uuid.NewString()
	key := publicID + ext
	url, err := s.store.Put(ctx, key, u.ContentType, body)
	if err != nil {
		return media.Item{}, "", err
	}
	return media.Item{
		URL:      url,
		PublicID: publicID,
		Format:   strings.TrimPrefix(ext, "."),
		Type:     u.ContentType,
		Bytes:    u.Size,
	}, key, nil
}

func mediaError(err error) error {
	switch {
	case errors.Is(err, media.ErrNoFiles):
		return apperrors.NewDomainError(CodeNoFiles, "No files uploaded", http.StatusBadRequest, nil)
	case errors.Is(err, media.ErrTooManyFiles):
		return apperrors.NewDomainError(CodeTooManyFiles, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, media.ErrUnsupportedType):
		return apperrors.NewDomainError(CodeUnsupportedMedia, "Only images/videos allowed", http.StatusBadRequest, map[string]any{"reason": err.Error()})
	case errors.Is(err, media.ErrTooLarge):
		return apperrors.NewTooLarge(CodeMediaTooLarge, err.Error(), nil)
	}
	return apperrors.NewInternalError(err)
}
