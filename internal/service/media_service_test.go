package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetcats/report-service/internal/media"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

type recordingStore struct {
	keys    []string
	deleted []string
	// failOn makes the nth Put (1-based) fail.
	failOn int
	puts   int
}

func (s *recordingStore) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	s.puts++
	if s.puts == s.failOn {
		return "", errors.New("bucket unavailable")
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func (s *recordingStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func upload(name, contentType, data string) media.Upload {
	return media.Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(data)), nil
		},
	}
}

func TestMediaUploadStoresInOrder(t *testing.T) {
	store := &recordingStore{}
	svc := NewMediaService(store, media.Policy{MaxFiles: 5, MaxFileBytes: 1024}, nil)

	items, err := svc.Upload(context.Background(), []media.Upload{
		upload("cat.png", "image/png", "png"),
		upload("clip", "video/mp4", "mp4"),
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, strings.HasPrefix(items[0].PublicID, "reports/"))
	assert.Equal(t, "https://cdn.example.com/"+items[0].PublicID+".png", items[0].URL)
	assert.Equal(t, "png", items[0].Format)
	assert.Equal(t, "image/png", items[0].Type)
	assert.Equal(t, int64(3), items[0].Bytes)
	assert.Equal(t, "mp4", items[1].Format)
	assert.Len(t, store.keys, 2)
}

func TestMediaUploadErrors(t *testing.T) {
	store := &recordingStore{}
	svc := NewMediaService(store, media.Policy{MaxFiles: 1, MaxFileBytes: 2}, nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, nil)
	assert.True(t, apperrors.IsCode(err, CodeNoFiles))

	_, err = svc.Upload(ctx, []media.Upload{upload("a.png", "image/png", "1"), upload("b.png", "image/png", "1")})
	assert.True(t, apperrors.IsCode(err, CodeTooManyFiles))

	_, err = svc.Upload(ctx, []media.Upload{upload("a.txt", "text/plain", "1")})
	assert.True(t, apperrors.IsCode(err, CodeUnsupportedMedia))

	_, err = svc.Upload(ctx, []media.Upload{upload("a.png", "image/png", "123")})
	assert.True(t, apperrors.IsCode(err, CodeMediaTooLarge))
	assert.Equal(t, 413, apperrors.ToDomainError(err).HTTPStatus)

	assert.Empty(t, store.keys)
}

func TestMediaUploadDiscardsPartialBatch(t *testing.T) {
	store := &recordingStore{failOn: 3}
	svc := NewMediaService(store, media.Policy{MaxFiles: 5, MaxFileBytes: 1024}, nil)

	items, err := svc.Upload(context.Background(), []media.Upload{
		upload("a.png", "image/png", "a"),
		upload("b.png", "image/png", "b"),
		upload("c.png", "image/png", "c"),
	})
	assert.True(t, apperrors.IsCode(err, "INTERNAL_ERROR"))
	assert.Nil(t, items)
	require.Len(t, store.keys, 2)
	assert.Equal(t, store.keys, store.deleted)
}
