package client

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/media"
)

// API is the subset of the REST API the store drives.
type API interface {
	Register(ctx context.Context, in RegisterInput) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	ListReports(ctx context.Context) ([]dto.Report, error)
	ListMyReports(ctx context.Context, token string) ([]dto.Report, error)
	CreateReport(ctx context.Context, token string, in dto.CreateReportRequest) (dto.Report, error)
	ClaimReport(ctx context.Context, token, id string) (dto.Report, error)
	ResolveReport(ctx context.Context, token, id string) (dto.Report, error)
	GlobalStats(ctx context.Context, token string) (dto.GlobalStats, error)
	UserStats(ctx context.Context, token string) (dto.UserStats, error)
	UploadMedia(ctx context.Context, files []media.Upload) ([]media.Item, error)
}

// Client-side upload limits, checked before anything is sent.
const (
	MaxUploadFiles     = 6
	MaxUploadFileBytes = 50 << 20
)

// Store holds the session and the report list, newest first. Failed calls
// leave both untouched and record the error message.
type Store struct {
	mu          sync.RWMutex
	api         API
	logger      *zap.Logger
	session     *Session
	reports     []dto.Report
	globalStats *dto.GlobalStats
	userStats   *dto.UserStats
	lastErr     string
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithSession starts the store signed in, e.g. with a token from the environment.
func WithSession(session Session) StoreOption {
	return func(s *Store) { s.session = &session }
}

// NewStore returns an empty store backed by api.
func NewStore(api API, opts ...StoreOption) *Store {
	s := &Store{api: api, logger: zap.NewNop(), reports: []dto.Report{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the current session.
func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// Reports returns a copy of the cached list.
func (s *Store) Reports() []dto.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]dto.Report(nil), s.reports...)
}

// LastError returns the message of the most recent failure, or "" after a
// success.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// GlobalStatsCached returns the last fetched global counts.
func (s *Store) GlobalStatsCached() (dto.GlobalStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.globalStats == nil {
		return dto.GlobalStats{}, false
	}
	return *s.globalStats, true
}

// UserStatsCached returns the last fetched personal counts.
func (s *Store) UserStatsCached() (dto.UserStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userStats == nil {
		return dto.UserStats{}, false
	}
	return *s.userStats, true
}

func (s *Store) Register(ctx context.Context, in RegisterInput) error {
	session, err := s.api.Register(ctx, in)
	if err != nil {
		return s.fail("register", err)
	}
	s.setSession(session)
	return nil
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return s.fail("login", err)
	}
	s.setSession(session)
	return nil
}

// Logout discards the session. The report cache is kept.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.userStats = nil
}

// FetchReports replaces the cache with the full list.
func (s *Store) FetchReports(ctx context.Context) error {
	reports, err := s.api.ListReports(ctx)
	if err != nil {
		return s.fail("fetch reports", err)
	}
	s.replace(reports)
	return nil
}

// FetchMyReports replaces the cache with the caller's assigned reports.
func (s *Store) FetchMyReports(ctx context.Context) error {
	reports, err := s.api.ListMyReports(ctx, s.token())
	if err != nil {
		return s.fail("fetch my reports", err)
	}
	s.replace(reports)
	return nil
}

// CreateReport submits a report and prepends it, or merges it when the id
// is already cached.
func (s *Store) CreateReport(ctx context.Context, in dto.CreateReportRequest) (dto.Report, error) {
	report, err := s.api.CreateReport(ctx, s.token(), in)
	if err != nil {
		return dto.Report{}, s.fail("create report", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	if i := s.indexOf(report.ID); i >= 0 {
		s.reports[i] = MergePreserve(s.reports[i], report)
		return s.reports[i], nil
	}
	s.reports = append([]dto.Report{report}, s.reports...)
	return report, nil
}

// ClaimReport claims id and merges the response into the cache.
func (s *Store) ClaimReport(ctx context.Context, id string) (dto.Report, error) {
	report, err := s.api.ClaimReport(ctx, s.token(), id)
	if err != nil {
		return dto.Report{}, s.fail("claim report", err)
	}
	return s.mergeExisting(report), nil
}

// ResolveReport resolves id and merges the response into the cache.
func (s *Store) ResolveReport(ctx context.Context, id string) (dto.Report, error) {
	report, err := s.api.ResolveReport(ctx, s.token(), id)
	if err != nil {
		return dto.Report{}, s.fail("resolve report", err)
	}
	return s.mergeExisting(report), nil
}

func (s *Store) FetchGlobalStats(ctx context.Context) (dto.GlobalStats, error) {
	stats, err := s.api.GlobalStats(ctx, s.token())
	if err != nil {
		return dto.GlobalStats{}, s.fail("fetch stats", err)
	}
	s.mu.Lock()
	s.globalStats = &stats
	s.lastErr = ""
	s.mu.Unlock()
	return stats, nil
}

func (s *Store) FetchUserStats(ctx context.Context) (dto.UserStats, error) {
	stats, err := s.api.UserStats(ctx, s.token())
	if err != nil {
		return dto.UserStats{}, s.fail("fetch my stats", err)
	}
	s.mu.Lock()
	s.userStats = &stats
	s.lastErr = ""
	s.mu.Unlock()
	return stats, nil
}

// UploadMedia checks the batch locally, uploads it and returns the URLs to
// attach to a new report.
func (s *Store) UploadMedia(ctx context.Context, files []media.Upload) ([]string, error) {
	if err := CheckUploads(files); err != nil {
		return nil, s.fail("upload media", err)
	}
	items, err := s.api.UploadMedia(ctx, files)
	if err != nil {
		return nil, s.fail("upload media", err)
	}
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	return urls, nil
}

// CheckUploads applies the client limits: at most six files of 50MB, each
// declared as an image or video.
func CheckUploads(files []media.Upload) error {
	if len(files) == 0 {
		return media.ErrNoFiles
	}
	if len(files) > MaxUploadFiles {
		return fmt.Errorf("%w: you can upload up to %d files", media.ErrTooManyFiles, MaxUploadFiles)
	}
	for _, f := range files {
		if !media.IsImageOrVideo(f.ContentType) {
			return fmt.Errorf("%w: %s is not an image or video", media.ErrUnsupportedType, f.Filename)
		}
		if f.Size > MaxUploadFileBytes {
			return fmt.Errorf("%w: %s is larger than 50MB", media.ErrTooLarge, f.Filename)
		}
	}
	return nil
}

func (s *Store) mergeExisting(report dto.Report) dto.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	i := s.indexOf(report.ID)
	if i < 0 {
		return report
	}
	s.reports[i] = MergePreserve(s.reports[i], report)
	return s.reports[i]
}

func (s *Store) replace(reports []dto.Report) {
	if reports == nil {
		reports = []dto.Report{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = reports
	s.lastErr = ""
}

func (s *Store) setSession(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	s.lastErr = ""
}

func (s *Store) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// indexOf expects s.mu to be held.
func (s *Store) indexOf(id string) int {
	for i := range s.reports {
		if s.reports[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) fail(op string, err error) error {
	msg := ErrorMessage(err)
	s.logger.Debug("store operation failed", zap.String("op", op), zap.String("error", msg))
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	return err
}
