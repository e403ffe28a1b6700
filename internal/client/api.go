// Package client talks to the report API and keeps the client-side report
// cache that presentation layers render.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/media"
)

const defaultTimeout = 30 * time.Second

// ErrMissingToken is returned when an auth response carries no token.
var ErrMissingToken = errors.New("missing token in auth response")

// APIError is a non-2xx response. Message is taken from the body's message,
// error or msg field, in that order.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status code %d", e.Status)
}

// ErrorMessage extracts the text shown to users for a failed request.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Request failed"
}

// SessionUser is the signed-in user as the client keeps it.
type SessionUser struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Company   string
}

// Session pairs the user with the bearer token.
type Session struct {
	User  SessionUser
	Token string
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Company   string
}

// HTTPClient calls the REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(h *HTTPClient) { h.logger = logger }
}

// NewHTTPClient returns a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("api_client")
	return c
}

func (c *HTTPClient) Register(ctx context.Context, in RegisterInput) (Session, error) {
	body := map[string]any{
		"firstName": in.FirstName,
		"lastName":  in.LastName,
		"email":     in.Email,
		"password":  in.Password,
	}
	if in.Company != "" {
		body["company"] = in.Company
	}
	return c.authenticate(ctx, "/api/auth/register", body)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]any{"email": email, "password": password})
}

func (c *HTTPClient) ListReports(ctx context.Context) ([]dto.Report, error) {
	var out []dto.Report
	_, err := c.doJSON(ctx, http.MethodGet, "/api/reports", "", nil, &out)
	return out, err
}

func (c *HTTPClient) ListMyReports(ctx context.Context, token string) ([]dto.Report, error) {
	var out []dto.Report
	_, err := c.doJSON(ctx, http.MethodGet, "/api/reports/me", token, nil, &out)
	return out, err
}

func (c *HTTPClient) CreateReport(ctx context.Context, token string, in dto.CreateReportRequest) (dto.Report, error) {
	if in.Media == nil {
		in.Media = []string{}
	}
	var out dto.Report
	_, err := c.doJSON(ctx, http.MethodPost, "/api/reports", token, in, &out)
	return out, err
}

func (c *HTTPClient) ClaimReport(ctx context.Context, token, id string) (dto.Report, error) {
	var out dto.Report
	_, err := c.doJSON(ctx, http.MethodPatch, "/api/reports/"+id+"/claim", token, struct{}{}, &out)
	return out, err
}

func (c *HTTPClient) ResolveReport(ctx context.Context, token, id string) (dto.Report, error) {
	var out dto.Report
	_, err := c.doJSON(ctx, http.MethodPatch, "/api/reports/"+id+"/resolve", token, struct{}{}, &out)
	return out, err
}

func (c *HTTPClient) GlobalStats(ctx context.Context, token string) (dto.GlobalStats, error) {
	var out dto.GlobalStats
	_, err := c.doJSON(ctx, http.MethodGet, "/api/reports/stats", token, nil, &out)
	return out, err
}

func (c *HTTPClient) UserStats(ctx context.Context, token string) (dto.UserStats, error) {
	var out dto.UserStats
	_, err := c.doJSON(ctx, http.MethodGet, "/api/reports/stats/me", token, nil, &out)
	return out, err
}

// UploadMedia posts files under the "media" form field.
func (c *HTTPClient) UploadMedia(ctx context.Context, files []media.Upload) ([]media.Item, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		if err := writePart(writer, f); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload/media", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out dto.UploadResponse
	if _, err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func writePart(writer *multipart.Writer, f media.Upload) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, f.Filename))
	if f.ContentType != "" {
		header.Set("Content-Type", f.ContentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	body, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Filename, err)
	}
	defer body.Close()
	_, err = io.Copy(part, body)
	return err
}

type authUser struct {
	ID        string `json:"id"`
	ObjectID  string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Token     string `json:"token"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  authUser `json:"user"`
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, body any) (Session, error) {
	var out authResponse
	header, err := c.doJSON(ctx, http.MethodPost, path, "", body, &out)
	if err != nil {
		return Session{}, err
	}
	token := pickToken(out, header)
	if token == "" {
		return Session{}, ErrMissingToken
	}
	id := out.User.ID
	if id == "" {
		id = out.User.ObjectID
	}
	return Session{
		User: SessionUser{
			ID:        id,
			FirstName: out.User.FirstName,
			LastName:  out.User.LastName,
			Email:     out.User.Email,
			Company:   out.User.Company,
		},
		Token: token,
	}, nil
}

// pickToken looks in the body, then the nested user, then the headers.
func pickToken(resp authResponse, header http.Header) string {
	if resp.Token != "" {
		return resp.Token
	}
	if resp.User.Token != "" {
		return resp.User.Token
	}
	if v := strings.TrimSpace(header.Get("Authorization")); v != "" {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	}
	return strings.TrimSpace(header.Get("X-Auth-Token"))
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) (http.Header, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", req.Method), zap.String("url", req.URL.String()), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.Header, fmt.Errorf("decode response: %w", err)
	}
	return resp.Header, nil
}

func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{Status: status}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Error != "":
			apiErr.Message = body.Error
		case body.Msg != "":
			apiErr.Message = body.Msg
		}
	}
	return apiErr
}
