// Package gateway is the HTTP client for the lookup API. It maps server
// responses onto typed results and a small error taxonomy, and never retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
	"lookupdesk/logger"
	"lookupdesk/models"

	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout             = 30 * time.Second
	DefaultMinSuggestionLength = 3
)

// Client talks to one lookup server on behalf of a Session.
type Client struct {
	baseURL       string
	session       *Session
	httpClient    *http.Client
	minSuggestLen int
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMinSuggestionLength sets how many runes a fragment needs before
// SuggestIdentifiers calls the server.
func WithMinSuggestionLength(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.minSuggestLen = n
		}
	}
}

// NewClient builds a client for baseURL. A nil session starts logged out.
func NewClient(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession()
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		session:       session,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		minSuggestLen: DefaultMinSuggestionLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// Login is the result of a successful Authenticate.
type Login struct {
	Username string
	Token    string
	Role     string
}

// UploadResult is the server's answer to a dataset upload.
type UploadResult struct {
	Message       string
	Columns       []string
	CurrentConfig models.Configuration
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	admin       bool
	ep          endpoint
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	token := c.session.Token()
	if req.admin && token == "" {
		return nil, &APIError{Kind: ErrUnauthorized, Detail: "not logged in"}
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return nil, connectionError(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.admin {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("gateway: %s %s failed: %v", req.method, req.path, err)
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionError(fmt.Errorf("reading response: %w", err))
	}
	logger.Debug("gateway: %s %s -> %d in %s", req.method, req.path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := gjson.GetBytes(body, "detail").String()
		if detail == "" && !gjson.ValidBytes(body) {
			detail = strings.TrimSpace(string(body))
		}
		return nil, classify(req.ep, resp.StatusCode, detail)
	}
	return body, nil
}

func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Authenticate logs in with the OAuth2 password form. Only ADMIN accounts
// are accepted; any other role fails with ErrForbidden and leaves the
// session untouched.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Login, error) {
	form := url.Values{"username": {username}, "password": {password}}
	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		ep:          endpointAuth,
	})
	if err != nil {
		return Login{}, err
	}

	res := gjson.ParseBytes(body)
	login := Login{
		Username: username,
		Token:    res.Get("access_token").String(),
		Role:     res.Get("role").String(),
	}
	if login.Token == "" {
		return Login{}, &APIError{Kind: ErrServer, Detail: "login response carried no access token"}
	}
	if login.Role != models.RoleAdmin {
		return Login{}, &APIError{Kind: ErrForbidden, Detail: "account does not have the ADMIN role"}
	}
	c.session.Login(login.Username, login.Token, login.Role)
	return login, nil
}

// Register creates a USER account. Duplicate or rejected usernames fail
// with ErrConflict.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := jsonBody(models.Credentials{Username: username, Password: password})
	if err != nil {
		return connectionError(err)
	}
	_, err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/register",
		body:        body,
		contentType: "application/json",
		ep:          endpointRegister,
	})
	return err
}

// UploadDataset sends a spreadsheet as the multipart field "file".
func (c *Client) UploadDataset(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return UploadResult{}, connectionError(err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, connectionError(fmt.Errorf("reading %s: %w", filename, err))
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, connectionError(err)
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/admin/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		admin:       true,
		ep:          endpointUpload,
	})
	if err != nil {
		return UploadResult{}, err
	}
	res := gjson.ParseBytes(body)
	cfg := configFromJSON(res.Get("current_config"))
	out := UploadResult{
		Message: res.Get("message").String(),
		Columns: stringsFromJSON(res.Get("columns")),
	}
	if cfg != nil {
		out.CurrentConfig = *cfg
	}
	return out, nil
}

// GetConfig returns the saved configuration, or nil when none is saved.
func (c *Client) GetConfig(ctx context.Context) (*models.Configuration, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/config", admin: true, ep: endpointConfig})
	if err != nil {
		return nil, err
	}
	return configFromJSON(gjson.ParseBytes(body)), nil
}

// SaveConfig validates cfg locally, then stores it on the server.
func (c *Client) SaveConfig(ctx context.Context, cfg models.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return &APIError{Kind: ErrValidation, Err: err}
	}
	body, err := jsonBody(models.ConfigPayload{
		DNIColumn:       cfg.DNIColumn,
		DateColumn:      cfg.DateColumn,
		SelectedColumns: cfg.VisibleColumns,
	})
	if err != nil {
		return connectionError(err)
	}
	_, err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/admin/config",
		body:        body,
		contentType: "application/json",
		admin:       true,
		ep:          endpointConfig,
	})
	return err
}

// Columns lists the header of the active dataset.
func (c *Client) Columns(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/columns", admin: true, ep: endpointAdmin})
	if err != nil {
		return nil, err
	}
	return stringsFromJSON(gjson.GetBytes(body, "columns")), nil
}

// SearchUser runs the public lookup.
func (c *Client) SearchUser(ctx context.Context, dni, entryDate string) (models.ResultSet, error) {
	body, err := jsonBody(models.UserQuery{DNI: dni, FechaIngreso: entryDate})
	if err != nil {
		return models.ResultSet{}, connectionError(err)
	}
	data, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/query/user",
		body:        body,
		contentType: "application/json",
		ep:          endpointSearch,
	})
	if err != nil {
		return models.ResultSet{}, err
	}
	rs, err := models.ResultSetFromJSON(gjson.ParseBytes(data))
	if err != nil {
		return models.ResultSet{}, connectionError(fmt.Errorf("decoding search result: %w", err))
	}
	return rs, nil
}

// SuggestIdentifiers autocompletes identifiers. Fragments shorter than the
// minimum length return an empty slice without contacting the server.
func (c *Client) SuggestIdentifiers(ctx context.Context, fragment string) ([]string, error) {
	fragment = strings.TrimSpace(fragment)
	if utf8.RuneCountInString(fragment) < c.minSuggestLen {
		return []string{}, nil
	}
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/admin/suggestions",
		query:  url.Values{"dni_fragment": {fragment}},
		admin:  true,
		ep:     endpointAdmin,
	})
	if err != nil {
		return nil, err
	}
	return stringsFromJSON(gjson.ParseBytes(body)), nil
}

// GetUserDetail returns the full record for dni. An empty record means the
// server has no dataset loaded.
func (c *Client) GetUserDetail(ctx context.Context, dni string) (models.Record, error) {
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/admin/user-detail",
		query:  url.Values{"dni": {dni}},
		admin:  true,
		ep:     endpointAdmin,
	})
	if err != nil {
		return models.Record{}, err
	}
	rec, err := models.RecordFromJSON(gjson.ParseBytes(body))
	if err != nil {
		return models.Record{}, connectionError(fmt.Errorf("decoding user detail: %w", err))
	}
	return rec, nil
}

func stringsFromJSON(arr gjson.Result) []string {
	out := []string{}
	for _, v := range arr.Array() {
		out = append(out, v.String())
	}
	return out
}

// configFromJSON returns nil for a missing or empty configuration object.
func configFromJSON(obj gjson.Result) *models.Configuration {
	if !obj.IsObject() {
		return nil
	}
	cfg := models.Configuration{
		DNIColumn:  obj.Get("dni_column").String(),
		DateColumn: obj.Get("date_column").String(),
	}
	if vis := obj.Get("visible_columns"); vis.IsArray() {
		cfg.VisibleColumns = stringsFromJSON(vis)
	}
	if cfg.DNIColumn == "" && cfg.DateColumn == "" && len(cfg.VisibleColumns) == 0 {
		return nil
	}
	return &cfg
}
