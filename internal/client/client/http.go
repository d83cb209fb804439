package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
)

// APIError is a non-2xx answer of the server. It unwraps to the sentinel
// matching its status.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.kind }

type response struct {
	status int
	header http.Header
	body   []byte
}

// HTTPClient talks to the clientkeeper JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onRefresh    func(models.TokenPair)

	refreshMu sync.Mutex
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// OnTokensRefreshed registers fn to be called with every new token pair,
// including the ones obtained by transparent refreshes.
func (c *HTTPClient) OnTokensRefreshed(fn func(models.TokenPair)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

// Tokens returns the current token pair.
func (c *HTTPClient) Tokens() models.TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.TokenPair{AccessToken: c.accessToken, RefreshToken: c.refreshToken}
}

func (c *HTTPClient) setTokens(p models.TokenPair) {
	c.mu.Lock()
	c.accessToken = p.AccessToken
	c.refreshToken = p.RefreshToken
	fn := c.onRefresh
	c.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

func (c *HTTPClient) clearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
}

func (c *HTTPClient) send(ctx context.Context, method, path, contentType string, body []byte, token string) (*response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// call performs an authenticated request. When the server reports an
// expired access token, the tokens are refreshed once and the request is
// repeated.
func (c *HTTPClient) call(ctx context.Context, method, path, contentType string, body []byte) (*response, error) {
	token := c.Tokens().AccessToken
	if token == "" {
		return nil, ErrNoSession
	}

	resp, err := c.send(ctx, method, path, contentType, body, token)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusUnauthorized || errorMessage(resp.body) != common.ErrTokenExpired.Error() {
		return resp, nil
	}

	if err := c.refresh(ctx, token); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, contentType, body, c.Tokens().AccessToken)
}

// refresh exchanges the refresh token for a new pair unless another caller
// already replaced the stale access token.
func (c *HTTPClient) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.Tokens()
	if cur.AccessToken != stale && cur.AccessToken != "" {
		return nil
	}
	if cur.RefreshToken == "" {
		return ErrUnauthorized
	}

	pair, err := c.exchange(ctx, cur.RefreshToken)
	if err != nil {
		return err
	}
	c.setTokens(*pair)
	return nil
}

func (c *HTTPClient) exchange(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", "application/json", body, "")
	if err != nil {
		return nil, err
	}
	var pair models.TokenPair
	if err := decode(resp, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return e.Error
}

func apiError(resp *response) error {
	msg := errorMessage(resp.body)
	e := &APIError{Status: resp.status, Message: msg}
	switch {
	case resp.status == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case resp.status == http.StatusForbidden:
		e.kind = common.ErrorForbidden
	case resp.status == http.StatusNotFound && msg == common.ErrNothingToExport.Error():
		e.kind = common.ErrNothingToExport
	case resp.status == http.StatusNotFound:
		e.kind = common.ErrorNotFound
	case resp.status == http.StatusBadRequest:
		e.kind = common.ErrorValidation
	case resp.status == http.StatusConflict:
		e.kind = common.ErrorConflict
	case resp.status == http.StatusBadGateway, resp.status == http.StatusServiceUnavailable, resp.status == http.StatusGatewayTimeout:
		e.kind = ErrUnavailable
	default:
		e.kind = common.ErrorInternal
	}
	return e
}

// decode maps error statuses and unmarshals a 2xx body into out (if non-nil).
func decode(resp *response, out any) error {
	if resp.status < 200 || resp.status > 299 {
		return apiError(resp)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) callJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body, contentType = b, "application/json"
	}
	resp, err := c.call(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *HTTPClient) publicJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body, contentType = b, "application/json"
	}
	resp, err := c.send(ctx, method, path, contentType, body, "")
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func multipartFile(fileName string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.publicJSON(ctx, http.MethodGet, "/ping", nil, nil)
}

func (c *HTTPClient) Options(ctx context.Context) (*record.Options, error) {
	var opts record.Options
	if err := c.publicJSON(ctx, http.MethodGet, "/api/options", nil, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (c *HTTPClient) Register(ctx context.Context, email, password, username string) error {
	in := map[string]string{"email": email, "password": password, "username": username}
	return c.publicJSON(ctx, http.MethodPost, "/api/auth/register", in, nil)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	var pair models.TokenPair
	in := map[string]string{"email": email, "password": password}
	if err := c.publicJSON(ctx, http.MethodPost, "/api/auth/login", in, &pair); err != nil {
		return nil, err
	}
	c.setTokens(pair)
	return &pair, nil
}

// Resume starts a session from a stored refresh token.
func (c *HTTPClient) Resume(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	pair, err := c.exchange(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	c.setTokens(*pair)
	return pair, nil
}

// Logout revokes the refresh token. Local tokens are dropped even when the
// server cannot be reached.
func (c *HTTPClient) Logout(ctx context.Context) error {
	refresh := c.Tokens().RefreshToken
	c.clearTokens()
	if refresh == "" {
		return nil
	}
	return c.publicJSON(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": refresh}, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.callJSON(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Profiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := c.callJSON(ctx, http.MethodGet, "/api/profiles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) SetRole(ctx context.Context, userID, role string) error {
	return c.callJSON(ctx, http.MethodPut, "/api/profiles/"+url.PathEscape(userID)+"/role", map[string]string{"role": role}, nil)
}

func (c *HTTPClient) ListServices(ctx context.Context, view string) ([]models.Service, error) {
	path := "/api/services"
	if view != "" {
		path += "?view=" + url.QueryEscape(view)
	}
	var out []models.Service
	if err := c.callJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func servicePath(id int64) string {
	return "/api/services/" + strconv.FormatInt(id, 10)
}

func (c *HTTPClient) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	if err := c.callJSON(ctx, http.MethodGet, servicePath(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) CreateService(ctx context.Context, in models.ServiceInput) (*models.Service, error) {
	var s models.Service
	if err := c.callJSON(ctx, http.MethodPost, "/api/services", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) UpdateService(ctx context.Context, id int64, patch models.ServicePatch) (*models.Service, error) {
	var s models.Service
	if err := c.callJSON(ctx, http.MethodPatch, servicePath(id), patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) UpdateNote(ctx context.Context, id int64, note string) error {
	return c.callJSON(ctx, http.MethodPut, servicePath(id)+"/note", map[string]string{"note": note}, nil)
}

func (c *HTTPClient) DeleteService(ctx context.Context, id int64) error {
	return c.callJSON(ctx, http.MethodDelete, servicePath(id), nil, nil)
}

func (c *HTTPClient) ListImages(ctx context.Context, serviceID int64) ([]models.Image, error) {
	var out []models.Image
	if err := c.callJSON(ctx, http.MethodGet, servicePath(serviceID)+"/images", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UploadImage(ctx context.Context, serviceID int64, fileName string, data []byte) (*models.Image, error) {
	body, contentType, err := multipartFile(fileName, data)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, http.MethodPost, servicePath(serviceID)+"/images", contentType, body)
	if err != nil {
		return nil, err
	}
	var img models.Image
	if err := decode(resp, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

func (c *HTTPClient) DeleteImage(ctx context.Context, imageID int64) (*models.DeleteImageResult, error) {
	var res models.DeleteImageResult
	if err := c.callJSON(ctx, http.MethodDelete, "/api/images/"+strconv.FormatInt(imageID, 10), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Import(ctx context.Context, fileName string, data []byte) (*models.ImportReport, error) {
	body, contentType, err := multipartFile(fileName, data)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, http.MethodPost, "/api/import", contentType, body)
	if err != nil {
		return nil, err
	}
	var report models.ImportReport
	if err := decode(resp, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Export downloads the CSV export and returns the file name suggested by
// the server together with the content.
func (c *HTTPClient) Export(ctx context.Context) (string, []byte, error) {
	resp, err := c.call(ctx, http.MethodGet, "/api/export", "", nil)
	if err != nil {
		return "", nil, err
	}
	if err := decode(resp, nil); err != nil {
		return "", nil, err
	}

	name := "export.csv"
	if _, params, err := mime.ParseMediaType(resp.header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, resp.body, nil
}

var _ Client = (*HTTPClient)(nil)
