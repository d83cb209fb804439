package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/csvio"
	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
	"github.com/dmitrijs2005/clientkeeper/internal/server/auth"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "rest-secret"

type fakeUsers struct {
	UserService
	roles      map[string]models.Role
	loginErr   error
	refreshErr error
	signedOut  []string
}

func (f *fakeUsers) Register(ctx context.Context, email, password, username string) (*models.User, error) {
	if email == "taken@example.com" {
		return nil, common.ErrorConflict
	}
	return &models.User{ID: "new", Email: email}, nil
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeUsers) SignOut(ctx context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeUsers) CurrentUser(ctx context.Context, userID string) (*services.UserInfo, error) {
	return &services.UserInfo{ID: userID, Email: userID + "@example.com", DisplayName: userID}, nil
}

func (f *fakeUsers) Principal(ctx context.Context, userID string) (models.Principal, error) {
	role, ok := f.roles[userID]
	if !ok {
		role = models.RoleUser
	}
	return models.Principal{UserID: userID, Role: role}, nil
}

func (f *fakeUsers) ListProfiles(ctx context.Context, p models.Principal) ([]models.Profile, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	return []models.Profile{{ID: "a", Username: "ann", Role: models.RoleAdmin}}, nil
}

func (f *fakeUsers) SetRole(ctx context.Context, p models.Principal, userID string, role models.Role) error {
	if !p.IsAdmin() {
		return common.ErrorForbidden
	}
	return nil
}

type fakeRecords struct {
	RecordService
	lastView   services.View
	lastCreate models.ServiceInput
	lastNote   string
	imported   string
	importErr  error
	exportErr  error
	principal  models.Principal
}

func (f *fakeRecords) List(ctx context.Context, p models.Principal, v services.View) ([]services.RecordView, error) {
	f.lastView = v
	f.principal = p
	return []services.RecordView{{ServiceRecord: models.ServiceRecord{ID: 1, OwnerID: p.UserID, Device: []string{}}}}, nil
}

func (f *fakeRecords) Get(ctx context.Context, p models.Principal, id int64) (*services.RecordView, error) {
	if id != 1 {
		return nil, common.ErrorNotFound
	}
	return &services.RecordView{ServiceRecord: models.ServiceRecord{ID: 1}}, nil
}

func (f *fakeRecords) Create(ctx context.Context, p models.Principal, in models.ServiceInput) (*services.RecordView, error) {
	f.lastCreate = in
	if in.Amount < 0 {
		return nil, common.ErrorValidation
	}
	return &services.RecordView{ServiceRecord: models.ServiceRecord{ID: 5, OwnerID: p.UserID, Name: in.Name}}, nil
}

func (f *fakeRecords) Update(ctx context.Context, p models.Principal, id int64, patch models.ServicePatch) (*services.RecordView, error) {
	return nil, common.ErrorForbidden
}

func (f *fakeRecords) UpdateNote(ctx context.Context, p models.Principal, id int64, note string) error {
	f.lastNote = note
	return nil
}

func (f *fakeRecords) Delete(ctx context.Context, p models.Principal, id int64) error {
	return nil
}

func (f *fakeRecords) Import(ctx context.Context, p models.Principal, r io.Reader) (*services.ImportReport, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	b, _ := io.ReadAll(r)
	f.imported = string(b)
	return &services.ImportReport{Inserted: 1, Errors: []csvio.RowError{}}, f.importErr
}

func (f *fakeRecords) Export(ctx context.Context, p models.Principal) (string, []byte, error) {
	if f.exportErr != nil {
		return "", nil, f.exportErr
	}
	return "servicios_exportados_2024-01-10.csv", []byte("id\n1\n"), nil
}

type fakeImages struct {
	ImageService
	uploadedName string
	uploadedBody string
}

func (f *fakeImages) Upload(ctx context.Context, p models.Principal, serviceID int64, fileName string, body []byte) (*models.ServiceImage, error) {
	f.uploadedName = fileName
	f.uploadedBody = string(body)
	return &models.ServiceImage{ID: 1, ServiceID: serviceID, FilePath: "x/1/a.png"}, nil
}

func (f *fakeImages) Delete(ctx context.Context, p models.Principal, imageID int64) (*services.DeleteResult, error) {
	return &services.DeleteResult{BlobRemoved: false}, nil
}

type fixture struct {
	srv     *httptest.Server
	users   *fakeUsers
	records *fakeRecords
	images  *fakeImages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:   &fakeUsers{roles: map[string]models.Role{"admin": models.RoleAdmin}},
		records: &fakeRecords{},
		images:  &fakeImages{},
	}
	s := NewServer(":0", logging.NewNopLogger(), f.users, f.records, f.images, testSecret, 1<<20)
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func tokenFor(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), ttl)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPingAndOptions(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/ping", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/options", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opts := decodeBody[record.Options](t, resp)
	assert.Equal(t, record.DeviceOptions, opts.Devices)
}

func TestAuthRoutes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/auth/register", "", "application/json",
		strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/register", "", "application/json",
		strings.NewReader(`{"email":"taken@example.com","password":"secret1"}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", "application/json", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", "application/json",
		strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pair := decodeBody[services.TokenPair](t, resp)
	assert.Equal(t, "r", pair.RefreshToken)

	f.users.loginErr = common.ErrorUnauthorized
	resp = f.do(t, http.MethodPost, "/api/auth/login", "", "application/json",
		strings.NewReader(`{"email":"a@example.com","password":"bad"}`))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	f.users.refreshErr = common.ErrRefreshTokenExpired
	resp = f.do(t, http.MethodPost, "/api/auth/refresh", "", "application/json",
		strings.NewReader(`{"refresh_token":"r"}`))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/logout", "", "application/json",
		strings.NewReader(`{"refresh_token":"r"}`))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"r"}, f.users.signedOut)
}

func TestAccessToken(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/services", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/services", "garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeBody[ErrorResponse](t, resp).Error)

	resp = f.do(t, http.MethodGet, "/api/services", tokenFor(t, "alice", -time.Minute), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token expired", decodeBody[ErrorResponse](t, resp).Error)

	resp = f.do(t, http.MethodGet, "/api/me", tokenFor(t, "alice", time.Minute), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decodeBody[services.UserInfo](t, resp).ID)
}

func TestServiceRoutes(t *testing.T) {
	f := newFixture(t)
	tok := tokenFor(t, "alice", time.Minute)

	resp := f.do(t, http.MethodGet, "/api/services?view=upcoming", tok, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, services.ViewUpcoming, f.records.lastView)
	assert.Equal(t, "alice", f.records.principal.UserID)

	resp = f.do(t, http.MethodGet, "/api/services?view=bogus", tok, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/services/1", tok, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/services/2", tok, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/services/abc", tok, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := `{"name":"Ana","username":"ana1","purchase_date":"2024-01-01","expiration_date":"2024-02-01",
		"device_counts":{"LG":1},"amount":10}`
	resp = f.do(t, http.MethodPost, "/api/services", tok, "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, record.NewDate(2024, 2, 1), f.records.lastCreate.ExpirationDate)
	assert.Equal(t, record.DeviceCounts{"LG": 1}, f.records.lastCreate.DeviceCounts)

	resp = f.do(t, http.MethodPatch, "/api/services/1", tok, "application/json", strings.NewReader(`{"owner_id":"bob"}`))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/services/1/note", tok, "application/json", strings.NewReader(`{"note":"hola"}`))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "hola", f.records.lastNote)

	resp = f.do(t, http.MethodDelete, "/api/services/1", tok, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestImportExport(t *testing.T) {
	f := newFixture(t)
	admin := tokenFor(t, "admin", time.Minute)
	user := tokenFor(t, "alice", time.Minute)

	resp := f.do(t, http.MethodPost, "/api/import", user, "text/csv", strings.NewReader("name\n"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/import", admin, "text/csv", strings.NewReader("name\nA\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "name\nA\n", f.records.imported)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "clients.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("name\nB\n"))
	require.NoError(t, mw.Close())
	resp = f.do(t, http.MethodPost, "/api/import", admin, mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "name\nB\n", f.records.imported)

	resp = f.do(t, http.MethodGet, "/api/export", user, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "servicios_exportados_2024-01-10.csv")

	f.records.exportErr = common.ErrNothingToExport
	resp = f.do(t, http.MethodGet, "/api/export", user, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImageRoutes(t *testing.T) {
	f := newFixture(t)
	tok := tokenFor(t, "alice", time.Minute)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("pngdata"))
	require.NoError(t, mw.Close())

	resp := f.do(t, http.MethodPost, "/api/services/3/images", tok, mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "photo.png", f.images.uploadedName)
	assert.Equal(t, "pngdata", f.images.uploadedBody)
	assert.Equal(t, int64(3), decodeBody[models.ServiceImage](t, resp).ServiceID)

	resp = f.do(t, http.MethodPost, "/api/services/3/images", tok, "application/json", strings.NewReader("{}"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/images/1", tok, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeBody[services.DeleteResult](t, resp).BlobRemoved)
}

func TestProfilesRoutes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/profiles", tokenFor(t, "alice", time.Minute), "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := tokenFor(t, "admin", time.Minute)
	resp = f.do(t, http.MethodGet, "/api/profiles", admin, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	const bob = "/api/profiles/3f2b8c1e-6a4d-4e1b-9c7a-2d5e8f0a1b2c/role"
	resp = f.do(t, http.MethodPut, bob, admin, "application/json", strings.NewReader(`{"role":"root"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodPut, "/api/profiles/b/role", admin, "application/json", strings.NewReader(`{"role":"admin"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodPut, bob, admin, "application/json", strings.NewReader(`{"role":"admin"}`))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		common.ErrTokenExpired:    http.StatusUnauthorized,
		common.ErrorForbidden:     http.StatusForbidden,
		common.ErrorNotFound:      http.StatusNotFound,
		common.ErrNothingToExport: http.StatusNotFound,
		common.ErrorValidation:    http.StatusBadRequest,
		common.ErrorConflict:      http.StatusConflict,
		io.ErrUnexpectedEOF:       http.StatusInternalServerError,
	}
	for err, want := range cases {
		got, _ := statusFor(err)
		assert.Equal(t, want, got, err.Error())
	}
	_, msg := statusFor(io.ErrUnexpectedEOF)
	assert.Equal(t, "internal error", msg, "internal details stay hidden")
}
