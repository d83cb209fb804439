package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, client.RunMigrations(context.Background(), db))
	return db
}

// fakeClient implements client.Client; unset methods panic through the
// nil embedded interface.
type fakeClient struct {
	client.Client

	registered  []string
	registerErr error

	loginPair *models.TokenPair
	loginErr  error
	lastPass  string

	resumeToken string
	resumePair  *models.TokenPair
	resumeErr   error

	me    *models.User
	meErr error

	logoutCalls int
	logoutErr   error

	list    []models.Service
	listErr error
	views   []string
	// onList runs while a list request is in flight.
	onList func()

	byID   map[int64]models.Service
	getErr error

	created   []models.ServiceInput
	patched   map[int64]models.ServicePatch
	notes     map[int64]string
	deleted   []int64
	deleteErr error

	uploads []string
	export  []byte
	name    string
	imports []string
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Register(ctx context.Context, email, password, username string) error {
	f.registered = append(f.registered, email+"/"+password+"/"+username)
	return f.registerErr
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	f.lastPass = password
	return f.loginPair, f.loginErr
}

func (f *fakeClient) Resume(ctx context.Context, token string) (*models.TokenPair, error) {
	f.resumeToken = token
	return f.resumePair, f.resumeErr
}

func (f *fakeClient) Me(ctx context.Context) (*models.User, error) { return f.me, f.meErr }

func (f *fakeClient) Logout(ctx context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeClient) ListServices(ctx context.Context, view string) ([]models.Service, error) {
	f.views = append(f.views, view)
	if f.onList != nil {
		f.onList()
	}
	return f.list, f.listErr
}

func (f *fakeClient) GetService(ctx context.Context, id int64) (*models.Service, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.byID[id]
	if !ok {
		return nil, client.ErrUnavailable
	}
	return &rec, nil
}

func (f *fakeClient) CreateService(ctx context.Context, in models.ServiceInput) (*models.Service, error) {
	f.created = append(f.created, in)
	return &models.Service{ID: int64(100 + len(f.created)), Name: in.Name, Username: in.Username}, nil
}

func (f *fakeClient) UpdateService(ctx context.Context, id int64, p models.ServicePatch) (*models.Service, error) {
	if f.patched == nil {
		f.patched = map[int64]models.ServicePatch{}
	}
	f.patched[id] = p
	rec := f.byID[id]
	if p.Name != nil {
		rec.Name = *p.Name
	}
	return &rec, nil
}

func (f *fakeClient) UpdateNote(ctx context.Context, id int64, note string) error {
	if f.notes == nil {
		f.notes = map[int64]string{}
	}
	f.notes[id] = note
	if rec, ok := f.byID[id]; ok {
		rec.Note = &note
		f.byID[id] = rec
	}
	return nil
}

func (f *fakeClient) DeleteService(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) UploadImage(ctx context.Context, id int64, name string, body []byte) (*models.Image, error) {
	f.uploads = append(f.uploads, name+":"+string(body))
	return &models.Image{ID: 1, ServiceID: id, FilePath: "o/1/" + name}, nil
}

func (f *fakeClient) Import(ctx context.Context, name string, body []byte) (*models.ImportReport, error) {
	f.imports = append(f.imports, name)
	return &models.ImportReport{Inserted: 2}, nil
}

func (f *fakeClient) Export(ctx context.Context) (string, []byte, error) {
	return f.name, f.export, nil
}
