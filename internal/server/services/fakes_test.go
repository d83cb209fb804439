package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/blob"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/images"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/services"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	users.Repository
	byEmail   map[string]*models.User
	byID      map[string]*models.User
	created   []*models.User
	createErr error
	getErr    error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "id-" + u.Email
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

// --- profiles ---

type fakeProfilesRepo struct {
	profiles.Repository
	byID      map[string]*models.Profile
	created   []*models.Profile
	createErr error
	getErr    error
	roles     map[string]models.Role
}

func (f *fakeProfilesRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfilesRepo) List(ctx context.Context) ([]models.Profile, error) {
	out := []models.Profile{}
	for _, p := range f.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeProfilesRepo) Create(ctx context.Context, p *models.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, p)
	return nil
}

func (f *fakeProfilesRepo) SetRole(ctx context.Context, id string, role models.Role) error {
	if f.roles == nil {
		f.roles = map[string]models.Role{}
	}
	f.roles[id] = role
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	deleted   []string
	created   []string
	expires   []time.Time

	delUserErr   error
	revokedUsers []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	f.expires = append(f.expires, expiresAt)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(ctx context.Context, userID string) error {
	if f.delUserErr != nil {
		return f.delUserErr
	}
	f.revokedUsers = append(f.revokedUsers, userID)
	return nil
}

// --- services ---

type fakeServicesRepo struct {
	records   map[int64]*models.ServiceRecord
	nextID    int64
	lastList  services.Filter
	batch     []models.ServiceRecord
	batchErr  error
	mutations int
	notes     map[int64]*string
	listErr   error
}

func newFakeServicesRepo(recs ...models.ServiceRecord) *fakeServicesRepo {
	f := &fakeServicesRepo{records: map[int64]*models.ServiceRecord{}, nextID: 100, notes: map[int64]*string{}}
	for i := range recs {
		r := recs[i]
		f.records[r.ID] = &r
	}
	return f
}

func (f *fakeServicesRepo) List(ctx context.Context, flt services.Filter) ([]models.ServiceRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastList = flt
	out := []models.ServiceRecord{}
	for _, r := range f.records {
		if flt.OwnerID != nil && r.OwnerID != *flt.OwnerID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeServicesRepo) GetByID(ctx context.Context, id int64) (*models.ServiceRecord, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeServicesRepo) Insert(ctx context.Context, rec *models.ServiceRecord) (*models.ServiceRecord, error) {
	f.mutations++
	f.nextID++
	cp := *rec
	cp.ID = f.nextID
	f.records[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeServicesRepo) InsertBatch(ctx context.Context, recs []models.ServiceRecord) (int64, error) {
	f.mutations++
	if f.batchErr != nil {
		return 0, f.batchErr
	}
	f.batch = append(f.batch, recs...)
	return int64(len(recs)), nil
}

func (f *fakeServicesRepo) Update(ctx context.Context, id int64, rec *models.ServiceRecord) (*models.ServiceRecord, error) {
	f.mutations++
	if _, ok := f.records[id]; !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	cp.ID = id
	f.records[id] = &cp
	out := cp
	return &out, nil
}

func (f *fakeServicesRepo) UpdateNote(ctx context.Context, id int64, note *string) error {
	f.mutations++
	r, ok := f.records[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.Note = note
	f.notes[id] = note
	return nil
}

func (f *fakeServicesRepo) Delete(ctx context.Context, id int64) error {
	f.mutations++
	if _, ok := f.records[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.records, id)
	return nil
}

// --- images ---

type fakeImagesRepo struct {
	images.Repository
	byID      map[int64]*models.ServiceImage
	createErr error
	deleteErr error
	created   []*models.ServiceImage
	deleted   []int64
}

func (f *fakeImagesRepo) ListByService(ctx context.Context, serviceID int64) ([]models.ServiceImage, error) {
	out := []models.ServiceImage{}
	for _, img := range f.byID {
		if img.ServiceID == serviceID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeImagesRepo) GetByID(ctx context.Context, id int64) (*models.ServiceImage, error) {
	img, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeImagesRepo) Create(ctx context.Context, img *models.ServiceImage) (*models.ServiceImage, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	img.ID = int64(len(f.created) + 1)
	f.created = append(f.created, img)
	return img, nil
}

func (f *fakeImagesRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	u   *fakeUsersRepo
	p   *fakeProfilesRepo
	r   *fakeRefreshRepo
	s   *fakeServicesRepo
	img *fakeImagesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profiles.Repository           { return m.p }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Services(db dbx.DBTX) services.Repository           { return m.s }
func (m *fakeRepoManager) Images(db dbx.DBTX) images.Repository               { return m.img }

// --- blob store ---

type fakeStore struct {
	uploads   map[string][]byte
	opts      blob.UploadOptions
	uploadErr error
	removeErr error
	removed   [][]string
	// removeDeadline reports whether the last Remove ran under a deadline.
	removeDeadline bool
}

func newFakeStore() *fakeStore { return &fakeStore{uploads: map[string][]byte{}} }

func (f *fakeStore) Upload(ctx context.Context, path string, body []byte, opts blob.UploadOptions) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[path] = body
	f.opts = opts
	return nil
}

func (f *fakeStore) PublicURL(path string) string { return "http://cdn/bucket/" + path }

func (f *fakeStore) Remove(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, f.removeDeadline = ctx.Deadline()
	f.removed = append(f.removed, paths)
	return f.removeErr
}
