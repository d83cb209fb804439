package state

import (
	"testing"

	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func svc(id int64, name string) models.Service {
	return models.Service{ID: id, Name: name}
}

func signedIn() *AppState {
	s := New()
	s.SignIn(models.User{ID: "u1", Email: "a@example.com", Profile: models.Profile{Role: "user"}})
	return s
}

func TestApplyServices_DropsStaleResponses(t *testing.T) {
	s := signedIn()

	first := s.BeginRequest()
	second := s.BeginRequest()

	require.True(t, s.ApplyServices(second, []models.Service{svc(2, "new")}))
	assert.False(t, s.ApplyServices(first, []models.Service{svc(1, "old")}), "older response must be dropped")

	list := s.Services()
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Name)
}

func TestApplyDetail_IndependentOfList(t *testing.T) {
	s := signedIn()

	listSeq := s.BeginRequest()
	detailSeq := s.BeginRequest()

	require.True(t, s.ApplyDetail(detailSeq, svc(3, "d")))
	require.True(t, s.ApplyServices(listSeq, []models.Service{svc(3, "d")}), "list and detail are sequenced separately")

	stale := listSeq
	assert.False(t, s.ApplyDetail(stale, svc(3, "stale")))
	d, ok := s.Detail()
	require.True(t, ok)
	assert.Equal(t, "d", d.Name)
}

func TestSignOut_DiscardsInFlight(t *testing.T) {
	s := signedIn()
	seq := s.BeginRequest()

	s.SignOut()
	assert.False(t, s.SignedIn())
	assert.False(t, s.ApplyServices(seq, []models.Service{svc(1, "x")}))

	s.SignIn(models.User{ID: "u2"})
	assert.False(t, s.ApplyServices(seq, []models.Service{svc(1, "x")}), "requests from the previous session stay discarded")
	assert.Empty(t, s.Services())

	next := s.BeginRequest()
	assert.True(t, s.ApplyServices(next, nil))
}

func TestApply_RequiresSession(t *testing.T) {
	s := New()
	assert.False(t, s.ApplyServices(s.BeginRequest(), []models.Service{svc(1, "x")}))
	assert.False(t, s.ApplyDetail(s.BeginRequest(), svc(1, "x")))
	_, ok := s.User()
	assert.False(t, ok)
}

func TestUpsertAndRemove(t *testing.T) {
	s := signedIn()
	require.True(t, s.ApplyServices(s.BeginRequest(), []models.Service{svc(2, "b"), svc(1, "a")}))
	require.True(t, s.ApplyDetail(s.BeginRequest(), svc(1, "a")))

	s.UpsertService(svc(1, "a2"))
	s.UpsertService(svc(3, "c"))

	list := s.Services()
	require.Len(t, list, 3)
	assert.Equal(t, int64(3), list[0].ID)
	assert.Equal(t, "a2", list[2].Name)
	d, _ := s.Detail()
	assert.Equal(t, "a2", d.Name)

	s.RemoveService(1)
	assert.Len(t, s.Services(), 2)
	_, ok := s.Detail()
	assert.False(t, ok)
}

func TestMutation_DropsListBegunBefore(t *testing.T) {
	s := signedIn()
	require.True(t, s.ApplyServices(s.BeginRequest(), []models.Service{svc(1, "before-edit")}))

	seq := s.BeginRequest()
	s.UpsertService(svc(1, "edited"))
	assert.False(t, s.ApplyServices(seq, []models.Service{svc(1, "before-edit")}), "list begun before the edit must be dropped")
	list := s.Services()
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Name)

	seq = s.BeginRequest()
	s.RemoveService(1)
	assert.False(t, s.ApplyServices(seq, []models.Service{svc(1, "edited")}))
	assert.Empty(t, s.Services())

	assert.True(t, s.ApplyServices(s.BeginRequest(), []models.Service{svc(2, "fresh")}), "requests begun after the change still apply")
}

func TestMutation_DropsDetailOfSameRecord(t *testing.T) {
	s := signedIn()
	require.True(t, s.ApplyDetail(s.BeginRequest(), svc(1, "a")))

	seq := s.BeginRequest()
	s.UpsertService(svc(1, "a2"))
	assert.False(t, s.ApplyDetail(seq, svc(1, "a")))
	d, ok := s.Detail()
	require.True(t, ok)
	assert.Equal(t, "a2", d.Name)
}

func TestServices_ReturnsCopy(t *testing.T) {
	s := signedIn()
	require.True(t, s.ApplyServices(s.BeginRequest(), []models.Service{svc(1, "a")}))

	list := s.Services()
	list[0].Name = "mutated"
	assert.Equal(t, "a", s.Services()[0].Name)
}

func TestIsAdmin(t *testing.T) {
	s := New()
	assert.False(t, s.IsAdmin())
	s.SignIn(models.User{ID: "a", Profile: models.Profile{Role: "admin"}})
	assert.True(t, s.IsAdmin())
}
