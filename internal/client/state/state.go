// Package state holds the CLI's view of the signed-in session: the user,
// the last fetched record list and the record shown in detail.
//
// Responses are applied through sequence numbers handed out by BeginRequest.
// A response older than the last one applied to the same view is dropped,
// so a slow list request can never overwrite the result of a newer one.
package state

import (
	"slices"
	"sync"

	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
)

type AppState struct {
	mu sync.Mutex

	user     *models.User
	services []models.Service
	detail   *models.Service

	seq           uint64
	appliedList   uint64
	appliedDetail uint64
}

func New() *AppState {
	return &AppState{}
}

// SignIn starts a session for u and drops anything left from a previous one.
func (s *AppState) SignIn(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.user = &u
}

// SignOut clears the session. Responses to requests issued before the call
// are discarded when they arrive.
func (s *AppState) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *AppState) reset() {
	s.user = nil
	s.services = nil
	s.detail = nil
	s.appliedList = s.seq
	s.appliedDetail = s.seq
}

func (s *AppState) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *AppState) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

func (s *AppState) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.Profile.IsAdmin()
}

// BeginRequest returns the sequence number to pass to ApplyServices or
// ApplyDetail once the response arrives.
func (s *AppState) BeginRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// ApplyServices replaces the list unless a newer list was already applied
// or no one is signed in. It reports whether the list was applied.
func (s *AppState) ApplyServices(seq uint64, list []models.Service) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || seq <= s.appliedList {
		return false
	}
	s.appliedList = seq
	s.services = slices.Clone(list)
	return true
}

// ApplyDetail sets the detail record under the same rule as ApplyServices.
func (s *AppState) ApplyDetail(seq uint64, rec models.Service) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || seq <= s.appliedDetail {
		return false
	}
	s.appliedDetail = seq
	s.detail = &rec
	return true
}

// Services returns a copy of the current list.
func (s *AppState) Services() []models.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.services)
}

func (s *AppState) Detail() (models.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		return models.Service{}, false
	}
	return *s.detail, true
}

// UpsertService replaces the record with the same id, or prepends it when
// the list does not contain it yet. The list is kept newest first.
// List responses to requests begun before the call are dropped afterwards,
// as is a pending detail response for the same record.
func (s *AppState) UpsertService(rec models.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	s.markListMutated()
	if i := slices.IndexFunc(s.services, func(r models.Service) bool { return r.ID == rec.ID }); i >= 0 {
		s.services[i] = rec
	} else {
		s.services = append([]models.Service{rec}, s.services...)
	}
	if s.detail != nil && s.detail.ID == rec.ID {
		d := rec
		s.detail = &d
		s.appliedDetail = s.seq
	}
}

// RemoveService drops the record from the list and the detail view under
// the same rule as UpsertService.
func (s *AppState) RemoveService(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	s.markListMutated()
	s.services = slices.DeleteFunc(s.services, func(r models.Service) bool { return r.ID == id })
	if s.detail != nil && s.detail.ID == id {
		s.detail = nil
		s.appliedDetail = s.seq
	}
}

// markListMutated takes a sequence number for a local change, so a list
// response issued before it counts as stale.
func (s *AppState) markListMutated() {
	s.seq++
	s.appliedList = s.seq
}
