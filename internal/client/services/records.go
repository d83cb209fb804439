package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/client/state"
	"github.com/dmitrijs2005/clientkeeper/internal/filex"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
)

// RecordService runs record operations against the API and keeps the
// application state in step with their results.
type RecordService struct {
	client client.Client
	state  *state.AppState
}

func NewRecordService(c client.Client, st *state.AppState) *RecordService {
	return &RecordService{client: c, state: st}
}

// Refresh fetches the list for view. The returned list is what the server
// answered; applied is false when a newer list was applied meanwhile.
func (s *RecordService) Refresh(ctx context.Context, view string) (list []models.Service, applied bool, err error) {
	seq := s.state.BeginRequest()
	list, err = s.client.ListServices(ctx, view)
	if err != nil {
		return nil, false, err
	}
	return list, s.state.ApplyServices(seq, list), nil
}

func (s *RecordService) Show(ctx context.Context, id int64) (*models.Service, error) {
	seq := s.state.BeginRequest()
	rec, err := s.client.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	s.state.ApplyDetail(seq, *rec)
	return rec, nil
}

func (s *RecordService) Create(ctx context.Context, in models.ServiceInput) (*models.Service, error) {
	rec, err := s.client.CreateService(ctx, in)
	if err != nil {
		return nil, err
	}
	s.state.UpsertService(*rec)
	return rec, nil
}

func (s *RecordService) Update(ctx context.Context, id int64, patch models.ServicePatch) (*models.Service, error) {
	rec, err := s.client.UpdateService(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.state.UpsertService(*rec)
	return rec, nil
}

// SetNote saves the note and reloads the record. A failed reload is
// returned even though the note itself was saved.
func (s *RecordService) SetNote(ctx context.Context, id int64, note string) error {
	if err := s.client.UpdateNote(ctx, id, note); err != nil {
		return err
	}
	rec, err := s.client.GetService(ctx, id)
	if err != nil {
		return fmt.Errorf("note saved, reloading record %d: %w", id, err)
	}
	s.state.UpsertService(*rec)
	return nil
}

func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := s.client.DeleteService(ctx, id); err != nil {
		return err
	}
	s.state.RemoveService(id)
	return nil
}

func (s *RecordService) Images(ctx context.Context, serviceID int64) ([]models.Image, error) {
	return s.client.ListImages(ctx, serviceID)
}

// Upload sends the file at path as an attachment of serviceID.
func (s *RecordService) Upload(ctx context.Context, serviceID int64, path string) (*models.Image, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	img, err := s.client.UploadImage(ctx, serviceID, filepath.Base(path), data)
	if err != nil {
		return nil, 0, err
	}
	return img, len(data), nil
}

func (s *RecordService) DeleteImage(ctx context.Context, imageID int64) (*models.DeleteImageResult, error) {
	return s.client.DeleteImage(ctx, imageID)
}

func (s *RecordService) Import(ctx context.Context, path string) (*models.ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.client.Import(ctx, filepath.Base(path), data)
}

// Export downloads the CSV export into dir, creating it when missing, and
// returns the written path and its size.
func (s *RecordService) Export(ctx context.Context, dir string) (string, int, error) {
	name, data, err := s.client.Export(ctx)
	if err != nil {
		return "", 0, err
	}
	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, len(data), nil
}

func (s *RecordService) Profiles(ctx context.Context) ([]models.Profile, error) {
	return s.client.Profiles(ctx)
}

func (s *RecordService) SetRole(ctx context.Context, userID, role string) error {
	return s.client.SetRole(ctx, userID, role)
}

func (s *RecordService) Options(ctx context.Context) (*record.Options, error) {
	return s.client.Options(ctx)
}
