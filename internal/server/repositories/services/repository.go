// Package services declares the repository contract for service records.
package services

import (
	"context"

	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

// Filter narrows a listing. A nil OwnerID lists every record.
type Filter struct {
	OwnerID *string
}

type Repository interface {
	// List returns matching records ordered by id, newest first.
	List(ctx context.Context, f Filter) ([]models.ServiceRecord, error)
	GetByID(ctx context.Context, id int64) (*models.ServiceRecord, error)
	Insert(ctx context.Context, rec *models.ServiceRecord) (*models.ServiceRecord, error)
	// InsertBatch writes all records in one statement and returns the number of rows written.
	InsertBatch(ctx context.Context, recs []models.ServiceRecord) (int64, error)
	Update(ctx context.Context, id int64, rec *models.ServiceRecord) (*models.ServiceRecord, error)
	UpdateNote(ctx context.Context, id int64, note *string) error
	Delete(ctx context.Context, id int64) error
}
