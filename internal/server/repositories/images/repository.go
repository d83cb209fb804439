// Package images declares the repository contract for service image metadata.
package images

import (
	"context"

	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

type Repository interface {
	// ListByService returns the images of a record, oldest first.
	ListByService(ctx context.Context, serviceID int64) ([]models.ServiceImage, error)
	GetByID(ctx context.Context, id int64) (*models.ServiceImage, error)
	Create(ctx context.Context, img *models.ServiceImage) (*models.ServiceImage, error)
	Delete(ctx context.Context, id int64) error
}
