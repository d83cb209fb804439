// Package profiles declares the repository contract for user profiles.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	SetRole(ctx context.Context, id string, role models.Role) error
}
