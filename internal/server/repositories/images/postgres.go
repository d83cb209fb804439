package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

// PostgresRepository stores image metadata over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByService(ctx context.Context, serviceID int64) ([]models.ServiceImage, error) {
	query := `
		SELECT id, service_id, image_url, file_path, created_at
		FROM service_images
		WHERE service_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	result := []models.ServiceImage{}
	for rows.Next() {
		var img models.ServiceImage
		if err := rows.Scan(&img.ID, &img.ServiceID, &img.ImageURL, &img.FilePath, &img.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.ServiceImage, error) {
	query := `
		SELECT id, service_id, image_url, file_path, created_at
		FROM service_images
		WHERE id = $1
	`
	img := &models.ServiceImage{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&img.ID, &img.ServiceID, &img.ImageURL, &img.FilePath, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

// Create inserts the metadata row and fills in the generated id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, img *models.ServiceImage) (*models.ServiceImage, error) {
	query := `
		INSERT INTO service_images (service_id, image_url, file_path)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, img.ServiceID, img.ImageURL, img.FilePath).Scan(&img.ID, &img.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM service_images
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
