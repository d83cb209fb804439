package services

import (
	"context"
	"database/sql"
	"fmt"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/server/blob"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/repomanager"
	"github.com/juju/clock"
)

const (
	imageCacheControl = "3600"
	defaultImageExt   = "bin"

	blobCleanupTimeout = 10 * time.Second
)

var imageExtRe = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// DeleteResult reports whether the blob of a deleted image was removed too.
// The metadata row is gone either way.
type DeleteResult struct {
	BlobRemoved bool `json:"blob_removed"`
}

// ImageService manages record attachments. The blob store holds the bytes,
// the database holds the metadata; an upload writes the blob first and
// removes it again if the metadata insert fails.
type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blob.Store
	clock       clock.Clock
	logger      logging.Logger
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, store blob.Store, clk clock.Clock, logger logging.Logger) *ImageService {
	return &ImageService{db: db, repomanager: m, store: store, clock: clk, logger: logger}
}

func (s *ImageService) record(ctx context.Context, p models.Principal, serviceID int64, denied error) (*models.ServiceRecord, error) {
	rec, err := s.repomanager.Services(s.db).GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(rec.OwnerID) {
		return nil, denied
	}
	return rec, nil
}

// List returns the images of a record, oldest first.
func (s *ImageService) List(ctx context.Context, p models.Principal, serviceID int64) ([]models.ServiceImage, error) {
	if _, err := s.record(ctx, p, serviceID, common.ErrorNotFound); err != nil {
		return nil, err
	}
	imgs, err := s.repomanager.Images(s.db).ListByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("error listing images: %w", err)
	}
	return imgs, nil
}

// Upload stores body under a fresh key below the record owner's folder and
// records its metadata.
func (s *ImageService) Upload(ctx context.Context, p models.Principal, serviceID int64, fileName string, body []byte) (*models.ServiceImage, error) {
	rec, err := s.record(ctx, p, serviceID, common.ErrorForbidden)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrorValidation)
	}

	key, err := s.objectKey(rec.OwnerID, serviceID, fileName)
	if err != nil {
		return nil, common.ErrorInternal
	}
	ext := path.Ext(key)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	opts := blob.UploadOptions{CacheControl: imageCacheControl, Upsert: false, ContentType: contentType}
	if err := s.store.Upload(ctx, key, body, opts); err != nil {
		return nil, fmt.Errorf("error uploading image: %w", err)
	}

	img, err := s.repomanager.Images(s.db).Create(ctx, &models.ServiceImage{
		ServiceID: serviceID,
		ImageURL:  s.store.PublicURL(key),
		FilePath:  key,
	})
	if err != nil {
		if rmErr := s.removeBlob(ctx, key); rmErr != nil {
			s.logger.Warn(ctx, "orphaned image blob", "path", key, "error", rmErr)
		}
		return nil, fmt.Errorf("error saving image metadata: %w", err)
	}

	s.logger.Info(ctx, "image uploaded", "service_id", serviceID, "path", key, "size", len(body))
	return img, nil
}

// Delete removes the metadata row and then the blob. A failed blob removal
// is logged and reported in the result.
func (s *ImageService) Delete(ctx context.Context, p models.Principal, imageID int64) (*DeleteResult, error) {
	img, err := s.repomanager.Images(s.db).GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.record(ctx, p, img.ServiceID, common.ErrorForbidden); err != nil {
		return nil, err
	}

	if err := s.repomanager.Images(s.db).Delete(ctx, imageID); err != nil {
		return nil, fmt.Errorf("error deleting image: %w", err)
	}

	res := &DeleteResult{BlobRemoved: true}
	if err := s.removeBlob(ctx, img.FilePath); err != nil {
		s.logger.Warn(ctx, "image blob not removed", "path", img.FilePath, "error", err)
		res.BlobRemoved = false
	}
	return res, nil
}

// removeBlob runs even when ctx is already cancelled, bounded by its own timeout.
func (s *ImageService) removeBlob(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()
	return s.store.Remove(ctx, []string{key})
}

func (s *ImageService) objectKey(ownerID string, serviceID int64, fileName string) (string, error) {
	suffix, err := common.MakeRandHexString(6)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if !imageExtRe.MatchString(ext) {
		ext = defaultImageExt
	}
	return fmt.Sprintf("%s/%d/%d-%s.%s", ownerID, serviceID, s.clock.Now().UnixMilli(), suffix, ext), nil
}
