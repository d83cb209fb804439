package client

import (
	"context"

	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
)

type Client interface {
	Ping(ctx context.Context) error
	Options(ctx context.Context) (*record.Options, error)

	Register(ctx context.Context, email, password, username string) error
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Resume(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	Profiles(ctx context.Context) ([]models.Profile, error)
	SetRole(ctx context.Context, userID, role string) error

	ListServices(ctx context.Context, view string) ([]models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	CreateService(ctx context.Context, in models.ServiceInput) (*models.Service, error)
	UpdateService(ctx context.Context, id int64, patch models.ServicePatch) (*models.Service, error)
	UpdateNote(ctx context.Context, id int64, note string) error
	DeleteService(ctx context.Context, id int64) error

	ListImages(ctx context.Context, serviceID int64) ([]models.Image, error)
	UploadImage(ctx context.Context, serviceID int64, fileName string, body []byte) (*models.Image, error)
	DeleteImage(ctx context.Context, imageID int64) (*models.DeleteImageResult, error)

	Import(ctx context.Context, fileName string, body []byte) (*models.ImportReport, error)
	Export(ctx context.Context) (string, []byte, error)
}
