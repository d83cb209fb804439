// Package rest exposes the clientkeeper services as a JSON API over HTTP.
package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserService is the subset of services.UserService used by the handlers.
type UserService interface {
	Register(ctx context.Context, email, password, username string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, userID string) (*services.UserInfo, error)
	Principal(ctx context.Context, userID string) (models.Principal, error)
	ListProfiles(ctx context.Context, p models.Principal) ([]models.Profile, error)
	SetRole(ctx context.Context, p models.Principal, userID string, role models.Role) error
}

type RecordService interface {
	List(ctx context.Context, p models.Principal, v services.View) ([]services.RecordView, error)
	Get(ctx context.Context, p models.Principal, id int64) (*services.RecordView, error)
	Create(ctx context.Context, p models.Principal, in models.ServiceInput) (*services.RecordView, error)
	Update(ctx context.Context, p models.Principal, id int64, patch models.ServicePatch) (*services.RecordView, error)
	UpdateNote(ctx context.Context, p models.Principal, id int64, note string) error
	Delete(ctx context.Context, p models.Principal, id int64) error
	Import(ctx context.Context, p models.Principal, r io.Reader) (*services.ImportReport, error)
	Export(ctx context.Context, p models.Principal) (string, []byte, error)
}

type ImageService interface {
	List(ctx context.Context, p models.Principal, serviceID int64) ([]models.ServiceImage, error)
	Upload(ctx context.Context, p models.Principal, serviceID int64, fileName string, body []byte) (*models.ServiceImage, error)
	Delete(ctx context.Context, p models.Principal, imageID int64) (*services.DeleteResult, error)
}

type Server struct {
	address       string
	users         UserService
	records       RecordService
	images        ImageService
	logger        logging.Logger
	jwtSecret     []byte
	maxUploadSize int64
	router        *chi.Mux
}

func NewServer(a string, l logging.Logger, us UserService, rs RecordService, is ImageService, secretKey string, maxUploadSize int64) *Server {
	s := &Server{
		address:       a,
		logger:        l.With("module", "http_server"),
		users:         us,
		records:       rs,
		images:        is,
		jwtSecret:     []byte(secretKey),
		maxUploadSize: maxUploadSize,
		router:        chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/ping", s.handlePing)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/options", s.handleOptions)

		r.Group(func(r chi.Router) {
			r.Use(s.accessTokenMiddleware)

			r.Get("/me", s.handleMe)
			r.Get("/profiles", s.handleListProfiles)
			r.Put("/profiles/{id}/role", s.handleSetRole)

			r.Get("/services", s.handleListServices)
			r.Post("/services", s.handleCreateService)
			r.Get("/services/{id}", s.handleGetService)
			r.Patch("/services/{id}", s.handleUpdateService)
			r.Put("/services/{id}/note", s.handleUpdateNote)
			r.Delete("/services/{id}", s.handleDeleteService)

			r.Get("/services/{id}/images", s.handleListImages)
			r.Post("/services/{id}/images", s.handleUploadImage)
			r.Delete("/images/{id}", s.handleDeleteImage)

			r.Post("/import", s.handleImport)
			r.Get("/export", s.handleExport)
		})
	})
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
