// Package services contains application services for the clientkeeper CLI.
// This file defines the authentication service: register, login, resuming a
// stored session, logout, and persistence of the refresh token.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clientkeeper/internal/client/state"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create a new account on the server.
//   - Login: authenticate, persist the refresh token and start the session.
//   - Resume: start the session from a refresh token kept by a previous run.
//   - Logout: revoke the refresh token, wipe local data and end the session.
//   - SaveTokens: persist a rotated token pair.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, username string) error
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Resume(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	SaveTokens(ctx context.Context, pair models.TokenPair) error
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	state  *state.AppState
}

// NewAuthService constructs an AuthService bound to the API client, the
// local session database and the application state.
func NewAuthService(c client.Client, db *sql.DB, st *state.AppState) AuthService {
	return &authService{client: c, db: db, state: st}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, email string, password []byte, username string) error {
	defer common.WipeByteArray(password)
	return a.client.Register(ctx, email, string(password), username)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	defer common.WipeByteArray(password)

	pair, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, metadata.KeyEmail, email); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyRefreshToken, pair.RefreshToken)
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	return a.startSession(ctx)
}

// Resume returns client.ErrNoSession when no refresh token is stored. A
// rejected token is removed so the next start asks for credentials.
func (a *authService) Resume(ctx context.Context) (*models.User, error) {
	repo := a.getMetadataRepo(a.db)
	token, err := repo.Get(ctx, metadata.KeyRefreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, client.ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	pair, err := a.client.Resume(ctx, token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = repo.Delete(ctx, metadata.KeyRefreshToken)
			return nil, client.ErrNoSession
		}
		return nil, err
	}
	if err := a.SaveTokens(ctx, *pair); err != nil {
		return nil, err
	}

	return a.startSession(ctx)
}

func (a *authService) startSession(ctx context.Context) (*models.User, error) {
	u, err := a.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	a.state.SignIn(*u)
	return u, nil
}

// Logout always ends the local session; the server error, if any, is returned.
func (a *authService) Logout(ctx context.Context) error {
	remoteErr := a.client.Logout(ctx)
	a.state.SignOut()
	if err := a.getMetadataRepo(a.db).Clear(ctx); err != nil {
		return err
	}
	return remoteErr
}

func (a *authService) SaveTokens(ctx context.Context, pair models.TokenPair) error {
	if pair.RefreshToken == "" {
		return nil
	}
	return a.getMetadataRepo(a.db).Set(ctx, metadata.KeyRefreshToken, pair.RefreshToken)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
