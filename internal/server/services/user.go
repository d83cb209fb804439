// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, issuing/refreshing JWTs
// plus server-stored refresh tokens, and profile/role management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/auth"
	"github.com/dmitrijs2005/clientkeeper/internal/server/config"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/repomanager"
	"github.com/juju/clock"
)

const minPasswordLength = 6

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserInfo describes the signed-in user. When the profile cannot be loaded
// the user is treated as a plain user named after their email and
// ProfileFallback is set.
type UserInfo struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	Profile         models.Profile `json:"profile"`
	DisplayName     string         `json:"display_name"`
	ProfileFallback bool           `json:"profile_fallback"`
}

// UserService provides authentication-related operations:
// - Register: create users together with their profile
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - SignOut: revoke a refresh token
// - CurrentUser, Principal: resolve identity and role
// - ListProfiles, SetRole: admin-only profile management
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	cfg                          *config.Config
	clock                        clock.Clock
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clk clock.Clock) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		cfg:                          cfg,
		clock:                        clk,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a user and its profile in one transaction. The profile
// gets the admin role when the email is listed in the config, user otherwise.
// An empty username defaults to the email.
func (s *UserService) Register(ctx context.Context, email, password, username string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", common.ErrorValidation, minPasswordLength)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = email
	}

	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s", common.ErrorConflict, email)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	role := models.RoleUser
	if s.cfg.IsAdminEmail(email) {
		role = models.RoleAdmin
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{Email: email, PasswordHash: hash})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		if err := s.repomanager.Profiles(tx).Create(ctx, &models.Profile{ID: u.ID, Username: username, Role: role}); err != nil {
			return fmt.Errorf("error creating profile: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password against the stored hash and, on success,
// returns a new TokenPair. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user.ID, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired,
// unknown ones ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expired(s.clock.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// SignOut revokes the given refresh token. Revoking an unknown token is not an error.
func (s *UserService) SignOut(ctx context.Context, refreshToken string) error {
	err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// CurrentUser loads the account and profile of userID.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	info := &UserInfo{ID: user.ID, Email: user.Email}
	profile, err := s.repomanager.Profiles(s.db).Get(ctx, userID)
	if err != nil {
		info.Profile = models.Profile{ID: user.ID, Username: user.Email, Role: models.RoleUser}
		info.DisplayName = user.Email
		info.ProfileFallback = true
		return info, nil
	}

	info.Profile = *profile
	info.DisplayName = profile.Username
	if info.DisplayName == "" {
		info.DisplayName = user.Email
	}
	return info, nil
}

// Principal resolves the role of userID. A missing or unreadable profile
// yields the user role.
func (s *UserService) Principal(ctx context.Context, userID string) (models.Principal, error) {
	p := models.Principal{UserID: userID, Role: models.RoleUser}
	profile, err := s.repomanager.Profiles(s.db).Get(ctx, userID)
	if err == nil {
		p.Role = profile.Role
	}
	return p, nil
}

// ListProfiles returns every profile. Admin only.
func (s *UserService) ListProfiles(ctx context.Context, p models.Principal) ([]models.Profile, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	profiles, err := s.repomanager.Profiles(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}
	return profiles, nil
}

// SetRole changes the role of userID. Admin only. Setting the user role
// also revokes every refresh token of userID, so a demoted account has to
// sign in again.
func (s *UserService) SetRole(ctx context.Context, p models.Principal, userID string, role models.Role) error {
	if !p.IsAdmin() {
		return common.ErrorForbidden
	}
	switch role {
	case models.RoleAdmin:
		return s.repomanager.Profiles(s.db).SetRole(ctx, userID, role)
	case models.RoleUser:
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repomanager.Profiles(tx).SetRole(ctx, userID, role); err != nil {
				return err
			}
			if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID); err != nil {
				return fmt.Errorf("error revoking sessions: %w", err)
			}
			return nil
		})
	default:
		return fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.clock.Now().Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
