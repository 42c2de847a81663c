// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, profile changes and
// issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/cryptox"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/config"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/repomanager"
)

const (
	minUserNameLen = 3
	maxUserNameLen = 50
	minPasswordLen = 8
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// ExpiresIn is the lifetime of the access token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Revoker records logged-out access tokens. Implemented by cache.RevocationStore.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// UserService provides authentication-related operations:
// - Register: create users and log them in
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Logout: drop the refresh token and revoke the access token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authority   *auth.Authority
	revoker     Revoker

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time

	hashPassword  func(string) (string, error)
	checkPassword func(encoded, password string) (bool, error)
	dummyHash     func() string
}

// NewUserService constructs a UserService. revoker may be nil, in which case
// logout only drops the refresh token.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, a *auth.Authority, cfg *config.Config, revoker Revoker) *UserService {
	s := &UserService{
		db:                           db,
		repomanager:                  m,
		authority:                    a,
		revoker:                      revoker,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
		hashPassword:                 cryptox.HashPassword,
		checkPassword:                cryptox.CheckPassword,
	}
	s.dummyHash = sync.OnceValue(func() string {
		h, _ := s.hashPassword("labandina-timing-equalizer")
		return h
	})
	return s
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

func validateEmail(email string) error {
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return validationError("invalid email address")
	}
	return nil
}

func validateUserName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minUserNameLen || n > maxUserNameLen {
		return validationError("username must be %d to %d characters", minUserNameLen, maxUserNameLen)
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return validationError("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// Register creates a new user and returns it together with a fresh TokenPair.
// A taken email or username yields common.ErrLoginAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, username, password, fullName string) (*models.User, *TokenPair, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if err := validateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := validateUserName(username); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	var (
		user *models.User
		pair *TokenPair
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			UserName:     username,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(fullName),
		})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user.ID, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies the password of the user identified by login (email or
// username) and, on success, returns a new TokenPair. Unknown users, wrong
// passwords and deactivated accounts all yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// spend the same hashing time as a real check
			_, _ = s.checkPassword(s.dummyHash(), password)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := s.checkPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok || !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	return s.generateTokenPair(ctx, user.ID, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired,
// unknown ones ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if !s.now().Before(token.Expires) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error searching user: %w", err)
		}
		if !user.IsActive {
			return common.ErrorUnauthorized
		}
		pair, err = s.generateTokenPair(ctx, user.ID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout drops refreshToken (when given and owned by the caller) and, if a
// revoker is configured, revokes the access token described by claims until
// it expires.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if claims == nil || claims.UserID == "" {
		return common.ErrUnauthenticated
	}

	if refreshToken != "" {
		repo := s.repomanager.RefreshTokens(s.db)
		token, err := repo.Find(ctx, refreshToken)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return fmt.Errorf("error searching refresh token: %w", err)
		case !auth.AuthorizeOwner(claims.UserID, token.UserID):
			return common.ErrForbidden
		default:
			if err := repo.Delete(ctx, refreshToken); err != nil {
				return fmt.Errorf("error deleting refresh token: %w", err)
			}
		}
	}

	if s.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("error revoking token: %w", err)
		}
	}
	return nil
}

// Me returns the caller's own account. Deactivated accounts yield
// common.ErrForbidden.
func (s *UserService) Me(ctx context.Context, identityID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, common.ErrForbidden
	}
	return user, nil
}

// UpdateMe applies upd to the caller's account. Changing the password signs
// out every other session by dropping all refresh tokens of the user.
func (s *UserService) UpdateMe(ctx context.Context, identityID string, upd models.UserUpdate) (*models.User, error) {
	if upd.Email != nil {
		v := strings.TrimSpace(*upd.Email)
		if err := validateEmail(v); err != nil {
			return nil, err
		}
		upd.Email = &v
	}
	if upd.UserName != nil {
		v := strings.TrimSpace(*upd.UserName)
		if err := validateUserName(v); err != nil {
			return nil, err
		}
		upd.UserName = &v
	}

	var hash string
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return nil, err
		}
		var err error
		if hash, err = s.hashPassword(*upd.Password); err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		user, err := users.GetByID(ctx, identityID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return common.ErrForbidden
		}

		if upd.Email != nil {
			user.Email = *upd.Email
		}
		if upd.UserName != nil {
			user.UserName = *upd.UserName
		}
		if upd.FullName != nil {
			user.FullName = strings.TrimSpace(*upd.FullName)
		}
		if hash != "" {
			user.PasswordHash = hash
			if _, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
				return fmt.Errorf("error deleting refresh tokens: %w", err)
			}
		}

		updated, err = users.Update(ctx, user)
		if err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns any user by id, for public profile views.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.authority.IssueToken(userID, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	expiresAt := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, expiresAt); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.accessTokenValidityDuration,
	}, nil
}
