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

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/cryptox"
	"github.com/dmitrijs2005/thechallenge/internal/dbx"
	"github.com/dmitrijs2005/thechallenge/internal/server/auth"
	"github.com/dmitrijs2005/thechallenge/internal/server/config"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/thechallenge/internal/timex"
)

const (
	MaxUserNameLen    = 50
	MaxEmailLen       = 100
	MinPasswordLen    = 8
	maxPasswordBytes  = 72
	refreshTokenBytes = 32
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService handles registration, login, logout and token rotation.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	clock                        timex.Clock
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		clock:                        clock,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser validates the account fields and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, username, email, password, confirm string) (*models.User, error) {
	u, err := s.newUser(username, email, password, confirm)
	if err != nil {
		return nil, err
	}
	created, err := s.repomanager.Users(s.db).Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// Register creates a user and signs it in.
func (s *UserService) Register(ctx context.Context, username, email, password, confirm string) (*models.User, *TokenPair, error) {
	u, err := s.newUser(username, email, password, confirm)
	if err != nil {
		return nil, nil, err
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, u)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		u = created
		pair, err = s.generateTokenPair(ctx, u.ID, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

func (s *UserService) newUser(username, email, password, confirm string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n == 0 || n > MaxUserNameLen {
		return nil, common.NewValidationError("username", fmt.Sprintf("must be 1 to %d characters", MaxUserNameLen))
	}
	email = NormalizeEmail(email)
	if !strings.Contains(email, "@") || len(email) > MaxEmailLen {
		return nil, common.NewValidationError("email", fmt.Sprintf("must be an address of at most %d characters", MaxEmailLen))
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, common.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > maxPasswordBytes {
		return nil, common.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if password != confirm {
		return nil, common.NewValidationError("confirm_password", "does not match")
	}

	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	return &models.User{UserName: username, Email: email, PasswordHash: hash}, nil
}

// dummyHash is compared against when the e-mail is unknown, so both failure
// paths cost one bcrypt comparison.
var dummyHash = sync.OnceValues(func() ([]byte, error) {
	return cryptox.HashPassword([]byte("not-a-real-password"))
})

// Login verifies credentials and returns a new TokenPair. Unknown e-mail and
// wrong password both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if h, herr := dummyHash(); herr == nil {
				_, _ = cryptox.CheckPassword(h, []byte(password))
			}
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	ok, err := cryptox.CheckPassword(user.PasswordHash, []byte(password))
	if err != nil || !ok {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// RefreshToken redeems a refresh token and returns a fresh TokenPair. The
// token is deleted and the new pair minted in one transaction; a token that
// was already redeemed yields common.ErrorNotFound. Expired tokens yield
// ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	now := s.clock.Now()

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			return nil, fmt.Errorf("error redeeming refresh token: %w", err)
		}
		if token.Expires.Before(now) {
			return nil, common.ErrRefreshTokenExpired
		}

		pair, err := s.generateTokenPair(ctx, token.UserID, tx)
		if err != nil {
			return nil, fmt.Errorf("error generating token pair: %w", err)
		}
		return pair, nil
	})
}

// Authenticate returns the user id carried by a valid access token.
func (s *UserService) Authenticate(accessToken string) (int64, error) {
	return auth.GetUserIDFromToken(accessToken, s.jwtSecret)
}

// Logout revokes the refresh token. An empty token is a no-op.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// DeleteUser removes a user together with its challenges, tasks and tokens.
func (s *UserService) DeleteUser(ctx context.Context, email string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.GetByEmail(ctx, NormalizeEmail(email))
		if err != nil {
			return err
		}
		return repo.Delete(ctx, u.ID)
	})
}

// PurgeExpiredTokens deletes refresh tokens that are past their expiry.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.clock.Now())
}

func (s *UserService) generateTokenPair(ctx context.Context, userID int64, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.clock.Now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, userID, refresh, expires); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
