package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/users"
	pkgauth "github.com/angelmondragon/shopcore-backend/pkg/auth"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/security"
)

// invalidCredentialsMessage is returned for every login failure so callers
// cannot distinguish an unknown identifier from a wrong password.
const invalidCredentialsMessage = "invalid credentials"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service issues, rotates and revokes token pairs and owns account
// registration and login.
type Service interface {
	Register(ctx context.Context, input RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, input LoginRequest) (*AuthResponse, error)
	Rotate(ctx context.Context, refreshToken string) (*AuthResponse, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) error
	Validate(ctx context.Context, accessToken string) (*pkgauth.Claims, error)
}

type service struct {
	users  *users.Repository
	tokens TokenRepository
	tx     txRunner
	jwt    config.JWTConfig
	pw     config.PasswordConfig
	now    func() time.Time
}

// NewService builds the auth service backed by the provided stack.
func NewService(userRepo *users.Repository, tokens TokenRepository, tx txRunner, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig) (Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		users:  userRepo,
		tokens: tokens,
		tx:     tx,
		jwt:    jwtCfg,
		pw:     pwCfg,
		now:    time.Now,
	}, nil
}

// Register creates an account and issues its first token pair. Username and
// email must both be unique.
func (s *service) Register(ctx context.Context, input RegisterRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and email are required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	} else if taken {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateIdentity, "username already taken")
	}
	if taken, err := s.users.ExistsByEmail(ctx, email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	} else if taken {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateIdentity, "email already registered")
	}

	hash, err := security.HashPassword(input.Password, s.pw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Role:         enums.RoleCustomer,
		Enabled:      true,
	}

	var pair TokenPair
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			// The existence checks above race with concurrent registrations;
			// the unique indexes are the authority.
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicateIdentity, "username or email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		issued, err := s.issuePair(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AuthResponse{TokenPair: pair, User: users.FromModel(user)}, nil
}

// Login verifies credentials against the stored argon2id hash, revokes any
// refresh tokens from earlier sessions and issues a fresh pair.
func (s *service) Login(ctx context.Context, input LoginRequest) (*AuthResponse, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier and password are required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !user.Enabled || user.Locked {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	var pair TokenPair
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.tokens.WithTx(tx).RevokeAllForUser(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke previous tokens")
		}
		issued, err := s.issuePair(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err == nil {
		user.LastLoginAt = &now
	}

	return &AuthResponse{TokenPair: pair, User: users.FromModel(user)}, nil
}

// Rotate exchanges a live refresh token for a new pair. The presented token
// and every other unrevoked token of the user are revoked; when the same
// token is rotated concurrently only one caller wins the consume guard and
// the rest see TOKEN_REVOKED.
func (s *service) Rotate(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeTokenInvalid, "refresh token is required")
	}

	claims, err := pkgauth.ParseToken(s.jwt, refreshToken, pkgauth.TokenTypeRefresh)
	if err != nil {
		if pkgauth.IsExpired(err) {
			return nil, pkgerrors.New(pkgerrors.CodeTokenExpired, "refresh token expired")
		}
		return nil, pkgerrors.New(pkgerrors.CodeTokenInvalid, "refresh token invalid")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeTokenInvalid, "refresh token invalid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.Enabled || user.Locked {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	var pair TokenPair
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		tokens := s.tokens.WithTx(tx)
		won, err := tokens.Consume(ctx, refreshToken)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume refresh token")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeTokenRevoked, "refresh token revoked")
		}
		if err := tokens.RevokeAllForUser(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke user tokens")
		}
		issued, err := s.issuePair(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AuthResponse{TokenPair: pair, User: users.FromModel(user)}, nil
}

// RevokeAll invalidates every refresh token the user holds. Outstanding
// access tokens stay valid until they expire.
func (s *service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke tokens")
	}
	return nil
}

// Validate checks an access token statelessly.
func (s *service) Validate(_ context.Context, accessToken string) (*pkgauth.Claims, error) {
	claims, err := pkgauth.ParseToken(s.jwt, accessToken, pkgauth.TokenTypeAccess)
	if err != nil {
		if pkgauth.IsExpired(err) {
			return nil, pkgerrors.New(pkgerrors.CodeTokenExpired, "access token expired")
		}
		return nil, pkgerrors.New(pkgerrors.CodeTokenInvalid, "access token invalid")
	}
	return claims, nil
}

// issuePair mints an access/refresh pair and persists the refresh side of it.
func (s *service) issuePair(ctx context.Context, tx *gorm.DB, user *models.User) (TokenPair, error) {
	now := s.now()
	payload := pkgauth.TokenPayload{UserID: user.ID, Role: user.Role}

	access, err := pkgauth.MintAccessToken(s.jwt, now, payload)
	if err != nil {
		return TokenPair{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := pkgauth.MintRefreshToken(s.jwt, now, payload)
	if err != nil {
		return TokenPair{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}

	record := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(s.jwt.RefreshTokenTTL()),
	}
	if err := s.tokens.WithTx(tx).Create(ctx, record); err != nil {
		return TokenPair{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist refresh token")
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
