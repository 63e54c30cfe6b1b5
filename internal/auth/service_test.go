package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/users"
	pkgauth "github.com/angelmondragon/shopcore-backend/pkg/auth"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:              "secret",
		Issuer:              "shopcore",
		AccessTokenMinutes:  60,
		RefreshTokenMinutes: 1440,
	}
}

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, "auth")

	svc, err := NewService(
		users.NewRepository(db),
		NewTokenRepository(db),
		gormTxRunner{db: db},
		testJWTConfig(),
		config.PasswordConfig{},
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc.(*service), db
}

func register(t *testing.T, svc Service, username string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return resp
}

func refreshRows(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.RefreshToken {
	t.Helper()
	var rows []models.RefreshToken
	if err := db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		t.Fatalf("load refresh tokens: %v", err)
	}
	return rows
}

func TestRegisterIssuesFirstPair(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc, "alice")
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if resp.User == nil || resp.User.Username != "alice" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if resp.User.Role != enums.RoleCustomer {
		t.Fatalf("expected CUSTOMER role, got %s", resp.User.Role)
	}

	claims, err := svc.Validate(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("claims user %s != %s", claims.UserID, resp.User.ID)
	}

	var user models.User
	if err := db.First(&user, "username = ?", "alice").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter2hunter2" {
		t.Fatal("password must be stored hashed")
	}

	rows := refreshRows(t, db, user.ID)
	if len(rows) != 1 || rows[0].Revoked {
		t.Fatalf("expected one live refresh row, got %+v", rows)
	}
	if rows[0].Token != resp.RefreshToken {
		t.Fatal("persisted refresh token does not match the issued one")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice")

	_, err := svc.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "hunter2hunter2",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateIdentity) {
		t.Fatalf("expected DUPLICATE_IDENTITY for username, got %v", err)
	}

	_, err = svc.Register(ctx, RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateIdentity) {
		t.Fatalf("expected DUPLICATE_IDENTITY for email, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	first := register(t, svc, "alice")

	resp, err := svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("login by username: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login timestamp to be set")
	}

	// Email works as the identifier too.
	if _, err := svc.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("login by email: %v", err)
	}

	// Each login revokes the refresh tokens of earlier sessions.
	rows := refreshRows(t, db, resp.User.ID)
	live := 0
	for _, row := range rows {
		if !row.Revoked {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live refresh row after relogin, got %d", live)
	}
	if _, err := svc.Rotate(ctx, first.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeTokenRevoked) {
		t.Fatalf("expected first session token revoked, got %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice")

	cases := []LoginRequest{
		{Identifier: "alice", Password: "wrongwrongwrong"},
		{Identifier: "nobody", Password: "hunter2hunter2"},
	}
	for _, input := range cases {
		_, err := svc.Login(ctx, input)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected UNAUTHORIZED for %q, got %v", input.Identifier, err)
		}
		if pkgerrors.As(err).Message() != invalidCredentialsMessage {
			t.Fatalf("login failures must share one message, got %q", pkgerrors.As(err).Message())
		}
	}

	if err := db.Model(&models.User{}).Where("username = ?", "alice").Update("enabled", false).Error; err != nil {
		t.Fatalf("disable user: %v", err)
	}
	_, err := svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "hunter2hunter2"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for disabled account, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	first := register(t, svc, "alice")

	rotated, err := svc.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshToken == first.RefreshToken {
		t.Fatal("rotation must issue a new refresh token")
	}
	if _, err := svc.Validate(ctx, rotated.AccessToken); err != nil {
		t.Fatalf("validate rotated access token: %v", err)
	}

	// Replaying the consumed token loses.
	if _, err := svc.Rotate(ctx, first.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeTokenRevoked) {
		t.Fatalf("expected TOKEN_REVOKED on replay, got %v", err)
	}

	rows := refreshRows(t, db, rotated.User.ID)
	live := 0
	for _, row := range rows {
		if !row.Revoked {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected one live row after rotation, got %d", live)
	}
}

func TestRotateRejectsBadTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	resp := register(t, svc, "alice")

	if _, err := svc.Rotate(ctx, "not-a-jwt"); !pkgerrors.IsCode(err, pkgerrors.CodeTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID for garbage, got %v", err)
	}

	// An access token is not a refresh token.
	if _, err := svc.Rotate(ctx, resp.AccessToken); !pkgerrors.IsCode(err, pkgerrors.CodeTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID for access token, got %v", err)
	}
}

func TestRotateExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	svc.now = func() time.Time { return past }
	resp := register(t, svc, "alice")
	svc.now = time.Now

	if _, err := svc.Rotate(ctx, resp.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeTokenExpired) {
		t.Fatalf("expected TOKEN_EXPIRED, got %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	resp := register(t, svc, "alice")

	if err := svc.RevokeAll(ctx, resp.User.ID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := svc.Rotate(ctx, resp.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeTokenRevoked) {
		t.Fatalf("expected TOKEN_REVOKED after logout, got %v", err)
	}

	// Access tokens stay valid until expiry.
	if _, err := svc.Validate(ctx, resp.AccessToken); err != nil {
		t.Fatalf("access token should survive logout: %v", err)
	}
}

func TestValidateRejectsRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	resp := register(t, svc, "alice")

	_, err := svc.Validate(context.Background(), resp.RefreshToken)
	if !pkgerrors.IsCode(err, pkgerrors.CodeTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID for refresh token, got %v", err)
	}
}

func TestValidateExpiredAccessToken(t *testing.T) {
	svc, _ := newTestService(t)

	past := time.Now().Add(-2 * time.Hour)
	token, err := pkgauth.MintAccessToken(testJWTConfig(), past, pkgauth.TokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.Validate(context.Background(), token); !pkgerrors.IsCode(err, pkgerrors.CodeTokenExpired) {
		t.Fatalf("expected TOKEN_EXPIRED, got %v", err)
	}
}

func TestConsumeAdmitsSingleWinner(t *testing.T) {
	_, db := newTestService(t)
	ctx := context.Background()
	repo := NewTokenRepository(db)

	record := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Token:     "refresh-" + uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("create token: %v", err)
	}

	// Two rotations present the same token; the conditional revoke lets
	// exactly one through.
	won, err := repo.Consume(ctx, record.Token)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if !won {
		t.Fatal("first consume must win")
	}
	won, err = repo.Consume(ctx, record.Token)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if won {
		t.Fatal("second consume must lose")
	}

	stored, err := repo.FindByToken(ctx, record.Token)
	if err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if !stored.Revoked {
		t.Fatal("token must stay revoked")
	}
}
