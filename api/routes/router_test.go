package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/auth"
	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/ledger"
	"github.com/angelmondragon/shopcore-backend/internal/orders"
	"github.com/angelmondragon/shopcore-backend/internal/payments"
	pkgauth "github.com/angelmondragon/shopcore-backend/pkg/auth"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/pagination"
)

type stubAuth struct {
	userID uuid.UUID
	role   enums.Role
	token  string
}

func (s *stubAuth) Register(context.Context, auth.RegisterRequest) (*auth.AuthResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubAuth) Login(context.Context, auth.LoginRequest) (*auth.AuthResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubAuth) Rotate(context.Context, string) (*auth.AuthResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeTokenRevoked, "refresh token revoked")
}

func (s *stubAuth) RevokeAll(context.Context, uuid.UUID) error { return nil }

func (s *stubAuth) Validate(_ context.Context, accessToken string) (*pkgauth.Claims, error) {
	if s.token == "" || accessToken != s.token {
		return nil, pkgerrors.New(pkgerrors.CodeTokenInvalid, "access token invalid")
	}
	return &pkgauth.Claims{UserID: s.userID, Role: s.role}, nil
}

type stubCart struct{}

func (stubCart) AddItem(context.Context, uuid.UUID, cart.AddItemInput) (*models.Cart, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
}

func (stubCart) UpdateItem(context.Context, uuid.UUID, uuid.UUID, int) (*models.Cart, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
}

func (stubCart) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*models.Cart, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
}

func (stubCart) Clear(context.Context, uuid.UUID) error { return nil }

func (stubCart) Get(context.Context, uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New()}, nil
}

type stubOrders struct{}

func (stubOrders) Checkout(context.Context, uuid.UUID, orders.CheckoutInput) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
}

func (stubOrders) Cancel(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrders) GetByID(context.Context, uuid.UUID, bool, uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrders) ListByUser(context.Context, uuid.UUID, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []models.Order{}}, nil
}

func (stubOrders) ListByStatus(context.Context, enums.OrderStatus, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []models.Order{}}, nil
}

func (stubOrders) UpdateStatus(context.Context, uuid.UUID, uuid.UUID, enums.OrderStatus) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubPayments struct{}

func (stubPayments) Process(context.Context, uuid.UUID, uuid.UUID, payments.ProcessInput) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubPayments) Refund(context.Context, uuid.UUID, uuid.UUID) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (stubPayments) GetByOrder(context.Context, uuid.UUID, bool, uuid.UUID) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (stubPayments) ListByUser(context.Context, uuid.UUID) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

type noopEvents struct{}

func (noopEvents) RecordEvent(context.Context, *gorm.DB, ledger.RecordOrderEventInput) (*models.OrderEvent, error) {
	return &models.OrderEvent{}, nil
}

func (noopEvents) ListByOrder(context.Context, uuid.UUID) ([]models.OrderEvent, error) {
	return []models.OrderEvent{}, nil
}

func (noopEvents) HasEvent(context.Context, uuid.UUID, enums.OrderEventType) (bool, error) {
	return false, nil
}

func newTestRouter(role enums.Role) (http.Handler, string) {
	token := "token-" + uuid.NewString()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "shopcore", AccessTokenMinutes: 60, RefreshTokenMinutes: 1440}

	deps := Deps{
		Config:   cfg,
		Auth:     &stubAuth{userID: uuid.New(), role: role, token: token},
		Cart:     stubCart{},
		Orders:   stubOrders{},
		Payments: stubPayments{},
		Events:   noopEvents{},
	}
	return NewRouter(deps), token
}

func TestRouterHealthLive(t *testing.T) {
	router, _ := newTestRouter(enums.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(enums.RoleCustomer)

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/payments"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, resp.Code)
		}
	}
}

func TestRouterAuthenticatedCartFetch(t *testing.T) {
	router, token := newTestRouter(enums.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRouterAdminRoutesForbidCustomers(t *testing.T) {
	router, token := newTestRouter(enums.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=PENDING", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", resp.Code)
	}
}

func TestRouterAdminRoutesAllowAdmins(t *testing.T) {
	router, token := newTestRouter(enums.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=PENDING", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.Code)
	}
}
