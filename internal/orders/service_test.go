package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/ledger"
	"github.com/angelmondragon/shopcore-backend/internal/products"
	"github.com/angelmondragon/shopcore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, "orders")

	events, err := ledger.NewService(ledger.NewRepository(db))
	if err != nil {
		t.Fatalf("build event service: %v", err)
	}
	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		cart.NewRepository(db),
		products.NewRepository(db),
		events,
		nil,
		"Acme Couriers",
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedCart(t *testing.T, db *gorm.DB, userID uuid.UUID, lines ...models.CartItem) {
	t.Helper()
	record := models.Cart{ID: uuid.New(), UserID: userID}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	record.Total = total
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].CartID = record.ID
		if err := db.Create(&lines[i]).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}
}

func stockOf(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestCheckoutHappyPath(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := seedProduct(t, db, "widget", "10.00", 5)
	gadget := seedProduct(t, db, "gadget", "2.50", 4)
	seedCart(t, db, userID,
		models.CartItem{ProductID: widget.ID, Quantity: 2, Price: widget.Price},
		models.CartItem{ProductID: gadget.ID, Quantity: 4, Price: gadget.Price},
	)

	order, err := svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected PENDING order, got %s", order.Status)
	}
	if order.OrderNumber == "" {
		t.Fatal("expected generated order number")
	}
	if !order.Total.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected total 30.00, got %s", order.Total)
	}
	if order.BillingAddress != "1 Main St" {
		t.Fatalf("billing should default to shipping, got %q", order.BillingAddress)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.ProductName == "" {
			t.Fatal("expected denormalized product name")
		}
	}

	if got := stockOf(t, db, widget.ID); got != 3 {
		t.Fatalf("expected widget stock 3, got %d", got)
	}
	if got := stockOf(t, db, gadget.ID); got != 0 {
		t.Fatalf("expected gadget stock 0, got %d", got)
	}

	var payment models.Payment
	if err := db.First(&payment, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending || !payment.Amount.Equal(order.Total) {
		t.Fatalf("unexpected payment row: %+v", payment)
	}
	if payment.Method != enums.PaymentMethodCashOnDelivery {
		t.Fatalf("expected defaulted method, got %s", payment.Method)
	}

	var shipment models.Shipment
	if err := db.First(&shipment, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load shipment: %v", err)
	}
	if shipment.Status != enums.ShipmentStatusPending || shipment.Courier != "Acme Couriers" {
		t.Fatalf("unexpected shipment row: %+v", shipment)
	}
	if shipment.ShippingAddress != "1 Main St" {
		t.Fatalf("expected address snapshot, got %q", shipment.ShippingAddress)
	}

	var remaining int64
	if err := db.Model(&models.CartItem{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("cart should be cleared, %d lines left", remaining)
	}

	var event models.OrderEvent
	if err := db.First(&event, "order_id = ? AND type = ?", order.ID, enums.OrderEventCreated).Error; err != nil {
		t.Fatalf("expected order_created event: %v", err)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, uuid.New(), CheckoutInput{ShippingAddress: "1 Main St"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART for missing cart, got %v", err)
	}

	userID := uuid.New()
	seedCart(t, db, userID)
	_, err = svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART for zero lines, got %v", err)
	}
}

func TestCheckoutRollbackRestoresReservations(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	plenty := seedProduct(t, db, "plenty", "1.00", 10)
	scarce := seedProduct(t, db, "scarce", "1.00", 1)
	seedCart(t, db, userID,
		models.CartItem{ProductID: plenty.ID, Quantity: 5, Price: plenty.Price},
		models.CartItem{ProductID: scarce.ID, Quantity: 2, Price: scarce.Price},
	)

	_, err := svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "insufficient stock for scarce" {
		t.Fatalf("expected product name in message, got %v", err)
	}

	if got := stockOf(t, db, plenty.ID); got != 10 {
		t.Fatalf("rollback must restore plenty stock, got %d", got)
	}
	if got := stockOf(t, db, scarce.ID); got != 1 {
		t.Fatalf("scarce stock must be untouched, got %d", got)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("no order must survive the rollback, got %d", orderCount)
	}

	var itemCount int64
	if err := db.Model(&models.CartItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if itemCount != 2 {
		t.Fatalf("cart must survive the rollback, got %d lines", itemCount)
	}
}

// staleCartRepo replays a cart snapshot taken before a rival checkout
// committed, recreating the read both transactions see under read
// committed isolation.
type staleCartRepo struct {
	cart.CartRepository
	snapshot *models.Cart
}

func (s staleCartRepo) WithTx(tx *gorm.DB) cart.CartRepository {
	return staleCartRepo{CartRepository: s.CartRepository.WithTx(tx), snapshot: s.snapshot}
}

func (s staleCartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.snapshot, nil
}

func TestCheckoutRejectsConsumedCart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := seedProduct(t, db, "widget", "10.00", 10)
	seedCart(t, db, userID, models.CartItem{ProductID: widget.ID, Quantity: 2, Price: widget.Price})

	snapshot, err := cart.NewRepository(db).FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("snapshot cart: %v", err)
	}

	// The rival checkout wins the race and commits first.
	if _, err := svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"}); err != nil {
		t.Fatalf("rival checkout: %v", err)
	}

	events, err := ledger.NewService(ledger.NewRepository(db))
	if err != nil {
		t.Fatalf("build event service: %v", err)
	}
	loser, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		staleCartRepo{CartRepository: cart.NewRepository(db), snapshot: snapshot},
		products.NewRepository(db),
		events,
		nil,
		"Acme Couriers",
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	// The loser still holds the pre-checkout read. Its line deletes come up
	// short, so the whole transaction fails instead of minting a second
	// order from the same basket.
	_, err = loser.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION for consumed cart, got %v", err)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("one basket must yield one order, got %d", orderCount)
	}
	if got := stockOf(t, db, widget.ID); got != 8 {
		t.Fatalf("stock must be debited once, got %d", got)
	}
}

func TestCancelReleasesStock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := seedProduct(t, db, "widget", "10.00", 5)
	seedCart(t, db, userID, models.CartItem{ProductID: widget.ID, Quantity: 3, Price: widget.Price})

	order, err := svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := stockOf(t, db, widget.ID); got != 2 {
		t.Fatalf("expected stock 2 after checkout, got %d", got)
	}

	cancelled, err := svc.Cancel(ctx, userID, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if got := stockOf(t, db, widget.ID); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}

	var event models.OrderEvent
	if err := db.First(&event, "order_id = ? AND type = ?", order.ID, enums.OrderEventCancelled).Error; err != nil {
		t.Fatalf("expected order_cancelled event: %v", err)
	}
}

func TestCancelRejectsNonPending(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := seedProduct(t, db, "widget", "10.00", 5)
	seedCart(t, db, userID, models.CartItem{ProductID: widget.ID, Quantity: 1, Price: widget.Price})

	order, err := svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", enums.OrderStatusPaid).Error; err != nil {
		t.Fatalf("force paid: %v", err)
	}

	_, err = svc.Cancel(ctx, userID, order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestCancelHidesForeignOrders(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	widget := seedProduct(t, db, "widget", "10.00", 5)
	seedCart(t, db, owner, models.CartItem{ProductID: widget.ID, Quantity: 1, Price: widget.Price})

	order, err := svc.Checkout(ctx, owner, CheckoutInput{ShippingAddress: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	_, err = svc.Cancel(ctx, uuid.New(), order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for foreign user, got %v", err)
	}

	_, err = svc.GetByID(ctx, uuid.New(), false, order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND on foreign read, got %v", err)
	}

	got, err := svc.GetByID(ctx, uuid.New(), true, order.ID)
	if err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("unexpected order %s", got.ID)
	}
}

func TestUpdateStatusOverridesWithoutValidation(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	admin := uuid.New()
	widget := seedProduct(t, db, "widget", "10.00", 5)
	seedCart(t, db, userID, models.CartItem{ProductID: widget.ID, Quantity: 1, Price: widget.Price})

	order, err := svc.Checkout(ctx, userID, CheckoutInput{ShippingAddress: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// PENDING straight to DELIVERED is allowed on the override path.
	updated, err := svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", updated.Status)
	}

	var event models.OrderEvent
	if err := db.First(&event, "order_id = ? AND type = ?", order.ID, enums.OrderEventStatusOverride).Error; err != nil {
		t.Fatalf("expected order_status_override event: %v", err)
	}
	if event.ActorUserID != admin {
		t.Fatalf("expected admin actor, got %s", event.ActorUserID)
	}

	_, err = svc.UpdateStatus(ctx, admin, order.ID, "BOGUS")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestListByUserPaginates(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		order := models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			OrderNumber:     "ORD-TEST" + uuid.NewString()[:8],
			Total:           decimal.RequireFromString("5.00"),
			Status:          enums.OrderStatusPending,
			ShippingAddress: "1 Main St",
			BillingAddress:  "1 Main St",
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&order).Error; err != nil {
			t.Fatalf("seed order: %v", err)
		}
	}

	first, err := svc.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(first.Orders) != 2 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("unexpected first page: %d orders, hasMore=%v", len(first.Orders), first.HasMore)
	}
	if first.Orders[0].CreatedAt.Before(first.Orders[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	second, err := svc.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Orders) != 1 || second.HasMore {
		t.Fatalf("unexpected second page: %d orders, hasMore=%v", len(second.Orders), second.HasMore)
	}

	byStatus, err := svc.ListByStatus(ctx, enums.OrderStatusPending, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(byStatus.Orders) != 3 {
		t.Fatalf("expected 3 pending orders, got %d", len(byStatus.Orders))
	}
}
