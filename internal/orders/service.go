package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/inventory"
	"github.com/angelmondragon/shopcore-backend/internal/ledger"
	"github.com/angelmondragon/shopcore-backend/internal/products"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/metrics"
	"github.com/angelmondragon/shopcore-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the checkout engine and order lifecycle operations.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetByID(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	carts    cart.CartRepository
	products *products.Repository
	events   ledger.Service
	checkout *metrics.CheckoutMetrics
	courier  string
}

// NewService builds an orders service backed by the provided stack. The
// metrics handle may be nil.
func NewService(
	repo Repository,
	tx txRunner,
	carts cart.CartRepository,
	productsRepo *products.Repository,
	events ledger.Service,
	checkout *metrics.CheckoutMetrics,
	defaultCourier string,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("order event service required")
	}
	if defaultCourier == "" {
		defaultCourier = "Default Courier"
	}
	return &service{
		repo:     repo,
		tx:       tx,
		carts:    carts,
		products: productsRepo,
		events:   events,
		checkout: checkout,
		courier:  defaultCourier,
	}, nil
}

// Checkout converts the user's cart into an order inside one transaction:
// reserve every line, snapshot the order with denormalized item data, open
// the PENDING payment and shipment rows, then delete the exact cart lines
// that were read. Fewer deleted rows than lines read means a rival checkout
// already consumed the basket, and the transaction fails rather than mint a
// second order. Any failure rolls the whole thing back, which also returns
// earlier reservations.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCashOnDelivery
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}
	billing := input.BillingAddress
	if strings.TrimSpace(billing) == "" {
		billing = input.ShippingAddress
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		orderRepo := s.repo.WithTx(tx)

		record, err := cartRepo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		items := make([]models.OrderItem, 0, len(record.Items))
		lineIDs := make([]uuid.UUID, 0, len(record.Items))
		for _, line := range record.Items {
			lineIDs = append(lineIDs, line.ID)
			product, err := productRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}

			if err := inventory.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
					return pkgerrors.New(pkgerrors.CodeInsufficientStock,
						fmt.Sprintf("insufficient stock for %s", product.Name)).
						WithDetails(map[string]any{"product": product.Name, "requested": line.Quantity})
				}
				return err
			}

			items = append(items, models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       line.Price,
			})
		}

		order := &models.Order{
			UserID:          userID,
			OrderNumber:     generateOrderNumber(),
			Total:           record.Total,
			Status:          enums.OrderStatusPending,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  billing,
			Notes:           input.Notes,
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		if _, err := orderRepo.CreatePayment(ctx, &models.Payment{
			OrderID: order.ID,
			Amount:  record.Total,
			Status:  enums.PaymentStatusPending,
			Method:  method,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		if _, err := orderRepo.CreateShipment(ctx, &models.Shipment{
			OrderID:         order.ID,
			Status:          enums.ShipmentStatusPending,
			Courier:         s.courier,
			ShippingAddress: input.ShippingAddress,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		if _, err := s.events.RecordEvent(ctx, tx, ledger.RecordOrderEventInput{
			OrderID:     order.ID,
			ActorUserID: userID,
			Type:        enums.OrderEventCreated,
			Metadata:    eventMetadata(map[string]any{"order_number": order.OrderNumber, "total": order.Total}),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order event")
		}

		deleted, err := cartRepo.DeleteItemsByID(ctx, record.ID, lineIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if deleted != int64(len(lineIDs)) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cart changed during checkout")
		}
		if err := cartRepo.RecomputeTotal(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart total")
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		s.checkout.IncOrder("failure")
		return nil, err
	}

	s.checkout.IncOrder("success")
	return s.repo.FindByID(ctx, orderID)
}

// Cancel releases reserved stock and moves a PENDING order to CANCELLED.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		for _, item := range order.Items {
			if err := inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := orderRepo.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		_, err = s.events.RecordEvent(ctx, tx, ledger.RecordOrderEventInput{
			OrderID:     orderID,
			ActorUserID: userID,
			Type:        enums.OrderEventCancelled,
			Metadata:    eventMetadata(map[string]any{"from": order.Status}),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, orderID)
}

// GetByID loads one order. Customers only see their own orders; the miss is
// reported as NOT_FOUND rather than FORBIDDEN to avoid leaking existence.
func (s *service) GetByID(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isAdmin && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	list, err := s.repo.ListByStatus(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// UpdateStatus overwrites the order status without transition validation.
// This is the admin override path; every use is written to the audit trail.
func (s *service) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		_, err = s.events.RecordEvent(ctx, tx, ledger.RecordOrderEventInput{
			OrderID:     orderID,
			ActorUserID: actorID,
			Type:        enums.OrderEventStatusOverride,
			Metadata:    eventMetadata(map[string]any{"from": order.Status, "to": status}),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, orderID)
}

func generateOrderNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + raw[:12]
}

func eventMetadata(fields map[string]any) json.RawMessage {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return raw
}
