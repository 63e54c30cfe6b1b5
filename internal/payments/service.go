package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/ledger"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProcessInput carries the settlement request payload.
type ProcessInput struct {
	Method     enums.PaymentMethod `json:"method" validate:"required"`
	CardNumber string              `json:"card_number"`
}

// Service exposes the payment and refund processors.
type Service interface {
	Process(ctx context.Context, userID, orderID uuid.UUID, input ProcessInput) (*models.Payment, error)
	Refund(ctx context.Context, actorID, paymentID uuid.UUID) (*models.Payment, error)
	GetByOrder(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	gateway  Gateway
	events   ledger.Service
	checkout *metrics.CheckoutMetrics
}

// NewService builds a payments service backed by the provided stack. The
// metrics handle may be nil.
func NewService(repo Repository, tx txRunner, gateway Gateway, events ledger.Service, checkout *metrics.CheckoutMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if events == nil {
		return nil, fmt.Errorf("order event service required")
	}
	return &service{repo: repo, tx: tx, gateway: gateway, events: events, checkout: checkout}, nil
}

// Process settles the PENDING payment of one owned order through the
// gateway. A declined charge is not an error: the payment row comes back
// FAILED and the order stays PENDING so the user can retry.
func (s *service) Process(ctx context.Context, userID, orderID uuid.UUID, input ProcessInput) (*models.Payment, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayment,
			fmt.Sprintf("order in status %s cannot be paid", order.Status))
	}

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status == enums.PaymentStatusCompleted || payment.Status == enums.PaymentStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayment,
			fmt.Sprintf("payment already %s", payment.Status))
	}

	started := time.Now()
	result, err := s.gateway.Charge(ctx, ChargeRequest{
		OrderNumber: order.OrderNumber,
		Amount:      payment.Amount,
		Method:      input.Method,
		CardNumber:  input.CardNumber,
	})
	s.checkout.ObserveGateway("charge", time.Since(started))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment.Method = input.Method
		payment.GatewayResponse = &result.Message
		if result.Success {
			payment.Status = enums.PaymentStatusCompleted
			payment.TransactionID = &result.TransactionID
		} else {
			payment.Status = enums.PaymentStatusFailed
		}
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		eventType := enums.OrderEventPaymentFailed
		if result.Success {
			eventType = enums.OrderEventPaymentSettled
			paid, err := repo.MarkOrderPaid(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
			if !paid {
				// The order moved while the gateway call was in flight. A
				// recorded settle event pins the cause to a rival settlement.
				settled, lookupErr := s.events.HasEvent(ctx, orderID, enums.OrderEventPaymentSettled)
				if lookupErr == nil && settled {
					return pkgerrors.New(pkgerrors.CodeInvalidPayment, "payment already settled")
				}
				return pkgerrors.New(pkgerrors.CodeInvalidPayment, "order is no longer payable")
			}
		}

		_, err := s.events.RecordEvent(ctx, tx, ledger.RecordOrderEventInput{
			OrderID:     orderID,
			ActorUserID: userID,
			Type:        eventType,
			Metadata:    eventMetadata(map[string]any{"method": input.Method, "message": result.Message}),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment event")
		}
		return nil
	})
	if err != nil {
		s.checkout.IncPayment("failure")
		return nil, err
	}

	if result.Success {
		s.checkout.IncPayment("success")
	} else {
		s.checkout.IncPayment("declined")
	}
	return payment, nil
}

// Refund reverses a COMPLETED payment through the gateway. The order status
// is deliberately left untouched; the refund is visible on the payment row
// and in the audit trail.
func (s *service) Refund(ctx context.Context, actorID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayment,
			fmt.Sprintf("payment in status %s cannot be refunded", payment.Status))
	}

	transactionID := ""
	if payment.TransactionID != nil {
		transactionID = *payment.TransactionID
	}

	started := time.Now()
	result, err := s.gateway.Refund(ctx, transactionID, payment.Amount)
	s.checkout.ObserveGateway("refund", time.Since(started))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway")
	}
	if !result.Success {
		s.checkout.IncRefund("failure")
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayment, result.Message)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment.Status = enums.PaymentStatusRefunded
		response := result.Reference + ": " + result.Message
		payment.GatewayResponse = &response
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		_, err := s.events.RecordEvent(ctx, tx, ledger.RecordOrderEventInput{
			OrderID:     payment.OrderID,
			ActorUserID: actorID,
			Type:        enums.OrderEventPaymentRefunded,
			Metadata:    eventMetadata(map[string]any{"reference": result.Reference, "amount": payment.Amount}),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund event")
		}
		return nil
	})
	if err != nil {
		s.checkout.IncRefund("failure")
		return nil, err
	}

	s.checkout.IncRefund("success")
	return payment, nil
}

// GetByOrder returns the payment of one order, ownership-checked for
// non-admin callers.
func (s *service) GetByOrder(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Payment, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isAdmin && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

func eventMetadata(fields map[string]any) json.RawMessage {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return raw
}
