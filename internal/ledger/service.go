package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

// Service records the append-only audit trail behind order and payment
// transitions.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordOrderEventInput) (*models.OrderEvent, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error)
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.OrderEventType) (bool, error)
}

type service struct {
	repo Repository
}

// RecordOrderEventInput captures the immutable data an order event requires.
type RecordOrderEventInput struct {
	OrderID     uuid.UUID            `json:"order_id"`
	ActorUserID uuid.UUID            `json:"actor_user_id"`
	Type        enums.OrderEventType `json:"type"`
	Metadata    json.RawMessage      `json:"metadata"`
}

// NewService wires an order event service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order event repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent writes one audit row. A non-nil tx makes the event commit or
// roll back together with the transition it documents.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordOrderEventInput) (*models.OrderEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("actor user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid order event type %q", input.Type)
	}

	event := &models.OrderEvent{
		OrderID:     input.OrderID,
		ActorUserID: input.ActorUserID,
		Type:        input.Type,
		Metadata:    input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.OrderEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid order event type %q", eventType)
	}

	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}
