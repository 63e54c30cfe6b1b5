package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

// OrderEvent is an append-only audit record written alongside order and
// payment state transitions.
type OrderEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ActorUserID uuid.UUID            `gorm:"column:actor_user_id;type:uuid;not null"`
	Type        enums.OrderEventType `gorm:"column:type;type:text;not null"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
