package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

// Payment is the one-to-one settlement record for an order. Amount is
// copied from the order total at checkout time.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Method          enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	TransactionID   *string             `gorm:"column:transaction_id"`
	GatewayResponse *string             `gorm:"column:gateway_response"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
