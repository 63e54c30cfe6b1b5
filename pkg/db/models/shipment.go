package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

// Shipment is the one-to-one delivery record for an order. The shipping
// address is snapshotted at checkout time.
type Shipment struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Status            enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Courier           string               `gorm:"column:courier;not null"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time           `gorm:"column:estimated_delivery"`
	ActualDelivery    *time.Time           `gorm:"column:actual_delivery"`
	ShippingAddress   string               `gorm:"column:shipping_address;not null"`
	Notes             *string              `gorm:"column:notes"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
