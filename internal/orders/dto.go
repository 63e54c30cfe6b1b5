package orders

import (
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

// CheckoutInput captures the payload required to convert a cart into an order.
type CheckoutInput struct {
	ShippingAddress string              `json:"shipping_address" validate:"required"`
	BillingAddress  string              `json:"billing_address"`
	Notes           *string             `json:"notes"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}
