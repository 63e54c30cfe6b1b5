package enums

import "fmt"

// OrderEventType labels immutable audit events recorded against an order.
type OrderEventType string

const (
	OrderEventCreated         OrderEventType = "order_created"
	OrderEventCancelled       OrderEventType = "order_cancelled"
	OrderEventStatusOverride  OrderEventType = "order_status_override"
	OrderEventPaymentSettled  OrderEventType = "payment_settled"
	OrderEventPaymentFailed   OrderEventType = "payment_failed"
	OrderEventPaymentRefunded OrderEventType = "payment_refunded"
)

var validOrderEventTypes = []OrderEventType{
	OrderEventCreated,
	OrderEventCancelled,
	OrderEventStatusOverride,
	OrderEventPaymentSettled,
	OrderEventPaymentFailed,
	OrderEventPaymentRefunded,
}

// String implements fmt.Stringer.
func (o OrderEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderEventType.
func (o OrderEventType) IsValid() bool {
	for _, candidate := range validOrderEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderEventType converts raw input into an OrderEventType.
func ParseOrderEventType(value string) (OrderEventType, error) {
	for _, candidate := range validOrderEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event type %q", value)
}
