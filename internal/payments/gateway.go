package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

// ChargeRequest describes one settlement attempt sent to the gateway.
type ChargeRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Method      enums.PaymentMethod
	CardNumber  string
}

// ChargeResult is the gateway's verdict on a charge.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Message       string
}

// RefundResult is the gateway's verdict on a refund.
type RefundResult struct {
	Success   bool
	Reference string
	Message   string
}

// Gateway abstracts the payment provider so the processor can be tested
// without network calls.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*RefundResult, error)
}

// simulatedGateway emulates an external provider with bounded latency.
// Cash on delivery always settles; card methods need a plausible card number.
type simulatedGateway struct {
	latency       time.Duration
	refundLatency time.Duration
}

// NewSimulatedGateway builds the gateway from configuration.
func NewSimulatedGateway(cfg config.GatewayConfig) Gateway {
	return &simulatedGateway{
		latency:       cfg.Latency,
		refundLatency: cfg.RefundLatency,
	}
}

func (g *simulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := sleepCtx(ctx, g.latency); err != nil {
		return nil, err
	}

	if req.Method == enums.PaymentMethodCashOnDelivery {
		return &ChargeResult{
			Success:       true,
			TransactionID: "COD-" + shortRef(),
			Message:       "cash on delivery accepted",
		}, nil
	}

	card := strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	if len(card) < 16 {
		return &ChargeResult{
			Success: false,
			Message: "card declined: invalid card number",
		}, nil
	}

	return &ChargeResult{
		Success:       true,
		TransactionID: "CARD-" + shortRef(),
		Message:       "charge approved",
	}, nil
}

func (g *simulatedGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*RefundResult, error) {
	if err := sleepCtx(ctx, g.refundLatency); err != nil {
		return nil, err
	}

	return &RefundResult{
		Success:   true,
		Reference: "REFUND-" + shortRef(),
		Message:   "refund issued for " + transactionID,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shortRef() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}
