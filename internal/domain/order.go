package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote last trade price for a pair at the moment of the query.
type PriceQuote struct {
	Pair      string
	Price     decimal.Decimal
	Timestamp time.Time
}

// PurchaseOrder market buy sized by the planner, ready for placement.
type PurchaseOrder struct {
	Pair string
	// Volume quantity of the base asset, quantized to the pair precision.
	Volume decimal.Decimal
	// EuroAmount configured fiat budget the volume was derived from.
	EuroAmount decimal.Decimal
}

// String returns a human-readable string representation.
func (o *PurchaseOrder) String() string {
	return fmt.Sprintf("%s volume: %s budget: %s EUR", o.Pair, o.Volume.String(), o.EuroAmount.String())
}

// OrderReceipt exchange acknowledgment of a placed order.
type OrderReceipt struct {
	// TxID exchange-assigned transaction id.
	TxID string
	// ClientOrderID id we attached to the request.
	ClientOrderID string
	// Description order description echoed by the exchange.
	Description string
}
