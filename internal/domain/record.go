// Package domain defines core data structures used throughout the purchase bot.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status outcome of a purchase attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// TransactionRecord is the immutable outcome of one purchase attempt.
// It is appended to the journal and never mutated afterwards.
type TransactionRecord struct {
	Timestamp  time.Time
	Pair       string
	Price      decimal.Decimal
	Volume     decimal.Decimal
	EuroAmount decimal.Decimal
	OrderID    string
	Status     Status
	ErrDetail  string
}

// Failed reports whether the attempt did not result in a placed order.
func (r *TransactionRecord) Failed() bool {
	return r.Status == StatusFailed
}

// String returns a human-readable string representation.
func (r *TransactionRecord) String() string {
	if r.Failed() {
		return fmt.Sprintf("%s failed: %s", r.Pair, r.ErrDetail)
	}
	return fmt.Sprintf("%s bought %s @ %s for %s EUR (order %s)",
		r.Pair, r.Volume.String(), r.Price.String(), r.EuroAmount.String(), r.OrderID)
}
