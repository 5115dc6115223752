package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/request-desk/pkg/util"
)

// BillingState enumerates billing period states. It only moves forward.
type BillingState string

const (
	BillingOpen     BillingState = "OPEN"
	BillingClosed   BillingState = "CLOSED"
	BillingInvoiced BillingState = "INVOICED"
)

// BillingPeriod is a client's monthly request aggregate.
type BillingPeriod struct {
	ID            string
	ClientID      string
	Year          int
	Month         int
	TotalRequests int
	TotalCost     decimal.Decimal
	State         BillingState
	ClosedAt      *time.Time
	InvoicedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Close moves an open period to Closed. It reports whether anything changed.
func (p *BillingPeriod) Close(now time.Time) (bool, error) {
	switch p.State {
	case BillingOpen:
		t := now
		p.State = BillingClosed
		p.ClosedAt = &t
		return true, nil
	case BillingClosed:
		return false, nil
	default:
		return false, util.NewValidationError("invoiced periods cannot be closed again", map[string]any{
			"billing_period_id": p.ID,
		})
	}
}

// Invoice closes the period if needed and marks it invoiced.
func (p *BillingPeriod) Invoice(now time.Time) bool {
	if p.State == BillingInvoiced {
		return false
	}
	if p.State == BillingOpen {
		_, _ = p.Close(now)
	}
	t := now
	p.State = BillingInvoiced
	p.InvoicedAt = &t
	return true
}

// ClientTotal is one row of a billing aggregation.
type ClientTotal struct {
	ClientID      string
	TotalRequests int
	TotalCost     decimal.Decimal
}
