package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a customer on whose behalf requests are raised.
type Client struct {
	ID           string
	Name         string
	Active       bool
	AdsUserID    *string
	DesignUserID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnerIDs returns the users responsible for the client.
func (c *Client) OwnerIDs() []string {
	ids := make([]string, 0, 2)
	if c.AdsUserID != nil {
		ids = append(ids, *c.AdsUserID)
	}
	if c.DesignUserID != nil {
		ids = append(ids, *c.DesignUserID)
	}
	return ids
}

// Category classifies a request and carries its default cost.
type Category struct {
	ID                       string
	Name                     string
	Area                     Area
	RequiresExtraDescription bool
	VariableCost             bool
	Cost                     decimal.Decimal
	Active                   bool
}
