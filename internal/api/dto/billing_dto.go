package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
)

// MonthRequest selects a calendar month.
type MonthRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// GenerateBillingRequest payload.
type GenerateBillingRequest struct {
	ClientID string `json:"client_id"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
}

// BillingPeriodResponse is the API view of a billing period.
type BillingPeriodResponse struct {
	ID            string              `json:"id"`
	ClientID      string              `json:"client_id"`
	Year          int                 `json:"year"`
	Month         int                 `json:"month"`
	TotalRequests int                 `json:"total_requests"`
	TotalCost     decimal.Decimal     `json:"total_cost"`
	State         domain.BillingState `json:"state"`
	ClosedAt      *time.Time          `json:"closed_at,omitempty"`
	InvoicedAt    *time.Time          `json:"invoiced_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewBillingPeriodResponse renders a period.
func NewBillingPeriodResponse(p *domain.BillingPeriod) BillingPeriodResponse {
	return BillingPeriodResponse{
		ID:            p.ID,
		ClientID:      p.ClientID,
		Year:          p.Year,
		Month:         p.Month,
		TotalRequests: p.TotalRequests,
		TotalCost:     p.TotalCost,
		State:         p.State,
		ClosedAt:      p.ClosedAt,
		InvoicedAt:    p.InvoicedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// UserStatisticResponse is one user's month.
type UserStatisticResponse struct {
	UserID             string          `json:"user_id"`
	Area               domain.Area     `json:"area,omitempty"`
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	Created            int             `json:"created"`
	Resolved           int             `json:"resolved"`
	Cancelled          int             `json:"cancelled"`
	AvgResolutionHours float64         `json:"avg_resolution_hours"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	Pending            int             `json:"pending"`
	InProgress         int             `json:"in_progress"`
	Paused             int             `json:"paused"`
	CalculatedAt       time.Time       `json:"calculated_at"`
}

// NewUserStatisticResponse renders a statistic row.
func NewUserStatisticResponse(s *domain.UserStatistic, area domain.Area) UserStatisticResponse {
	return UserStatisticResponse{
		UserID:             s.UserID,
		Area:               area,
		Year:               s.Year,
		Month:              s.Month,
		Created:            s.Created,
		Resolved:           s.Resolved,
		Cancelled:          s.Cancelled,
		AvgResolutionHours: s.AvgResolutionHours,
		TotalCost:          s.TotalCost,
		Pending:            s.Pending,
		InProgress:         s.InProgress,
		Paused:             s.Paused,
		CalculatedAt:       s.CalculatedAt,
	}
}

// NewAreaStatisticResponses renders a month listing.
func NewAreaStatisticResponses(rows []repository.AreaStatistic) []UserStatisticResponse {
	out := make([]UserStatisticResponse, 0, len(rows))
	for i := range rows {
		out = append(out, NewUserStatisticResponse(&rows[i].UserStatistic, rows[i].Area))
	}
	return out
}

// CreateReportRequest payload.
type CreateReportRequest struct {
	ClientID   string   `json:"client_id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	RequestIDs []string `json:"request_ids"`
}

// LinkRequestsRequest payload.
type LinkRequestsRequest struct {
	RequestIDs []string `json:"request_ids"`
}

// ReportResponse is the API view of a report.
type ReportResponse struct {
	ID                string    `json:"id"`
	ClientID          string    `json:"client_id"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	CreatorID         string    `json:"creator_id"`
	RelatedRequestIDs []string  `json:"related_request_ids"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewReportResponse renders a report.
func NewReportResponse(r *domain.Report) ReportResponse {
	related := r.RelatedRequestIDs
	if related == nil {
		related = []string{}
	}
	return ReportResponse{
		ID:                r.ID,
		ClientID:          r.ClientID,
		Title:             r.Title,
		Body:              r.Body,
		CreatorID:         r.CreatorID,
		RelatedRequestIDs: related,
		CreatedAt:         r.CreatedAt,
	}
}

// ClientResponse is the API view of a client.
type ClientResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Active       bool    `json:"active"`
	AdsUserID    *string `json:"ads_user_id"`
	DesignUserID *string `json:"design_user_id"`
}

// NewClientResponse renders a client.
func NewClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{ID: c.ID, Name: c.Name, Active: c.Active, AdsUserID: c.AdsUserID, DesignUserID: c.DesignUserID}
}
