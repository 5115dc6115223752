package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStatistic aggregates a user's activity for one calendar month.
type UserStatistic struct {
	ID                 string
	UserID             string
	Year               int
	Month              int
	Created            int
	Resolved           int
	Cancelled          int
	AvgResolutionHours float64
	TotalCost          decimal.Decimal
	Pending            int
	InProgress         int
	Paused             int
	CalculatedAt       time.Time
}

// StatisticSummary sums UserStatistic rows.
type StatisticSummary struct {
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	Users              int             `json:"users"`
	Created            int             `json:"created"`
	Resolved           int             `json:"resolved"`
	Cancelled          int             `json:"cancelled"`
	AvgResolutionHours float64         `json:"avg_resolution_hours"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	Pending            int             `json:"pending"`
	InProgress         int             `json:"in_progress"`
	Paused             int             `json:"paused"`
}

// Add folds s into the summary. Average hours are weighted by resolved count.
func (sum *StatisticSummary) Add(s UserStatistic) {
	totalHours := sum.AvgResolutionHours*float64(sum.Resolved) + s.AvgResolutionHours*float64(s.Resolved)
	sum.Users++
	sum.Created += s.Created
	sum.Resolved += s.Resolved
	sum.Cancelled += s.Cancelled
	sum.TotalCost = sum.TotalCost.Add(s.TotalCost)
	sum.Pending += s.Pending
	sum.InProgress += s.InProgress
	sum.Paused += s.Paused
	if sum.Resolved > 0 {
		sum.AvgResolutionHours = totalHours / float64(sum.Resolved)
	}
}
