package models

import "time"

// DashboardMetrics is recomputed on every request. MonthlyExpenses is summed
// as a decimal and only converted to float64 here, for display.
type DashboardMetrics struct {
	TotalEmails         int64   `json:"totalEmails"`
	UncategorizedEmails int64   `json:"uncategorizedEmails"`
	TotalDocuments      int64   `json:"totalDocuments"`
	MonthlyExpenses     float64 `json:"monthlyExpenses"`
}

type CategoryExpense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Count    int64   `json:"count"`
}

type MonthlyVolume struct {
	Month  string  `json:"month"` // YYYY-MM
	Emails int64   `json:"emails"`
	Amount float64 `json:"amount"`
}

// Contact aggregates the emails received from one sender address.
type Contact struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailCount    int64     `json:"emailCount"`
	TotalAmount   float64   `json:"totalAmount"`
	LastEmailDate time.Time `json:"lastEmailDate"`
}
