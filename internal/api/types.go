package api

import (
	"time"

	"github.com/halcyonops/halcyon/internal/alert"
	"github.com/halcyonops/halcyon/internal/budget"
	"github.com/halcyonops/halcyon/internal/gate"
)

// BudgetListResponse lists the latest cached budget per service.
type BudgetListResponse struct {
	Services []ServiceBudgets `json:"services"`
}

// ServiceBudgets groups a service's budgets with its evaluation errors.
type ServiceBudgets struct {
	Service   string                `json:"service"`
	Tier      string                `json:"tier"`
	Budgets   []*budget.ErrorBudget `json:"budgets"`
	Errors    []string              `json:"errors,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Stale     bool                  `json:"stale"`
}

// BudgetResponse is the latest budget record for one SLO.
type BudgetResponse struct {
	Budget *budget.ErrorBudget `json:"budget"`
}

// DecisionRequest asks for a deployment gate decision for a service.
type DecisionRequest struct {
	Service    string            `json:"service"`
	SLOID      string            `json:"sloID,omitempty"`
	Team       string            `json:"team,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	ForceFresh bool              `json:"forceFresh,omitempty"`
}

// DecisionResponse is the gate verdict plus the numbers behind it.
type DecisionResponse struct {
	Service   string          `json:"service"`
	Decision  gate.GateResult `json:"decision"`
	Timestamp time.Time       `json:"timestamp"`
}

// AlertsResponse lists recently fired alert events.
type AlertsResponse struct {
	Events []*alert.Event `json:"events"`
	Total  int            `json:"total"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Ready           bool     `json:"ready"`
	ManifestsLoaded int      `json:"manifestsLoaded"`
	Reasons         []string `json:"reasons,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
