package model

import (
	"fmt"
	"time"
)

type ProjectStatus string

const (
	StatusPending    ProjectStatus = "PENDING"
	StatusInProgress ProjectStatus = "IN_PROGRESS"
	StatusCompleted  ProjectStatus = "COMPLETED"
)

// projectTransitions lists the only legal forward moves. There is no way back.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

func ParseProjectStatus(raw string) (ProjectStatus, bool) {
	switch s := ProjectStatus(raw); s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return s, true
	default:
		return "", false
	}
}

func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates the move from s to next and returns next on success.
func (s ProjectStatus) Transition(next ProjectStatus) (ProjectStatus, error) {
	if !s.CanTransitionTo(next) {
		return s, &TransitionError{From: s, To: next}
	}
	return next, nil
}

func (s ProjectStatus) AcceptsBids() bool {
	return s == StatusPending
}

// Deletable reports whether a project in this status may be removed by its buyer.
func (s ProjectStatus) Deletable() bool {
	return s == StatusPending
}

type TransitionError struct {
	From ProjectStatus
	To   ProjectStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move project from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	BudgetMin   float64       `json:"budgetMin"`
	BudgetMax   float64       `json:"budgetMax"`
	Deadline    time.Time     `json:"deadline"`
	BuyerID     string        `json:"buyerId"`
	SellerID    *string       `json:"sellerId"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (p Project) AssignedTo(sellerID string) bool {
	return p.SellerID != nil && *p.SellerID == sellerID
}

// ProjectDetails is the seller-facing summary shown before bidding.
type ProjectDetails struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Budget      string        `json:"budget"`
	Deadline    string        `json:"deadline"`
	Status      ProjectStatus `json:"status"`
}

func (p Project) Details() ProjectDetails {
	return ProjectDetails{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Budget:      fmt.Sprintf("$%s - $%s", formatMoney(p.BudgetMin), formatMoney(p.BudgetMax)),
		Deadline:    p.Deadline.Format(DateLayout),
		Status:      p.Status,
	}
}

const DateLayout = "2006-01-02"

func formatMoney(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
