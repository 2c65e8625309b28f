package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateProjectRequest struct {
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description" validate:"required"`
	BudgetMin   NumberOrString `json:"budgetMin" validate:"required"`
	BudgetMax   NumberOrString `json:"budgetMax" validate:"required"`
	Deadline    string         `json:"deadline" validate:"required"`
}

type AssignSellerRequest struct {
	SellerID string `json:"sellerId" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CreateBidRequest struct {
	ProjectID     string         `json:"projectId" validate:"required"`
	Amount        NumberOrString `json:"amount" validate:"required"`
	EstimatedTime NumberOrString `json:"estimatedTime" validate:"required"`
	Message       string         `json:"message" validate:"required"`
}

// NumberOrString holds a field that clients send either as a JSON number
// or as a string ("150.00", "3 days"). The raw text is kept; parsing happens in
// the service that knows the unit.
type NumberOrString string

func (f *NumberOrString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = NumberOrString(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected number or numeric string: %w", err)
	}
	*f = NumberOrString(n.String())
	return nil
}

func (f NumberOrString) String() string {
	return string(f)
}
