package model

import "time"

const OutboxKindSellerSelected = "seller_selected"

type OutboxMessage struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"lastError,omitempty"`
	NextAttemptAt time.Time  `json:"nextAttemptAt"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	DeadAt        *time.Time `json:"deadAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
