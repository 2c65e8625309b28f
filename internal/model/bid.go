package model

import "time"

type Bid struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	SellerID      string    `json:"sellerId"`
	Amount        int64     `json:"amount"`
	EstimatedTime string    `json:"estimatedTime"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SellerBid is a bid joined with the project it was placed on.
type SellerBid struct {
	Bid
	Project Project `json:"project"`
}
