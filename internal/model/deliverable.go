package model

import "time"

type Deliverable struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	SellerID  string    `json:"sellerId"`
	FileURL   *string   `json:"fileUrl"`
	Link      *string   `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
}

type DeliverableView struct {
	ID      string   `json:"id"`
	FileURL *string  `json:"fileUrl"`
	Link    *string  `json:"link"`
	Seller  AuthUser `json:"seller"`
}

// StoredFile describes a deliverable file persisted on disk.
type StoredFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}
