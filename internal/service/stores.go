package service

import (
	"context"
	"io/fs"
	"os"
	"time"

	"freelance-market/internal/model"
)

// UserStore persists accounts and the single active refresh token per user.
type UserStore interface {
	Create(ctx context.Context, u model.User) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	SetRefreshToken(ctx context.Context, userID string, token *string) error
	// RotateRefreshToken replaces current with next only if current is still
	// the stored value. It reports false when the stored value differs.
	RotateRefreshToken(ctx context.Context, userID string, current string, next string) (bool, error)
}

// ProjectStore persists projects. Status-changing methods are conditional on
// the expected current status and fail with model.ErrInvalidTransition when
// the row has moved on.
type ProjectStore interface {
	Create(ctx context.Context, p model.Project) error
	FindByID(ctx context.Context, id string) (model.Project, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]model.Project, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Project, error)
	ListOpen(ctx context.Context) ([]model.Project, error)
	Assign(ctx context.Context, projectID string, sellerID string, from model.ProjectStatus, to model.ProjectStatus, notification model.OutboxMessage) (model.Project, error)
	UpdateStatus(ctx context.Context, projectID string, from model.ProjectStatus, to model.ProjectStatus) (model.Project, error)
	Delete(ctx context.Context, projectID string, expected model.ProjectStatus) (model.Project, error)
}

type BidStore interface {
	Create(ctx context.Context, b model.Bid) error
	Exists(ctx context.Context, projectID string, sellerID string) (bool, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Bid, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.SellerBid, error)
}

type DeliverableStore interface {
	Create(ctx context.Context, d model.Deliverable) error
	LatestByProject(ctx context.Context, projectID string) (model.Deliverable, error)
}

type OutboxStore interface {
	// ClaimDue leases up to limit pending messages whose next attempt is due.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, errText string) error
	MarkDead(ctx context.Context, id string, attempts int, at time.Time, errText string) error
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	ListByResource(ctx context.Context, resource string, limit int) ([]model.AuditEntry, error)
}

// FileStore is the deliverable file area on disk.
type FileStore interface {
	Stat(clientPath string) (fs.FileInfo, error)
	RemoveAll(clientPath string) error
	OpenForRead(clientPath string) (*os.File, error)
	OpenForWrite(clientPath string) (*os.File, error)
}
