package service

import (
	"context"
	"log/slog"
	"time"

	"freelance-market/internal/model"
)

const (
	AuditUserRegister      = "auth.register"
	AuditUserLogin         = "auth.login"
	AuditTokenRefresh      = "auth.refresh"
	AuditUserLogout        = "auth.logout"
	AuditProjectCreate     = "project.create"
	AuditProjectAssign     = "project.assign"
	AuditProjectStatus     = "project.status"
	AuditProjectDelete     = "project.delete"
	AuditBidPlace          = "bid.place"
	AuditDeliverableUpload = "deliverable.upload"
)

const defaultHistoryLimit = 100

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log records an entry. A failing store never fails the audited operation.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, before any, after any, errText string) {
	if s == nil || s.store == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Before:     before,
		After:      after,
		Error:      errText,
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("audit log failed", "action", action, "resource", resource, "error", err)
	}
}

// ProjectHistory lists the audit trail of one project, newest first.
func (s *AuditService) ProjectHistory(ctx context.Context, projectID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.ListByResource(ctx, model.ProjectResource(projectID), limit)
}
