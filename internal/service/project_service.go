package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"freelance-market/internal/event"
	"freelance-market/internal/mail"
	"freelance-market/internal/metrics"
	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

type ProjectService struct {
	projects ProjectStore
	users    UserStore
	audit    *AuditService
	bus      event.Bus
	teamName string
}

func NewProjectService(projects ProjectStore, users UserStore, audit *AuditService, bus event.Bus, teamName string) *ProjectService {
	return &ProjectService{projects: projects, users: users, audit: audit, bus: bus, teamName: teamName}
}

func (s *ProjectService) Create(ctx context.Context, actor model.AuditActor, req model.CreateProjectRequest) (model.Project, error) {
	if err := requireCapability(actor, model.OpCreateProject); err != nil {
		return model.Project{}, err
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" || req.BudgetMin == "" || req.BudgetMax == "" || strings.TrimSpace(req.Deadline) == "" {
		return model.Project{}, apierror.Validation("Please fill all fields", "title|description|budgetMin|budgetMax|deadline")
	}

	budgetMin, err := parsePositiveAmount(req.BudgetMin.String(), "budgetMin")
	if err != nil {
		return model.Project{}, err
	}
	budgetMax, err := parsePositiveAmount(req.BudgetMax.String(), "budgetMax")
	if err != nil {
		return model.Project{}, err
	}
	if budgetMin > budgetMax {
		return model.Project{}, apierror.Validation("budgetMin cannot exceed budgetMax", "budgetMin|budgetMax")
	}

	deadline, err := ParseDeadline(req.Deadline)
	if err != nil {
		return model.Project{}, err
	}

	now := time.Now().UTC()
	project := model.Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		BudgetMin:   budgetMin,
		BudgetMax:   budgetMax,
		Deadline:    deadline,
		BuyerID:     actor.UserID,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return model.Project{}, err
	}

	metrics.ProjectsCreatedTotal.Inc()
	s.audit.Log(ctx, AuditProjectCreate, actor, model.AuditStatusSuccess, model.ProjectResource(project.ID), nil, project, "")
	publish(s.bus, event.New(event.TypeProjectCreated, actor.UserID, project))

	return project, nil
}

// ListMine returns the projects the requester posted as a buyer.
func (s *ProjectService) ListMine(ctx context.Context, actor model.AuditActor) ([]model.Project, error) {
	return s.projects.ListByBuyer(ctx, actor.UserID)
}

func (s *ProjectService) ListOpen(ctx context.Context) ([]model.Project, error) {
	return s.projects.ListOpen(ctx)
}

func (s *ProjectService) ListAssigned(ctx context.Context, actor model.AuditActor) ([]model.Project, error) {
	return s.projects.ListBySeller(ctx, actor.UserID)
}

func (s *ProjectService) Get(ctx context.Context, projectID string) (model.Project, error) {
	if err := requireID(projectID, "project"); err != nil {
		return model.Project{}, err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return model.Project{}, mapProjectErr(err, projectID)
	}
	return project, nil
}

func (s *ProjectService) Details(ctx context.Context, projectID string) (model.ProjectDetails, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return model.ProjectDetails{}, err
	}
	return project.Details(), nil
}

// Owned loads a project and checks that userID posted it.
func (s *ProjectService) Owned(ctx context.Context, userID string, projectID string) (model.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}
	if project.BuyerID != userID {
		return model.Project{}, apierror.From(model.ErrNotProjectOwner, apierror.Forbidden)
	}
	return project, nil
}

// AssignSeller moves a PENDING project to IN_PROGRESS with the chosen seller.
// The seller's notification is queued in the same store write and delivered
// later by the NotificationDispatcher.
func (s *ProjectService) AssignSeller(ctx context.Context, actor model.AuditActor, projectID string, sellerID string) (model.Project, error) {
	if err := requireCapability(actor, model.OpAssignSeller); err != nil {
		return model.Project{}, err
	}
	if err := requireID(sellerID, "seller"); err != nil {
		return model.Project{}, err
	}

	project, err := s.Owned(ctx, actor.UserID, projectID)
	if err != nil {
		return model.Project{}, err
	}

	next, err := project.Status.Transition(model.StatusInProgress)
	if err != nil {
		s.audit.Log(ctx, AuditProjectAssign, actor, model.AuditStatusFailed, model.ProjectResource(projectID), project, nil, err.Error())
		return model.Project{}, invalidState(err)
	}

	seller, err := s.users.FindByID(ctx, sellerID)
	if errors.Is(err, model.ErrUserNotFound) || (err == nil && seller.Role != model.RoleSeller) {
		return model.Project{}, apierror.From(model.ErrSellerNotFound, func(msg string) *apierror.APIError {
			return apierror.NotFound(msg, sellerID)
		})
	}
	if err != nil {
		return model.Project{}, err
	}

	html, err := mail.RenderSellerSelected(mail.SellerSelected{
		SellerName:   seller.Name,
		ProjectTitle: project.Title,
		Status:       string(next),
		TeamName:     s.teamName,
	})
	if err != nil {
		return model.Project{}, err
	}

	now := time.Now().UTC()
	notification := model.OutboxMessage{
		ID:            uuid.NewString(),
		Kind:          model.OutboxKindSellerSelected,
		Recipient:     seller.Email,
		Subject:       mail.SellerSelectedSubject,
		Body:          html,
		NextAttemptAt: now,
		CreatedAt:     now,
	}

	updated, err := s.projects.Assign(ctx, projectID, seller.ID, project.Status, next, notification)
	if err != nil {
		err = mapProjectErr(err, projectID)
		s.audit.Log(ctx, AuditProjectAssign, actor, model.AuditStatusFailed, model.ProjectResource(projectID), project, nil, err.Error())
		return model.Project{}, err
	}

	metrics.ProjectTransitionsTotal.WithLabelValues(string(project.Status), string(next)).Inc()
	s.audit.Log(ctx, AuditProjectAssign, actor, model.AuditStatusSuccess, model.ProjectResource(projectID), project, updated, "")
	publish(s.bus, event.New(event.TypeProjectAssigned, actor.UserID, updated))

	return updated, nil
}

// UpdateStatus applies a status change requested by the owning buyer or the
// assigned seller. Starting work goes through AssignSeller, so the only move
// accepted here is IN_PROGRESS to COMPLETED.
func (s *ProjectService) UpdateStatus(ctx context.Context, actor model.AuditActor, projectID string, rawStatus string) (model.Project, error) {
	target, ok := model.ParseProjectStatus(strings.ToUpper(strings.TrimSpace(rawStatus)))
	if !ok {
		return model.Project{}, apierror.Validation("status must be one of PENDING, IN_PROGRESS, COMPLETED", rawStatus)
	}

	project, err := s.Get(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}

	if project.BuyerID != actor.UserID && !project.AssignedTo(actor.UserID) {
		return model.Project{}, apierror.From(model.ErrStatusUpdateDenied, apierror.Forbidden)
	}

	if target == model.StatusInProgress {
		return model.Project{}, apierror.InvalidState("assign a seller to start the project", string(project.Status)).Wrap(model.ErrInvalidTransition)
	}

	next, err := project.Status.Transition(target)
	if err != nil {
		s.audit.Log(ctx, AuditProjectStatus, actor, model.AuditStatusFailed, model.ProjectResource(projectID), project, nil, err.Error())
		return model.Project{}, invalidState(err)
	}

	updated, err := s.projects.UpdateStatus(ctx, projectID, project.Status, next)
	if err != nil {
		err = mapProjectErr(err, projectID)
		s.audit.Log(ctx, AuditProjectStatus, actor, model.AuditStatusFailed, model.ProjectResource(projectID), project, nil, err.Error())
		return model.Project{}, err
	}

	metrics.ProjectTransitionsTotal.WithLabelValues(string(project.Status), string(next)).Inc()
	s.audit.Log(ctx, AuditProjectStatus, actor, model.AuditStatusSuccess, model.ProjectResource(projectID), project, updated, "")
	publish(s.bus, event.New(event.TypeProjectStatus, actor.UserID, updated))

	return updated, nil
}

// Delete removes a project that has not started yet.
func (s *ProjectService) Delete(ctx context.Context, actor model.AuditActor, projectID string) (model.Project, error) {
	if err := requireCapability(actor, model.OpDeleteProject); err != nil {
		return model.Project{}, err
	}

	project, err := s.Owned(ctx, actor.UserID, projectID)
	if err != nil {
		return model.Project{}, err
	}

	if !project.Status.Deletable() {
		s.audit.Log(ctx, AuditProjectDelete, actor, model.AuditStatusFailed, model.ProjectResource(projectID), project, nil, model.ErrProjectNotDeletable.Error())
		return model.Project{}, apierror.From(model.ErrProjectNotDeletable, func(msg string) *apierror.APIError {
			return apierror.InvalidState(msg, string(project.Status))
		})
	}

	deleted, err := s.projects.Delete(ctx, projectID, project.Status)
	if err != nil {
		return model.Project{}, mapProjectErr(err, projectID)
	}

	s.audit.Log(ctx, AuditProjectDelete, actor, model.AuditStatusSuccess, model.ProjectResource(projectID), deleted, nil, "")
	publish(s.bus, event.New(event.TypeProjectDeleted, actor.UserID, deleted))

	return deleted, nil
}

// History returns the audit trail of a project to its owner.
func (s *ProjectService) History(ctx context.Context, actor model.AuditActor, projectID string, limit int) ([]model.AuditEntry, error) {
	if _, err := s.Owned(ctx, actor.UserID, projectID); err != nil {
		return nil, err
	}
	return s.audit.ProjectHistory(ctx, projectID, limit)
}

// ParseDeadline accepts a calendar date ("2025-01-01") or an RFC 3339 timestamp.
func ParseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apierror.Validation("deadline must be a date (YYYY-MM-DD) or RFC 3339 timestamp", raw)
}

func parsePositiveAmount(raw string, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, apierror.Validation(field+" must be a positive number", raw)
	}
	return v, nil
}

func requireID(id string, what string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return apierror.Validation(fmt.Sprintf("Valid %s ID is required", what), id)
	}
	return nil
}

func requireCapability(actor model.AuditActor, op model.Operation) error {
	if !actor.Role.Can(op) {
		return apierror.From(model.ErrForbidden, apierror.Forbidden)
	}
	return nil
}

func invalidState(err error) error {
	return apierror.InvalidState(err.Error(), "").Wrap(err)
}

// mapProjectErr turns store sentinels into API errors and passes anything
// else through unchanged.
func mapProjectErr(err error, projectID string) error {
	switch {
	case errors.Is(err, model.ErrProjectNotFound):
		return apierror.From(model.ErrProjectNotFound, func(msg string) *apierror.APIError {
			return apierror.NotFound(msg, projectID)
		})
	case errors.Is(err, model.ErrInvalidTransition):
		return invalidState(err)
	default:
		return err
	}
}
