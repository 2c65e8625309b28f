package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-market/internal/event"
	"freelance-market/internal/mail"
	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)

	project := env.createProject(t, buyer)
	assert.Equal(t, model.StatusPending, project.Status)
	assert.Equal(t, buyer.UserID, project.BuyerID)
	assert.Nil(t, project.SellerID)
	assert.Equal(t, 100.0, project.BudgetMin)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), project.Deadline)

	_, err := env.projects.Create(ctx, seller, model.CreateProjectRequest{
		Title: "x", Description: "y", BudgetMin: "1", BudgetMax: "2", Deadline: "2025-01-01",
	})
	requireCode(t, err, apierror.CodeForbidden)

	cases := []struct {
		name string
		req  model.CreateProjectRequest
	}{
		{"missing title", model.CreateProjectRequest{Description: "y", BudgetMin: "1", BudgetMax: "2", Deadline: "2025-01-01"}},
		{"negative budget", model.CreateProjectRequest{Title: "x", Description: "y", BudgetMin: "-1", BudgetMax: "2", Deadline: "2025-01-01"}},
		{"min above max", model.CreateProjectRequest{Title: "x", Description: "y", BudgetMin: "5", BudgetMax: "2", Deadline: "2025-01-01"}},
		{"bad deadline", model.CreateProjectRequest{Title: "x", Description: "y", BudgetMin: "1", BudgetMax: "2", Deadline: "soon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.projects.Create(ctx, buyer, tc.req)
			requireCode(t, err, apierror.CodeValidation)
		})
	}
}

func TestProjectService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)

	events, unsubscribe := env.bus.Subscribe()
	defer unsubscribe()

	project := env.createProject(t, buyer)
	env.placeBid(t, seller, project.ID)

	open, err := env.projects.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	assigned, err := env.projects.AssignSeller(ctx, buyer, project.ID, seller.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, assigned.Status)
	require.NotNil(t, assigned.SellerID)
	assert.Equal(t, seller.UserID, *assigned.SellerID)

	queued := env.store.OutboxMessages()
	require.Len(t, queued, 1)
	assert.Equal(t, "s@x.com", queued[0].Recipient)
	assert.Equal(t, mail.SellerSelectedSubject, queued[0].Subject)
	assert.Contains(t, queued[0].Body, "Logo")
	assert.Equal(t, model.OutboxKindSellerSelected, queued[0].Kind)

	open, err = env.projects.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	mine, err := env.projects.ListAssigned(ctx, seller)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, project.ID, mine[0].ID)

	completed, err := env.projects.UpdateStatus(ctx, seller, project.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)

	_, err = env.projects.UpdateStatus(ctx, buyer, project.ID, "COMPLETED")
	requireCode(t, err, apierror.CodeInvalidState)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	seen := map[event.Type]bool{}
	for len(events) > 0 {
		e := <-events
		seen[e.Type] = true
	}
	assert.True(t, seen[event.TypeProjectCreated])
	assert.True(t, seen[event.TypeBidPlaced])
	assert.True(t, seen[event.TypeProjectAssigned])
	assert.True(t, seen[event.TypeProjectStatus])
}

func TestProjectService_AssignSellerRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	other := env.register(t, "Olga", "o@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)
	project := env.createProject(t, buyer)

	_, err := env.projects.AssignSeller(ctx, seller, project.ID, seller.UserID)
	requireCode(t, err, apierror.CodeForbidden)

	_, err = env.projects.AssignSeller(ctx, other, project.ID, seller.UserID)
	requireCode(t, err, apierror.CodeForbidden)
	assert.ErrorIs(t, err, model.ErrNotProjectOwner)

	_, err = env.projects.AssignSeller(ctx, buyer, project.ID, other.UserID)
	requireCode(t, err, apierror.CodeNotFound)
	assert.ErrorIs(t, err, model.ErrSellerNotFound)

	_, err = env.projects.AssignSeller(ctx, buyer, project.ID, "nope")
	requireCode(t, err, apierror.CodeValidation)

	_, err = env.projects.AssignSeller(ctx, buyer, uuid.NewString(), seller.UserID)
	requireCode(t, err, apierror.CodeNotFound)

	_, err = env.projects.AssignSeller(ctx, buyer, project.ID, seller.UserID)
	require.NoError(t, err)

	_, err = env.projects.AssignSeller(ctx, buyer, project.ID, seller.UserID)
	requireCode(t, err, apierror.CodeInvalidState)
	assert.Len(t, env.store.OutboxMessages(), 1)
}

func TestProjectService_UpdateStatusRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)
	stranger := env.register(t, "Stan", "st@x.com", model.RoleSeller)
	project := env.createProject(t, buyer)

	_, err := env.projects.UpdateStatus(ctx, buyer, project.ID, "DONE")
	requireCode(t, err, apierror.CodeValidation)

	_, err = env.projects.UpdateStatus(ctx, buyer, project.ID, "COMPLETED")
	requireCode(t, err, apierror.CodeInvalidState)

	_, err = env.projects.UpdateStatus(ctx, buyer, project.ID, "IN_PROGRESS")
	requireCode(t, err, apierror.CodeInvalidState)

	_, err = env.projects.AssignSeller(ctx, buyer, project.ID, seller.UserID)
	require.NoError(t, err)

	_, err = env.projects.UpdateStatus(ctx, stranger, project.ID, "COMPLETED")
	requireCode(t, err, apierror.CodeForbidden)
	assert.ErrorIs(t, err, model.ErrStatusUpdateDenied)

	_, err = env.projects.UpdateStatus(ctx, buyer, project.ID, "PENDING")
	requireCode(t, err, apierror.CodeInvalidState)

	updated, err := env.projects.UpdateStatus(ctx, buyer, project.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
}

func TestProjectService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	other := env.register(t, "Olga", "o@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)

	pending := env.createProject(t, buyer)
	env.placeBid(t, seller, pending.ID)

	_, err := env.projects.Delete(ctx, other, pending.ID)
	requireCode(t, err, apierror.CodeForbidden)

	deleted, err := env.projects.Delete(ctx, buyer, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, deleted.ID)

	_, err = env.projects.Get(ctx, pending.ID)
	requireCode(t, err, apierror.CodeNotFound)

	bids, err := env.bids.Mine(ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, bids)

	started := env.createProject(t, buyer)
	_, err = env.projects.AssignSeller(ctx, buyer, started.ID, seller.UserID)
	require.NoError(t, err)

	_, err = env.projects.Delete(ctx, buyer, started.ID)
	requireCode(t, err, apierror.CodeInvalidState)
	assert.ErrorIs(t, err, model.ErrProjectNotDeletable)
}

func TestProjectService_History(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)
	project := env.createProject(t, buyer)

	_, err := env.projects.AssignSeller(ctx, buyer, project.ID, seller.UserID)
	require.NoError(t, err)

	history, err := env.projects.History(ctx, buyer, project.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, AuditProjectAssign, history[0].Action)
	assert.Equal(t, AuditProjectCreate, history[1].Action)
	assert.Equal(t, "b@x.com", history[0].Actor.Email)

	_, err = env.projects.History(ctx, seller, project.ID, 0)
	requireCode(t, err, apierror.CodeForbidden)
}

func TestProjectService_Details(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	project := env.createProject(t, buyer)

	details, err := env.projects.Details(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, "$100 - $200", details.Budget)
	assert.Equal(t, "2025-01-01", details.Deadline)

	_, err = env.projects.Details(context.Background(), "not-an-id")
	requireCode(t, err, apierror.CodeValidation)
}

func TestParseDeadline(t *testing.T) {
	got, err := ParseDeadline("2025-03-04T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseDeadline("04/03/2025")
	requireCode(t, err, apierror.CodeValidation)
}
