package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"freelance-market/internal/event"
	"freelance-market/internal/model"
	"freelance-market/internal/repository/memory"
	"freelance-market/internal/storage"
	"freelance-market/pkg/apierror"
)

type testEnv struct {
	store        *memory.Store
	bus          *event.InMemoryBus
	audit        *AuditService
	auth         *AuthService
	projects     *ProjectService
	bids         *BidService
	deliverables *DeliverableService
	files        *storage.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	bus := event.NewBus()
	audit := NewAuditService(store.Audit())

	files, err := storage.New(t.TempDir())
	require.NoError(t, err)

	return &testEnv{
		store: store,
		bus:   bus,
		audit: audit,
		auth: NewAuthService(store.Users(), audit, bus, AuthConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
			BcryptCost:    bcrypt.MinCost,
		}),
		projects:     NewProjectService(store.Projects(), store.Users(), audit, bus, "Project Team"),
		bids:         NewBidService(store.Bids(), store.Projects(), audit, bus),
		deliverables: NewDeliverableService(store.Deliverables(), store.Projects(), store.Users(), files, audit, bus, 1024, nil),
		files:        files,
	}
}

func (e *testEnv) register(t *testing.T, name string, email string, role model.Role) model.AuditActor {
	t.Helper()

	user, err := e.auth.Register(context.Background(), name, email, "secret123", string(role))
	require.NoError(t, err)
	return model.AuditActor{UserID: user.ID, Email: user.Email, Role: user.Role}
}

func (e *testEnv) createProject(t *testing.T, buyer model.AuditActor) model.Project {
	t.Helper()

	project, err := e.projects.Create(context.Background(), buyer, model.CreateProjectRequest{
		Title:       "Logo",
		Description: "A logo for the shop",
		BudgetMin:   "100",
		BudgetMax:   "200",
		Deadline:    "2025-01-01",
	})
	require.NoError(t, err)
	return project
}

func (e *testEnv) placeBid(t *testing.T, seller model.AuditActor, projectID string) model.Bid {
	t.Helper()

	bid, err := e.bids.Place(context.Background(), seller, model.CreateBidRequest{
		ProjectID:     projectID,
		Amount:        "150.00",
		EstimatedTime: "3 days",
		Message:       "hi",
	})
	require.NoError(t, err)
	return bid
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apierror.CodeOf(err), err.Error())
}
