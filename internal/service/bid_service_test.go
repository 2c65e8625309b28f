package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"150.00", 15000, true},
		{"19.99", 1999, true},
		{" 42 ", 4200, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ToMinorUnits(tc.raw)
			if !tc.ok {
				requireCode(t, err, apierror.CodeValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBidService_Place(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)
	project := env.createProject(t, buyer)

	bid := env.placeBid(t, seller, project.ID)
	assert.Equal(t, int64(15000), bid.Amount)
	assert.Equal(t, "3 days", bid.EstimatedTime)

	t.Run("duplicate bid conflicts", func(t *testing.T) {
		_, err := env.bids.Place(ctx, seller, model.CreateBidRequest{
			ProjectID: project.ID, Amount: "120", EstimatedTime: "2", Message: "again",
		})
		requireCode(t, err, apierror.CodeConflict)
		assert.Contains(t, err.Error(), "already placed a bid")
	})

	t.Run("buyer cannot bid", func(t *testing.T) {
		_, err := env.bids.Place(ctx, buyer, model.CreateBidRequest{
			ProjectID: project.ID, Amount: "120", EstimatedTime: "2", Message: "hi",
		})
		requireCode(t, err, apierror.CodeForbidden)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := env.bids.Place(ctx, seller, model.CreateBidRequest{ProjectID: project.ID, Amount: "120"})
		requireCode(t, err, apierror.CodeValidation)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := env.bids.Place(ctx, seller, model.CreateBidRequest{
			ProjectID: uuid.NewString(), Amount: "120", EstimatedTime: "2", Message: "hi",
		})
		requireCode(t, err, apierror.CodeNotFound)
	})

	t.Run("project no longer pending", func(t *testing.T) {
		late := env.register(t, "Lee", "l@x.com", model.RoleSeller)
		_, err := env.projects.AssignSeller(ctx, buyer, project.ID, seller.UserID)
		require.NoError(t, err)

		_, err = env.bids.Place(ctx, late, model.CreateBidRequest{
			ProjectID: project.ID, Amount: "120", EstimatedTime: "2", Message: "hi",
		})
		requireCode(t, err, apierror.CodeInvalidState)
		assert.ErrorIs(t, err, model.ErrNotAcceptingBids)
	})

	t.Run("project completed", func(t *testing.T) {
		late := env.register(t, "Max", "m@x.com", model.RoleSeller)
		completed, err := env.projects.UpdateStatus(ctx, seller, project.ID, "COMPLETED")
		require.NoError(t, err)
		require.Equal(t, model.StatusCompleted, completed.Status)

		_, err = env.bids.Place(ctx, late, model.CreateBidRequest{
			ProjectID: project.ID, Amount: "120", EstimatedTime: "2", Message: "hi",
		})
		requireCode(t, err, apierror.CodeInvalidState)
		assert.ErrorIs(t, err, model.ErrNotAcceptingBids)

		has, err := env.bids.HasBid(ctx, late, project.ID)
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestBidService_Listing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)
	first := env.register(t, "Sam", "s@x.com", model.RoleSeller)
	second := env.register(t, "Sue", "su@x.com", model.RoleSeller)
	project := env.createProject(t, buyer)

	env.placeBid(t, first, project.ID)
	env.placeBid(t, second, project.ID)

	all, err := env.bids.ListForProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.UserID, all[0].SellerID)

	mine, err := env.bids.Mine(ctx, second)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, project.ID, mine[0].Project.ID)
	assert.Equal(t, "Logo", mine[0].Project.Title)

	has, err := env.bids.HasBid(ctx, first, project.ID)
	require.NoError(t, err)
	assert.True(t, has)

	other := env.createProject(t, buyer)
	has, err = env.bids.HasBid(ctx, first, other.ID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = env.bids.HasBid(ctx, first, "bad")
	requireCode(t, err, apierror.CodeValidation)
}
