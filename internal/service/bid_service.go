package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"freelance-market/internal/event"
	"freelance-market/internal/metrics"
	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

type BidService struct {
	bids     BidStore
	projects ProjectStore
	audit    *AuditService
	bus      event.Bus
}

func NewBidService(bids BidStore, projects ProjectStore, audit *AuditService, bus event.Bus) *BidService {
	return &BidService{bids: bids, projects: projects, audit: audit, bus: bus}
}

// Place records a seller's bid. Checks run in a fixed order: duplicate bid,
// missing project, then project status.
func (s *BidService) Place(ctx context.Context, actor model.AuditActor, req model.CreateBidRequest) (model.Bid, error) {
	if err := requireCapability(actor, model.OpPlaceBid); err != nil {
		return model.Bid{}, err
	}

	projectID := strings.TrimSpace(req.ProjectID)
	estimated := strings.TrimSpace(req.EstimatedTime.String())
	message := strings.TrimSpace(req.Message)
	if projectID == "" || req.Amount == "" || estimated == "" || message == "" {
		return model.Bid{}, apierror.Validation("Please fill all fields", "projectId|amount|estimatedTime|message")
	}
	if err := requireID(projectID, "project"); err != nil {
		return model.Bid{}, err
	}

	amount, err := ToMinorUnits(req.Amount.String())
	if err != nil {
		return model.Bid{}, err
	}

	exists, err := s.bids.Exists(ctx, projectID, actor.UserID)
	if err != nil {
		return model.Bid{}, err
	}
	if exists {
		return model.Bid{}, bidConflict()
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return model.Bid{}, mapProjectErr(err, projectID)
	}

	if !project.Status.AcceptsBids() {
		return model.Bid{}, apierror.From(model.ErrNotAcceptingBids, func(msg string) *apierror.APIError {
			return apierror.InvalidState(msg, string(project.Status))
		})
	}

	bid := model.Bid{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		SellerID:      actor.UserID,
		Amount:        amount,
		EstimatedTime: estimated,
		Message:       message,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.bids.Create(ctx, bid); err != nil {
		if errors.Is(err, model.ErrBidAlreadyPlaced) {
			return model.Bid{}, bidConflict()
		}
		return model.Bid{}, err
	}

	metrics.BidsPlacedTotal.Inc()
	s.audit.Log(ctx, AuditBidPlace, actor, model.AuditStatusSuccess, model.ProjectResource(projectID), nil, bid, "")
	publish(s.bus, event.New(event.TypeBidPlaced, actor.UserID, bid))

	return bid, nil
}

func (s *BidService) Mine(ctx context.Context, actor model.AuditActor) ([]model.SellerBid, error) {
	return s.bids.ListBySeller(ctx, actor.UserID)
}

// ListForProject returns every bid on a project. Ownership is checked by the
// route guard before this is reached.
func (s *BidService) ListForProject(ctx context.Context, projectID string) ([]model.Bid, error) {
	if err := requireID(projectID, "project"); err != nil {
		return nil, err
	}
	return s.bids.ListByProject(ctx, projectID)
}

func (s *BidService) HasBid(ctx context.Context, actor model.AuditActor, projectID string) (bool, error) {
	if err := requireID(projectID, "project"); err != nil {
		return false, err
	}
	return s.bids.Exists(ctx, projectID, actor.UserID)
}

// ToMinorUnits converts a decimal amount such as "150.00" to cents (15000),
// rounding half away from zero.
func ToMinorUnits(raw string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, apierror.Validation("amount must be a positive number", raw)
	}

	cents := math.Round(v * 100)
	if cents < 1 || cents > math.MaxInt64/2 {
		return 0, apierror.Validation("amount is out of range", raw)
	}
	return int64(cents), nil
}

func bidConflict() error {
	return apierror.From(model.ErrBidAlreadyPlaced, func(msg string) *apierror.APIError {
		return apierror.Conflict(msg, "")
	})
}
