package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"freelance-market/internal/database"
	"freelance-market/internal/model"
)

type BidRepository struct {
	pool *pgxpool.Pool
}

func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

func (r *BidRepository) Create(ctx context.Context, b model.Bid) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bids (id, project_id, seller_id, amount, estimated_time, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.ProjectID, b.SellerID, b.Amount, b.EstimatedTime, b.Message, b.CreatedAt)
	if database.IsUniqueViolation(err, "bids_project_seller_key") {
		return model.ErrBidAlreadyPlaced
	}
	if err != nil {
		return fmt.Errorf("create bid: %w", err)
	}
	return nil
}

func (r *BidRepository) Exists(ctx context.Context, projectID string, sellerID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bids WHERE project_id = $1 AND seller_id = $2)`,
		projectID, sellerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check bid exists: %w", err)
	}
	return exists, nil
}

func (r *BidRepository) ListByProject(ctx context.Context, projectID string) ([]model.Bid, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, seller_id, amount, estimated_time, message, created_at
		 FROM bids WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project bids: %w", err)
	}
	defer rows.Close()

	bids := make([]model.Bid, 0)
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.SellerID, &b.Amount, &b.EstimatedTime, &b.Message, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *BidRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.SellerBid, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.project_id, b.seller_id, b.amount, b.estimated_time, b.message, b.created_at,
		        p.id, p.title, p.description, p.budget_min, p.budget_max, p.deadline,
		        p.buyer_id, p.seller_id, p.status, p.created_at, p.updated_at
		 FROM bids b
		 JOIN projects p ON p.id = b.project_id
		 WHERE b.seller_id = $1
		 ORDER BY b.created_at DESC`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller bids: %w", err)
	}
	defer rows.Close()

	bids := make([]model.SellerBid, 0)
	for rows.Next() {
		var sb model.SellerBid
		var status string
		p := &sb.Project
		if err := rows.Scan(
			&sb.ID, &sb.ProjectID, &sb.SellerID, &sb.Amount, &sb.EstimatedTime, &sb.Message, &sb.CreatedAt,
			&p.ID, &p.Title, &p.Description, &p.BudgetMin, &p.BudgetMax, &p.Deadline,
			&p.BuyerID, &p.SellerID, &status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan seller bid: %w", err)
		}
		p.Status = model.ProjectStatus(status)
		bids = append(bids, sb)
	}
	return bids, rows.Err()
}
