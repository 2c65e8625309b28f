package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freelance-market/internal/model"
)

type DeliverableRepository struct {
	pool *pgxpool.Pool
}

func NewDeliverableRepository(pool *pgxpool.Pool) *DeliverableRepository {
	return &DeliverableRepository{pool: pool}
}

func (r *DeliverableRepository) Create(ctx context.Context, d model.Deliverable) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO deliverables (id, project_id, seller_id, file_url, link, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.ProjectID, d.SellerID, d.FileURL, d.Link, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create deliverable: %w", err)
	}
	return nil
}

// LatestByProject returns the most recent deliverable of a project.
func (r *DeliverableRepository) LatestByProject(ctx context.Context, projectID string) (model.Deliverable, error) {
	var d model.Deliverable
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, seller_id, file_url, link, created_at
		 FROM deliverables WHERE project_id = $1
		 ORDER BY created_at DESC LIMIT 1`, projectID).
		Scan(&d.ID, &d.ProjectID, &d.SellerID, &d.FileURL, &d.Link, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Deliverable{}, model.ErrDeliverableNotFound
	}
	if err != nil {
		return model.Deliverable{}, fmt.Errorf("find deliverable: %w", err)
	}
	return d, nil
}
