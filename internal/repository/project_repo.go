package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freelance-market/internal/database"
	"freelance-market/internal/model"
)

const projectColumns = `id, title, description, budget_min, budget_max, deadline,
	buyer_id, seller_id, status, created_at, updated_at`

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) Create(ctx context.Context, p model.Project) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (id, title, description, budget_min, budget_max, deadline,
		  buyer_id, seller_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Title, p.Description, p.BudgetMin, p.BudgetMax, p.Deadline,
		p.BuyerID, p.SellerID, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (model.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Project{}, model.ErrProjectNotFound
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.Project, error) {
	return r.list(ctx, "list buyer projects",
		`SELECT `+projectColumns+` FROM projects WHERE buyer_id = $1 ORDER BY created_at DESC`, buyerID)
}

func (r *ProjectRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.Project, error) {
	return r.list(ctx, "list seller projects",
		`SELECT `+projectColumns+` FROM projects WHERE seller_id = $1 ORDER BY created_at DESC`, sellerID)
}

func (r *ProjectRepository) ListOpen(ctx context.Context) ([]model.Project, error) {
	return r.list(ctx, "list open projects",
		`SELECT `+projectColumns+` FROM projects
		 WHERE seller_id IS NULL AND status = $1 ORDER BY created_at DESC`, string(model.StatusPending))
}

func (r *ProjectRepository) Assign(
	ctx context.Context,
	projectID string,
	sellerID string,
	from model.ProjectStatus,
	to model.ProjectStatus,
	notification model.OutboxMessage,
) (model.Project, error) {
	var updated model.Project

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanProject(tx.QueryRow(ctx,
			`UPDATE projects SET seller_id = $2, status = $4, updated_at = $5
			 WHERE id = $1 AND status = $3
			 RETURNING `+projectColumns,
			projectID, sellerID, string(from), string(to), time.Now().UTC()))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrStale(ctx, tx, projectID)
		}
		if err != nil {
			return fmt.Errorf("assign seller: %w", err)
		}

		if err := insertOutbox(ctx, tx, notification); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}

	return updated, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, projectID string, from model.ProjectStatus, to model.ProjectStatus) (model.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`UPDATE projects SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = $2
		 RETURNING `+projectColumns,
		projectID, string(from), string(to), time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Project{}, r.missOrStale(ctx, r.pool, projectID)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("update project status: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, projectID string, expected model.ProjectStatus) (model.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`DELETE FROM projects WHERE id = $1 AND status = $2 RETURNING `+projectColumns,
		projectID, string(expected)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Project{}, r.missOrStale(ctx, r.pool, projectID)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("delete project: %w", err)
	}
	return p, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// missOrStale explains why a conditional write touched no row.
func (r *ProjectRepository) missOrStale(ctx context.Context, q querier, projectID string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists); err != nil {
		return fmt.Errorf("check project exists: %w", err)
	}
	if !exists {
		return model.ErrProjectNotFound
	}
	return fmt.Errorf("project %s changed status concurrently: %w", projectID, model.ErrInvalidTransition)
}

func (r *ProjectRepository) list(ctx context.Context, op string, sql string, args ...any) ([]model.Project, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(row pgx.Row) (model.Project, error) {
	var p model.Project
	var status string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.BudgetMin, &p.BudgetMax, &p.Deadline,
		&p.BuyerID, &p.SellerID, &status, &p.CreatedAt, &p.UpdatedAt)
	p.Status = model.ProjectStatus(status)
	return p, err
}
