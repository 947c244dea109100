package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yamori/assessrec/internal/repository"
)

// ScrapeJobRepo implements repository.ScrapeJobRepository
type ScrapeJobRepo struct {
	db *DB
}

var _ repository.ScrapeJobRepository = (*ScrapeJobRepo)(nil)

// NewScrapeJobRepo creates a new scrape job repository
func NewScrapeJobRepo(db *DB) *ScrapeJobRepo {
	return &ScrapeJobRepo{db: db}
}

// Create creates a new scrape job
func (r *ScrapeJobRepo) Create(ctx context.Context, job *repository.ScrapeJob) error {
	query := `
		INSERT INTO scrape_jobs (id, status, catalog_url, products_found, products_saved, error_message, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Status, job.CatalogURL, job.ProductsFound, job.ProductsSaved,
		job.ErrorMessage, job.CreatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create scrape job: %w", err)
	}
	return nil
}

// GetByID retrieves a scrape job by ID
func (r *ScrapeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.ScrapeJob, error) {
	query := `
		SELECT id, status, catalog_url, products_found, products_saved, error_message, created_at, started_at, completed_at
		FROM scrape_jobs
		WHERE id = $1
	`
	var job repository.ScrapeJob
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.CatalogURL, &job.ProductsFound, &job.ProductsSaved,
		&job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scrape job: %w", err)
	}
	return &job, nil
}

// List retrieves scrape jobs with pagination, newest first.
func (r *ScrapeJobRepo) List(ctx context.Context, status string, limit, offset int) ([]*repository.ScrapeJob, int, error) {
	countQuery := `SELECT COUNT(*) FROM scrape_jobs`
	listQuery := `
		SELECT id, status, catalog_url, products_found, products_saved, error_message, created_at, started_at, completed_at
		FROM scrape_jobs
	`
	var args []any

	if status != "" {
		countQuery += ` WHERE status = $1`
		listQuery += ` WHERE status = $1`
		args = append(args, status)
	}

	listQuery += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scrape jobs: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.Pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scrape jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*repository.ScrapeJob
	for rows.Next() {
		var job repository.ScrapeJob
		if err := rows.Scan(&job.ID, &job.Status, &job.CatalogURL, &job.ProductsFound,
			&job.ProductsSaved, &job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan scrape job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read scrape jobs: %w", err)
	}

	return jobs, total, nil
}

// Update updates a scrape job
func (r *ScrapeJobRepo) Update(ctx context.Context, job *repository.ScrapeJob) error {
	query := `
		UPDATE scrape_jobs
		SET status = $2, products_found = $3, products_saved = $4,
		    error_message = $5, started_at = $6, completed_at = $7
		WHERE id = $1
	`
	result, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Status, job.ProductsFound, job.ProductsSaved,
		job.ErrorMessage, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update scrape job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
