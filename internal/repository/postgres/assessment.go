package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yamori/assessrec/internal/catalog"
	"github.com/yamori/assessrec/internal/repository"
)

// AssessmentRepo implements repository.AssessmentRepository
type AssessmentRepo struct {
	db *DB
}

var _ repository.AssessmentRepository = (*AssessmentRepo)(nil)

// NewAssessmentRepo creates a new assessment repository
func NewAssessmentRepo(db *DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

const assessmentColumns = `id, name, url, description, test_types, duration_minutes, adaptive_support, remote_support, created_at, updated_at`

// Upsert inserts an assessment or refreshes an existing one by id.
func (r *AssessmentRepo) Upsert(ctx context.Context, a *repository.Assessment) error {
	query := `
		INSERT INTO assessments (id, name, url, description, test_types, duration_minutes, adaptive_support, remote_support, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			description = EXCLUDED.description,
			test_types = EXCLUDED.test_types,
			duration_minutes = EXCLUDED.duration_minutes,
			adaptive_support = EXCLUDED.adaptive_support,
			remote_support = EXCLUDED.remote_support,
			updated_at = now()
	`
	_, err := r.db.Pool.Exec(ctx, query,
		a.ID, a.Name, a.URL, a.Description, a.TestTypes,
		a.Duration, a.Adaptive, a.Remote)
	if err != nil {
		return fmt.Errorf("failed to upsert assessment: %w", err)
	}
	return nil
}

// GetByID retrieves an assessment by ID
func (r *AssessmentRepo) GetByID(ctx context.Context, id string) (*repository.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`

	var a repository.Assessment
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.URL, &a.Description, &a.TestTypes,
		&a.Duration, &a.Adaptive, &a.Remote, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &a, nil
}

// List retrieves assessments with pagination, ordered by name.
func (r *AssessmentRepo) List(ctx context.Context, limit, offset int) ([]*repository.Assessment, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query := `SELECT ` + assessmentColumns + ` FROM assessments ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	assessments, err := scanAssessments(rows)
	if err != nil {
		return nil, 0, err
	}
	return assessments, total, nil
}

// ListAll retrieves every assessment, ordered by id for reproducible
// downstream indexing.
func (r *AssessmentRepo) ListAll(ctx context.Context) ([]*repository.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	return scanAssessments(rows)
}

// Count returns the number of stored assessments.
func (r *AssessmentRepo) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return total, nil
}

// Delete removes an assessment
func (r *AssessmentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanAssessments(rows pgx.Rows) ([]*repository.Assessment, error) {
	var assessments []*repository.Assessment
	for rows.Next() {
		var a repository.Assessment
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.Description, &a.TestTypes,
			&a.Duration, &a.Adaptive, &a.Remote, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		assessments = append(assessments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assessments: %w", err)
	}
	return assessments, nil
}

// CatalogStore adapts the assessment table to the catalog loading interface,
// so the recommendation engine can build its index straight from Postgres.
type CatalogStore struct {
	repo *AssessmentRepo
}

var _ catalog.Store = (*CatalogStore)(nil)

// NewCatalogStore creates a catalog store backed by the assessments table.
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{repo: NewAssessmentRepo(db)}
}

// Load returns the full catalog.
func (s *CatalogStore) Load(ctx context.Context) ([]catalog.Record, error) {
	assessments, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]catalog.Record, 0, len(assessments))
	for _, a := range assessments {
		records = append(records, a.Record())
	}
	return records, nil
}
