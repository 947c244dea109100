// Package repository defines domain models and data access interfaces for
// assessments and scrape jobs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yamori/assessrec/internal/catalog"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Scrape job statuses.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Assessment is a catalog record as stored in the database.
type Assessment struct {
	ID          string
	Name        string
	URL         string
	Description string
	TestTypes   []string
	Duration    int
	Adaptive    bool
	Remote      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Record converts the stored assessment to its catalog form.
func (a *Assessment) Record() catalog.Record {
	return catalog.Record{
		ID:          a.ID,
		Name:        a.Name,
		URL:         a.URL,
		Description: a.Description,
		TestTypes:   a.TestTypes,
		Duration:    a.Duration,
		Adaptive:    a.Adaptive,
		Remote:      a.Remote,
	}
}

// FromRecord builds an Assessment from a catalog record.
func FromRecord(rec catalog.Record) *Assessment {
	return &Assessment{
		ID:          rec.ID,
		Name:        rec.Name,
		URL:         rec.URL,
		Description: rec.Description,
		TestTypes:   rec.TestTypes,
		Duration:    rec.Duration,
		Adaptive:    rec.Adaptive,
		Remote:      rec.Remote,
	}
}

// ScrapeJob tracks one catalog scraping run.
type ScrapeJob struct {
	ID            uuid.UUID
	Status        string
	CatalogURL    string
	ProductsFound int
	ProductsSaved int
	ErrorMessage  string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// AssessmentRepository defines operations for assessment persistence
type AssessmentRepository interface {
	Upsert(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id string) (*Assessment, error)
	List(ctx context.Context, limit, offset int) ([]*Assessment, int, error)
	ListAll(ctx context.Context) ([]*Assessment, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

// ScrapeJobRepository defines operations for scrape job persistence
type ScrapeJobRepository interface {
	Create(ctx context.Context, job *ScrapeJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScrapeJob, error)
	List(ctx context.Context, status string, limit, offset int) ([]*ScrapeJob, int, error)
	Update(ctx context.Context, job *ScrapeJob) error
}
