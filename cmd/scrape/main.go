// Command scrape crawls the assessment catalog and stores the records in the
// catalog JSON file and, when a database is configured, in Postgres with a
// scrape job audit trail.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yamori/assessrec/internal/catalog"
	"github.com/yamori/assessrec/internal/config"
	"github.com/yamori/assessrec/internal/repository"
	"github.com/yamori/assessrec/internal/repository/postgres"
	"github.com/yamori/assessrec/internal/scraper"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("scrape failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s, err := scraper.New(scraper.Config{
		BaseURL: cfg.CatalogURL,
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}

	var jobs repository.ScrapeJobRepository
	var assessments repository.AssessmentRepository
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		jobs = postgres.NewScrapeJobRepo(db)
		assessments = postgres.NewAssessmentRepo(db)
	}

	job := &repository.ScrapeJob{
		ID:         uuid.New(),
		Status:     repository.JobStatusRunning,
		CatalogURL: cfg.CatalogURL,
		CreatedAt:  time.Now(),
		StartedAt:  timePtr(time.Now()),
	}
	if jobs != nil {
		if err := jobs.Create(ctx, job); err != nil {
			return fmt.Errorf("failed to create scrape job: %w", err)
		}
	}

	records, err := s.Scrape(ctx)
	if err != nil {
		failJob(ctx, jobs, job, err)
		return fmt.Errorf("scrape failed: %w", err)
	}
	job.ProductsFound = len(records)
	slog.Info("scrape finished", "products", len(records))

	if err := catalog.NewFileStore(cfg.CatalogPath).Save(records); err != nil {
		failJob(ctx, jobs, job, err)
		return fmt.Errorf("failed to save catalog file: %w", err)
	}
	slog.Info("catalog file written", "path", cfg.CatalogPath)

	if assessments != nil {
		for _, rec := range records {
			if err := assessments.Upsert(ctx, repository.FromRecord(rec)); err != nil {
				failJob(ctx, jobs, job, err)
				return fmt.Errorf("failed to store assessment %s: %w", rec.ID, err)
			}
			job.ProductsSaved++
		}
		slog.Info("assessments stored", "count", job.ProductsSaved)
	}

	job.Status = repository.JobStatusCompleted
	job.CompletedAt = timePtr(time.Now())
	if jobs != nil {
		if err := jobs.Update(ctx, job); err != nil {
			return fmt.Errorf("failed to finalize scrape job: %w", err)
		}
	}

	return nil
}

func failJob(ctx context.Context, jobs repository.ScrapeJobRepository, job *repository.ScrapeJob, cause error) {
	if jobs == nil {
		return
	}
	job.Status = repository.JobStatusFailed
	job.ErrorMessage = cause.Error()
	job.CompletedAt = timePtr(time.Now())
	if err := jobs.Update(ctx, job); err != nil {
		slog.Error("failed to record scrape job failure", "job_id", job.ID, "error", err)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
