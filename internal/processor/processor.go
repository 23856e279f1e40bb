package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JeffBrines/RealEstateInsightsPub/config"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/database"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/queue"
)

// Store is the part of the dataset store the processor writes to.
type Store interface {
	MarkProcessing(ctx context.Context, id string) error
	SaveRecords(ctx context.Context, ds *database.Dataset, records []models.Property) error
	MarkFailed(ctx context.Context, id, reason string, diagnostics []string) error
}

// Ingester turns an uploaded file into canonical records.
type Ingester interface {
	Process(ctx context.Context, data []byte) (*ingest.Result, error)
}

// Geocoder fills in coordinates for records that lack them.
type Geocoder interface {
	Fill(ctx context.Context, records []models.Property, limit int) int
}

// Processor runs ingestion off the request path and stores the outcome
type Processor struct {
	store    Store
	ingester Ingester
	geocoder Geocoder
	queue    *queue.JobQueue
	config   *config.Config
	logger   *logrus.Logger
}

// NewProcessor creates a new processor instance
func NewProcessor(store Store, ingester Ingester, q *queue.JobQueue, cfg *config.Config, logger *logrus.Logger) *Processor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	return &Processor{
		store:    store,
		ingester: ingester,
		queue:    q,
		config:   cfg,
		logger:   logger,
	}
}

// UseGeocoder enables coordinate lookup for ingested records.
func (p *Processor) UseGeocoder(g Geocoder) {
	p.geocoder = g
}

// Start subscribes to the queue and launches the configured number of workers
func (p *Processor) Start(ctx context.Context) {
	p.queue.Subscribe(p.handle)
	p.queue.Start(ctx, p.config.Ingestion.ProcessorCount)
}

// Stop closes the queue and waits for queued jobs to finish
func (p *Processor) Stop() {
	if err := p.queue.Close(); err != nil {
		p.logger.WithError(err).Error("Failed to close job queue")
	}
}

// handle is the queue handler. File-level ingestion failures are a normal
// outcome recorded on the dataset, so only storage failures are returned.
func (p *Processor) handle(ctx context.Context, job queue.Job) error {
	_, err := p.Ingest(ctx, job)
	var ingestErr *ingest.Error
	if errors.As(err, &ingestErr) {
		return nil
	}
	return err
}

// Ingest processes one job synchronously. It returns the stored dataset, or
// an *ingest.Error when the file itself is unusable.
func (p *Processor) Ingest(ctx context.Context, job queue.Job) (*database.Dataset, error) {
	start := time.Now()
	log := p.logger.WithFields(logrus.Fields{
		"dataset_id": job.DatasetID,
		"name":       job.Name,
	})

	if err := p.store.MarkProcessing(ctx, job.DatasetID); err != nil {
		return nil, fmt.Errorf("failed to mark dataset processing: %w", err)
	}

	result, err := p.ingester.Process(ctx, job.Data)
	if err != nil {
		var diagnostics []string
		var ingestErr *ingest.Error
		if errors.As(err, &ingestErr) {
			diagnostics = ingestErr.Diagnostics
		}
		log.WithError(err).Warn("Ingestion failed")
		if markErr := p.store.MarkFailed(ctx, job.DatasetID, err.Error(), diagnostics); markErr != nil {
			log.WithError(markErr).Error("Failed to record ingestion failure")
		}
		return nil, err
	}

	if p.geocoder != nil {
		p.geocoder.Fill(ctx, result.Records, p.config.Geocoding.MaxLookups)
	}

	ds := &database.Dataset{
		ID:           job.DatasetID,
		Name:         job.Name,
		Headers:      result.Headers,
		Mapping:      result.Mapping,
		Diagnostics:  result.Diagnostics,
		RowsRead:     result.RowsRead,
		RowsRejected: result.RowsRejected,
	}
	if err := p.save(ctx, ds, result.Records); err != nil {
		if markErr := p.store.MarkFailed(ctx, job.DatasetID, "failed to store records", result.Diagnostics); markErr != nil {
			log.WithError(markErr).Error("Failed to record storage failure")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"records":       len(result.Records),
		"rows_read":     result.RowsRead,
		"rows_rejected": result.RowsRejected,
		"elapsed":       time.Since(start).String(),
	}).Info("Dataset ready")
	return ds, nil
}

// save stores the records with retry logic
func (p *Processor) save(ctx context.Context, ds *database.Dataset, records []models.Property) error {
	maxRetries := p.config.Ingestion.MaxRetries
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying dataset storage, attempt %d of %d", attempt, maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.Ingestion.RetryDelay):
			}
		}

		err = p.store.SaveRecords(ctx, ds, records)
		if err == nil {
			return nil
		}
		p.logger.Errorf("Dataset storage failed: %v", err)
	}

	return fmt.Errorf("failed to store dataset after %d attempts: %w", maxRetries+1, err)
}
