package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// DatasetStatus tracks an upload through ingestion.
type DatasetStatus string

const (
	DatasetPending    DatasetStatus = "pending"
	DatasetProcessing DatasetStatus = "processing"
	DatasetReady      DatasetStatus = "ready"
	DatasetFailed     DatasetStatus = "failed"
)

// Dataset is one uploaded file and the outcome of ingesting it.
type Dataset struct {
	ID           string               `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string               `gorm:"type:varchar(255)" json:"name"`
	Status       DatasetStatus        `gorm:"type:varchar(20);not null;index" json:"status"`
	Error        string               `gorm:"type:text" json:"error,omitempty"`
	Headers      []string             `gorm:"type:text;serializer:json" json:"headers,omitempty"`
	Mapping      models.ColumnMapping `gorm:"type:text;serializer:json" json:"mapping,omitempty"`
	Diagnostics  []string             `gorm:"type:text;serializer:json" json:"diagnostics,omitempty"`
	RowsRead     int                  `json:"rowsRead"`
	RowsRejected int                  `json:"rowsRejected"`
	RecordCount  int                  `json:"recordCount"`
	CreatedAt    time.Time            `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time            `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (Dataset) TableName() string {
	return "datasets"
}

// PropertyRecord stores one canonical record. Seq keeps file order.
type PropertyRecord struct {
	Seq       uint            `gorm:"primaryKey;autoIncrement"`
	DatasetID string          `gorm:"type:varchar(36);not null;index"`
	Property  models.Property `gorm:"type:text;serializer:json"`
}

func (PropertyRecord) TableName() string {
	return "property_records"
}

// CreateDataset registers a new upload in the pending state.
func (s *Store) CreateDataset(ctx context.Context, name string) (*Dataset, error) {
	ds := &Dataset{
		ID:     uuid.NewString(),
		Name:   name,
		Status: DatasetPending,
	}
	if err := s.db.WithContext(ctx).Create(ds).Error; err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	return ds, nil
}

// MarkProcessing flags a dataset as picked up by a worker.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.update(s.db.WithContext(ctx), &Dataset{ID: id, Status: DatasetProcessing}, "status", "error")
}

// MarkFailed records a file-level failure.
func (s *Store) MarkFailed(ctx context.Context, id, reason string, diagnostics []string) error {
	ds := &Dataset{
		ID:          id,
		Status:      DatasetFailed,
		Error:       reason,
		Diagnostics: diagnostics,
	}
	err := s.update(s.db.WithContext(ctx), ds, "status", "error", "diagnostics")
	s.cache.Remove(id)
	return err
}

// update writes the selected columns of ds, zero values included.
func (s *Store) update(tx *gorm.DB, ds *Dataset, columns ...string) error {
	res := tx.Model(&Dataset{ID: ds.ID}).Select(columns).Updates(ds)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRecords replaces the records of ds and marks it ready. The metadata
// fields of ds (headers, mapping, diagnostics, row counts) are stored as
// given. Records are written in batches inside one transaction, so a retry
// after a failure starts from a clean slate.
func (s *Store) SaveRecords(ctx context.Context, ds *Dataset, records []models.Property) error {
	start := time.Now()

	rows := make([]PropertyRecord, len(records))
	for i := range records {
		rows[i] = PropertyRecord{DatasetID: ds.ID, Property: records[i]}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", ds.ID).Delete(&PropertyRecord{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, s.batchSize).Error; err != nil {
				return err
			}
		}

		ds.Status = DatasetReady
		ds.Error = ""
		ds.RecordCount = len(records)
		return s.update(tx, ds,
			"status", "error", "headers", "mapping", "diagnostics",
			"rows_read", "rows_rejected", "record_count",
		)
	})
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	s.cache.Add(ds.ID, records)
	s.logger.WithFields(logrus.Fields{
		"dataset_id": ds.ID,
		"records":    len(records),
		"elapsed":    time.Since(start).String(),
	}).Info("Stored dataset records")
	return nil
}

// GetDataset returns the dataset row without its records.
func (s *Store) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	var ds Dataset
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&ds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDatasets returns every dataset, newest first.
func (s *Store) ListDatasets(ctx context.Context) ([]Dataset, error) {
	var datasets []Dataset
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&datasets).Error
	return datasets, err
}

// Properties returns the records of a ready dataset in file order. The
// returned slice is shared and must not be modified.
func (s *Store) Properties(ctx context.Context, id string) ([]models.Property, error) {
	ds, err := s.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.Status != DatasetReady {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, ds.Status)
	}

	if records, ok := s.cache.Get(id); ok {
		return records, nil
	}

	var rows []PropertyRecord
	if err := s.db.WithContext(ctx).Where("dataset_id = ?", id).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]models.Property, len(rows))
	for i := range rows {
		records[i] = rows[i].Property
	}

	s.cache.Add(id, records)
	return records, nil
}

// DeleteDataset removes a dataset and its records.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", id).Delete(&PropertyRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Dataset{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	s.cache.Remove(id)
	return err
}

// DeleteOlderThan expires every dataset created before cutoff and returns
// how many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Dataset{}).
		Where("created_at < ?", cutoff.UTC()).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		if err := s.DeleteDataset(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("failed to delete dataset %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
