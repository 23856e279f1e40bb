package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)

	store, err := NewStore(db, opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func float(v float64) *float64 { return &v }

func sampleRecords(n int) []models.Property {
	records := make([]models.Property, n)
	for i := range records {
		records[i] = models.Property{
			ID:           fmt.Sprintf("p-%03d", i),
			Address:      fmt.Sprintf("%d Main St", i+1),
			City:         "Austin",
			Price:        float64(200000 + i*1000),
			Beds:         3,
			Baths:        2,
			Sqft:         1500,
			PropertyType: "Single Family",
			Status:       models.StatusSold,
			SalePrice:    float(float64(200000 + i*1000)),
			PhotoURLs:    []string{"https://example.com/a.jpg"},
		}
	}
	return records
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestDatasetLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{BatchSize: 7})

	ds, err := store.CreateDataset(ctx, "sales.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, DatasetPending, ds.Status)

	_, err = store.Properties(ctx, ds.ID)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, store.MarkProcessing(ctx, ds.ID))
	got, err := store.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, DatasetProcessing, got.Status)

	records := sampleRecords(25)
	ds.Headers = []string{"Address", "Price"}
	ds.Mapping = models.ColumnMapping{models.FieldAddress: "Address", models.FieldPrice: "Price"}
	ds.Diagnostics = []string{"line 4: no positive price"}
	ds.RowsRead = 26
	ds.RowsRejected = 1
	require.NoError(t, store.SaveRecords(ctx, ds, records))

	got, err = store.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, DatasetReady, got.Status)
	assert.Equal(t, 25, got.RecordCount)
	assert.Equal(t, 26, got.RowsRead)
	assert.Equal(t, 1, got.RowsRejected)
	assert.Equal(t, ds.Headers, got.Headers)
	assert.Equal(t, ds.Mapping, got.Mapping)
	assert.Equal(t, ds.Diagnostics, got.Diagnostics)

	props, err := store.Properties(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, records, props)
}

func TestPropertiesReadsBackWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	ds, err := store.CreateDataset(ctx, "listings.csv")
	require.NoError(t, err)
	records := sampleRecords(12)
	require.NoError(t, store.SaveRecords(ctx, ds, records))

	store.cache.Purge()

	props, err := store.Properties(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, props, 12)
	for i := range records {
		assert.Equal(t, records[i].ID, props[i].ID)
	}
	assert.Equal(t, records[3], props[3])
}

func TestSaveRecordsReplacesPreviousAttempt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	ds, err := store.CreateDataset(ctx, "retry.csv")
	require.NoError(t, err)
	require.NoError(t, store.SaveRecords(ctx, ds, sampleRecords(5)))
	require.NoError(t, store.SaveRecords(ctx, ds, sampleRecords(3)))
	store.cache.Purge()

	props, err := store.Properties(ctx, ds.ID)
	require.NoError(t, err)
	assert.Len(t, props, 3)
}

func TestMarkFailed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	ds, err := store.CreateDataset(ctx, "broken.csv")
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, ds.ID, "file has no header row", []string{"line 1: empty"}))

	got, err := store.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, DatasetFailed, got.Status)
	assert.Equal(t, "file has no header row", got.Error)
	assert.Equal(t, []string{"line 1: empty"}, got.Diagnostics)

	_, err = store.Properties(ctx, ds.ID)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestUnknownDataset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	_, err := store.GetDataset(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Properties(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.MarkProcessing(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.DeleteDataset(ctx, "missing"), ErrNotFound)
}

func TestListAndDeleteDatasets(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	first, err := store.CreateDataset(ctx, "a.csv")
	require.NoError(t, err)
	second, err := store.CreateDataset(ctx, "b.csv")
	require.NoError(t, err)
	require.NoError(t, store.SaveRecords(ctx, second, sampleRecords(2)))

	list, err := store.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.DeleteDataset(ctx, second.ID))
	_, err = store.Properties(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var remaining int64
	require.NoError(t, store.DB().Model(&PropertyRecord{}).Where("dataset_id = ?", second.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	list, err = store.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	ds, err := store.CreateDataset(ctx, "old.csv")
	require.NoError(t, err)
	require.NoError(t, store.SaveRecords(ctx, ds, sampleRecords(4)))

	removed, err := store.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = store.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetDataset(ctx, ds.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
