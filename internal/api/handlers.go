package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/assistant"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/coerce"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/comps"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/database"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/export"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/filter"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/geometry"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/mapping"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/processor"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/queue"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

const defaultMaxUploadBytes = 32 << 20

type Handler struct {
	store          *database.Store
	queue          *queue.JobQueue
	processor      *processor.Processor
	assistant      *assistant.Adapter
	table          *mapping.Table
	logger         *logrus.Logger
	maxUploadBytes int64
	now            func() time.Time
}

// Options carries the collaborators of a Handler. Table and Assistant may
// be nil.
type Options struct {
	Store          *database.Store
	Queue          *queue.JobQueue
	Processor      *processor.Processor
	Assistant      *assistant.Adapter
	Table          *mapping.Table
	MaxUploadBytes int64
}

type DetectMappingRequest struct {
	Headers []string `json:"headers" binding:"required"`
}

type ComparablesRequest struct {
	Subject  models.Subject     `json:"subject" binding:"required"`
	Criteria *comps.Criteria    `json:"criteria"`
	Filters  *models.FilterSpec `json:"filters"`
}

type AskRequest struct {
	Query   string             `json:"query" binding:"required"`
	Filters *models.FilterSpec `json:"filters"`
}

func NewHandler(opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.Table == nil {
		opts.Table = mapping.Default()
	}
	if opts.Assistant == nil {
		opts.Assistant = assistant.NewAdapter(nil, assistant.Options{}, logger)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	return &Handler{
		store:          opts.Store,
		queue:          opts.Queue,
		processor:      opts.Processor,
		assistant:      opts.Assistant,
		table:          opts.Table,
		logger:         logger,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            time.Now,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) DetectMapping(c *gin.Context) {
	var req DetectMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "headers are required"})
		return
	}

	m := h.table.Detect(req.Headers)
	c.JSON(http.StatusOK, gin.H{
		"mapping":  m,
		"unmapped": mapping.Unmapped(req.Headers, m),
		"hasPrice": m.HasAny(models.FieldPrice, models.FieldListPrice, models.FieldSalePrice),
	})
}

func (h *Handler) UploadDataset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a file field is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read the uploaded file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read the uploaded file"})
		return
	}

	ctx := c.Request.Context()
	ds, err := h.store.CreateDataset(ctx, header.Filename)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create dataset"})
		return
	}
	job := queue.Job{DatasetID: ds.ID, Name: header.Filename, Data: data}

	if c.Query("sync") == "true" {
		ready, err := h.processor.Ingest(ctx, job)
		var ingestErr *ingest.Error
		switch {
		case errors.As(err, &ingestErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":       ingestErr.Error(),
				"datasetId":   ds.ID,
				"diagnostics": ingestErr.Diagnostics,
			})
		case err != nil:
			h.logger.WithError(err).WithField("dataset_id", ds.ID).Error("Failed to ingest dataset")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest dataset"})
		default:
			c.JSON(http.StatusCreated, ready)
		}
		return
	}

	if err := h.queue.Push(job); err != nil {
		if delErr := h.store.DeleteDataset(ctx, ds.ID); delErr != nil {
			h.logger.WithError(delErr).WithField("dataset_id", ds.ID).Error("Failed to discard dataset")
		}
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingestion is busy, try again shortly"})
			return
		}
		h.logger.WithError(err).Error("Failed to queue dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue dataset"})
		return
	}

	c.JSON(http.StatusAccepted, ds)
}

func (h *Handler) ListDatasets(c *gin.Context) {
	datasets, err := h.store.ListDatasets(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list datasets")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list datasets"})
		return
	}
	c.JSON(http.StatusOK, datasets)
}

func (h *Handler) GetDataset(c *gin.Context) {
	ds, err := h.store.GetDataset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *Handler) DeleteDataset(c *gin.Context) {
	if err := h.store.DeleteDataset(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetProperties(c *gin.Context) {
	records, ok := h.filtered(c)
	if !ok {
		return
	}
	if field := c.Query("sort"); field != "" {
		f, err := sortField(field)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records = filter.Sort(records, f, c.Query("order") == "desc")
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(records),
		"properties": records,
	})
}

func (h *Handler) GetKPIs(c *gin.Context) {
	now := h.now()
	if raw := c.Query("now"); raw != "" {
		date, ok := coerce.Date(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "now must be a date"})
			return
		}
		now, _ = time.Parse(time.DateOnly, date)
	}

	records, ok := h.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stats.Compute(records, now))
}

func (h *Handler) GetSummary(c *gin.Context) {
	records, ok := h.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stats.Summarize(records))
}

func (h *Handler) GetAreaStats(c *gin.Context) {
	records, ok := h.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stats.ByArea(records))
}

func (h *Handler) GetAreaBoundaries(c *gin.Context) {
	records, ok := h.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, geometry.AreaHulls(records))
}

func (h *Handler) GetTrends(c *gin.Context) {
	records, ok := h.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stats.MonthlyTrend(records))
}

func (h *Handler) FindComparables(c *gin.Context) {
	var req ComparablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a subject with sqft is required"})
		return
	}
	if req.Subject.Sqft <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject sqft must be positive"})
		return
	}

	records, ok := h.records(c)
	if !ok {
		return
	}
	if req.Filters != nil {
		records = filter.Apply(records, *req.Filters)
	}

	criteria := comps.DefaultCriteria()
	if req.Criteria != nil {
		criteria = *req.Criteria
	}
	found := comps.FindComparables(req.Subject, records, criteria)
	c.JSON(http.StatusOK, gin.H{
		"comparables": found,
		"summary":     comps.Summarize(req.Subject, found),
	})
}

func (h *Handler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exporter, err := export.New(export.Options{
		Columns: export.ParseColumns(c.Query("columns")),
		Table:   h.table,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, ok := h.filtered(c)
	if !ok {
		return
	}
	if field := c.Query("sort"); field != "" {
		f, err := sortField(field)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records = filter.Sort(records, f, c.Query("order") == "desc")
	}

	filename := fmt.Sprintf("properties-%s.%s", c.Param("id"), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if err := exporter.Write(c.Writer, format, records); err != nil {
		h.logger.WithError(err).WithField("dataset_id", c.Param("id")).Error("Failed to write export")
	}
}

func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	records, ok := h.records(c)
	if !ok {
		return
	}

	answer := h.assistant.Ask(c.Request.Context(), req.Query, records, req.Filters)
	h.logger.WithFields(logrus.Fields{
		"dataset_id": c.Param("id"),
		"source":     answer.Source,
		"records":    len(records),
	}).Info("Answered question")
	c.JSON(http.StatusOK, answer)
}

// records loads the dataset named by the id path parameter.
func (h *Handler) records(c *gin.Context) ([]models.Property, bool) {
	records, err := h.store.Properties(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return nil, false
	}
	return records, true
}

// filtered loads the dataset and applies the query-string filter.
func (h *Handler) filtered(c *gin.Context) ([]models.Property, bool) {
	var q FilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter parameters"})
		return nil, false
	}
	records, ok := h.records(c)
	if !ok {
		return nil, false
	}
	return filter.Apply(records, q.Spec()), true
}

func (h *Handler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
	case errors.Is(err, database.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("Dataset store failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dataset"})
	}
}

func sortField(name string) (models.Field, error) {
	f := models.Field(name)
	if f != models.FieldID && !f.IsCanonical() {
		return "", fmt.Errorf("unknown sort field %q", name)
	}
	return f, nil
}
