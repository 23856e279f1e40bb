package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffBrines/RealEstateInsightsPub/config"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/database"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/processor"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/queue"
)

const marketCSV = "Address,City,Zip,Price,Beds,Baths,Sqft,Status,List Date,Sale Date\n" +
	"1 Main St,Austin,78702,300000,3,2,1500,Sold,2024-01-05,2024-02-10\n" +
	"2 Oak Ave,Austin,78702,350000,3,2,1600,Sold,2024-01-10,2024-03-01\n" +
	"3 Elm Rd,Round Rock,78664,450000,4,3,2200,Active,2024-03-01,\n" +
	"4 Pine Ln,Austin,78702,0,3,2,1500,Sold,2024-01-06,\n"

type testServer struct {
	router *gin.Engine
	store  *database.Store
	queue  *queue.JobQueue
}

func newTestServer(t *testing.T, queueSize int, startWorkers bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()

	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	store, err := database.NewStore(db, database.Options{}, logger)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Ingestion.ProcessorCount = 1
	q := queue.NewJobQueue(queueSize, logger)
	proc := processor.NewProcessor(store, ingest.NewPipeline(nil, ingest.DefaultOptions(), logger), q, cfg, logger)
	if startWorkers {
		proc.Start(context.Background())
	}
	t.Cleanup(func() {
		proc.Stop()
		_ = store.Close()
	})

	handler := NewHandler(Options{Store: store, Queue: q, Processor: proc}, logger)
	router := gin.New()
	SetupRoutes(router, handler)
	return &testServer{router: router, store: store, queue: q}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, query, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets"+query, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// ready uploads marketCSV synchronously and returns the dataset id.
func (s *testServer) ready(t *testing.T) string {
	t.Helper()
	w := s.upload(t, "?sync=true", "market.csv", marketCSV)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ds database.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ds))
	return ds.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 4, false)
	w := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDetectMapping(t *testing.T) {
	s := newTestServer(t, 4, false)

	w := s.do(t, http.MethodPost, "/api/mapping/detect", gin.H{"headers": []string{"Sold Price", "Beds", "Notes"}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, map[string]any{"price": "Sold Price", "beds": "Beds"}, body["mapping"])
	assert.Equal(t, []any{"Notes"}, body["unmapped"])
	assert.Equal(t, true, body["hasPrice"])

	w = s.do(t, http.MethodPost, "/api/mapping/detect", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadDataset_Sync(t *testing.T) {
	s := newTestServer(t, 4, false)

	w := s.upload(t, "?sync=true", "market.csv", marketCSV)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ds := decode[database.Dataset](t, w)
	assert.Equal(t, database.DatasetReady, ds.Status)
	assert.Equal(t, "market.csv", ds.Name)
	assert.Equal(t, 3, ds.RecordCount)
	assert.Equal(t, 4, ds.RowsRead)
	assert.Equal(t, 1, ds.RowsRejected)

	w = s.do(t, http.MethodGet, "/api/datasets/"+ds.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, database.DatasetReady, decode[database.Dataset](t, w).Status)
}

func TestUploadDataset_FileErrors(t *testing.T) {
	s := newTestServer(t, 4, false)

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{name: "no recognizable columns", content: "foo,bar\n1,2\n", expected: "no recognizable real-estate columns"},
		{name: "no valid rows", content: "Price,Beds\n0,3\n", expected: "no rows survived validation"},
		{name: "empty file", content: "", expected: "file has no header row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.upload(t, "?sync=true", "bad.csv", tt.content)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			body := decode[map[string]any](t, w)
			assert.Contains(t, body["error"], tt.expected)

			id, _ := body["datasetId"].(string)
			w = s.do(t, http.MethodGet, "/api/datasets/"+id, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, database.DatasetFailed, decode[database.Dataset](t, w).Status)
		})
	}
}

func TestUploadDataset_MissingFile(t *testing.T) {
	s := newTestServer(t, 4, false)
	w := s.do(t, http.MethodPost, "/api/datasets", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadDataset_Async(t *testing.T) {
	s := newTestServer(t, 4, true)

	w := s.upload(t, "", "market.csv", marketCSV)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	ds := decode[database.Dataset](t, w)
	assert.Equal(t, database.DatasetPending, ds.Status)

	assert.Eventually(t, func() bool {
		got, err := s.store.GetDataset(context.Background(), ds.ID)
		return err == nil && got.Status == database.DatasetReady
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUploadDataset_QueueFull(t *testing.T) {
	s := newTestServer(t, 1, false)

	w := s.upload(t, "", "first.csv", marketCSV)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = s.upload(t, "", "second.csv", marketCSV)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Dataset](t, w), 1)
}

func TestDatasetNotFoundOrNotReady(t *testing.T) {
	s := newTestServer(t, 4, false)

	for _, path := range []string{
		"/api/datasets/missing",
		"/api/datasets/missing/properties",
		"/api/datasets/missing/kpis",
		"/api/datasets/missing/areas",
		"/api/datasets/missing/trends",
		"/api/datasets/missing/export",
	} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := s.upload(t, "", "queued.csv", marketCSV)
	require.Equal(t, http.StatusAccepted, w.Code)
	ds := decode[database.Dataset](t, w)
	w = s.do(t, http.MethodGet, "/api/datasets/"+ds.ID+"/properties", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetProperties(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	tests := []struct {
		name          string
		query         string
		expectedCode  int
		expectedCount int
		firstAddress  string
	}{
		{name: "all", query: "", expectedCode: http.StatusOK, expectedCount: 3, firstAddress: "1 Main St"},
		{name: "city substring", query: "?city=round", expectedCode: http.StatusOK, expectedCount: 1, firstAddress: "3 Elm Rd"},
		{name: "price band", query: "?minPrice=320000&maxPrice=400000", expectedCode: http.StatusOK, expectedCount: 1, firstAddress: "2 Oak Ave"},
		{name: "status", query: "?status=sold", expectedCode: http.StatusOK, expectedCount: 2, firstAddress: "1 Main St"},
		{name: "sorted desc", query: "?sort=price&order=desc", expectedCode: http.StatusOK, expectedCount: 3, firstAddress: "3 Elm Rd"},
		{name: "types", query: "?types=Condo,Townhouse", expectedCode: http.StatusOK, expectedCount: 0},
		{name: "bad number", query: "?minPrice=cheap", expectedCode: http.StatusBadRequest},
		{name: "bad sort field", query: "?sort=color", expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/datasets/"+id+"/properties"+tt.query, nil)
			require.Equal(t, tt.expectedCode, w.Code, w.Body.String())
			if tt.expectedCode != http.StatusOK {
				return
			}
			body := decode[struct {
				Count      int `json:"count"`
				Properties []struct {
					Address string `json:"address"`
				} `json:"properties"`
			}](t, w)
			assert.Equal(t, tt.expectedCount, body.Count)
			require.Len(t, body.Properties, tt.expectedCount)
			if tt.expectedCount > 0 {
				assert.Equal(t, tt.firstAddress, body.Properties[0].Address)
			}
		})
	}
}

func TestGetKPIs(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	w := s.do(t, http.MethodGet, "/api/datasets/"+id+"/kpis?now=2024-03-20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	kpis := decode[map[string]any](t, w)
	assert.Equal(t, 2.0, kpis["closedSalesCount"])
	assert.Equal(t, 3.0, kpis["totalProperties"])
	assert.Equal(t, 325000.0, kpis["medianSalePrice"])
	assert.Nil(t, kpis["cashVsFinancedRatio"])

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/kpis?now=someday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAreasAndTrends(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	w := s.do(t, http.MethodGet, "/api/datasets/"+id+"/areas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	areas := decode[[]map[string]any](t, w)
	require.Len(t, areas, 2)
	assert.Equal(t, "78664", areas[0]["zipCode"])
	assert.Equal(t, "78702", areas[1]["zipCode"])
	assert.Equal(t, 2.0, areas[1]["soldCount"])

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/trends", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trends := decode[[]map[string]any](t, w)
	require.Len(t, trends, 2)
	assert.Equal(t, "2024-02", trends[0]["month"])
	assert.Equal(t, "2024-03", trends[1]["month"])

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/areas/boundaries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"FeatureCollection"`)

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decode[map[string]any](t, w)["count"])
}

func TestFindComparables(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	w := s.do(t, http.MethodPost, "/api/datasets/"+id+"/comparables", gin.H{
		"subject": gin.H{"sqft": 1550, "beds": 3, "baths": 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Comparables []struct {
			Address string `json:"address"`
		} `json:"comparables"`
		Summary struct {
			Count       int     `json:"count"`
			MedianPrice float64 `json:"medianPrice"`
		} `json:"summary"`
	}](t, w)
	require.Len(t, body.Comparables, 2)
	assert.Equal(t, 2, body.Summary.Count)
	assert.Equal(t, 325000.0, body.Summary.MedianPrice)

	w = s.do(t, http.MethodPost, "/api/datasets/"+id+"/comparables", gin.H{"subject": gin.H{"beds": 3}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindComparables_SqftTolerance(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	tests := []struct {
		name     string
		criteria gin.H
		want     int
	}{
		{"default band", nil, 2},
		{"explicit zero is exact", gin.H{"sqftTolerance": 0}, 1},
		{"explicit band", gin.H{"sqftTolerance": 0.1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := gin.H{"subject": gin.H{"sqft": 1500, "beds": 3, "baths": 2}}
			if tt.criteria != nil {
				req["criteria"] = tt.criteria
			}
			w := s.do(t, http.MethodPost, "/api/datasets/"+id+"/comparables", req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			body := decode[struct {
				Comparables []map[string]any `json:"comparables"`
			}](t, w)
			assert.Len(t, body.Comparables, tt.want)
		})
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	w := s.do(t, http.MethodGet, "/api/datasets/"+id+"/export?format=csv&columns=address,price&sort=price&order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Address,Price", lines[0])
	assert.Equal(t, "3 Elm Rd,450000", lines[1])

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/export?format=geojson", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/datasets/"+id+"/export?columns=color", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAsk(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	w := s.do(t, http.MethodPost, "/api/datasets/"+id+"/ask", gin.H{"query": "What is the median sale price?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "fallback", body["source"])
	assert.NotEmpty(t, body["answer"])
	assert.Equal(t, "remote model not configured", body["reason"])

	w = s.do(t, http.MethodPost, "/api/datasets/"+id+"/ask", gin.H{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDataset(t *testing.T) {
	s := newTestServer(t, 4, false)
	id := s.ready(t)

	w := s.do(t, http.MethodDelete, "/api/datasets/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/datasets/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
