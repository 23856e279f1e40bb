package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketCSV = "Address,City,Zip,Price,Beds,Baths,Sqft,Status,List Date,Sale Date\n" +
	"1 Main St,Austin,78702,300000,3,2,1500,Sold,2024-01-05,2024-02-10\n" +
	"2 Oak Ave,Austin,78702,350000,3,2,1600,Sold,2024-01-10,2024-03-01\n" +
	"3 Elm Rd,Round Rock,78664,450000,4,3,2200,Active,2024-03-01,\n" +
	"4 Pine Ln,Austin,78702,0,3,2,1500,Sold,2024-01-06,\n"

// isolate keeps the user's config file and credentials out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("MLSCTL_API_KEY", "")

	path := filepath.Join(dir, "market.csv")
	require.NoError(t, os.WriteFile(path, []byte(marketCSV), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	file := isolate(t)

	out, _, err := run(t, "analyze", file, "--now", "2024-03-20", "--json")
	require.NoError(t, err)

	var report analyzeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.RowsRead)
	assert.Equal(t, 1, report.RowsRejected)
	assert.Equal(t, 3, report.Summary.Count)
	assert.Equal(t, 3, report.KPIs.TotalProperties)
	assert.Equal(t, 325000.0, report.KPIs.MedianSalePrice)
	assert.Nil(t, report.KPIs.CashVsFinancedRatio)
	assert.Len(t, report.Areas, 2)
}

func TestAnalyze_Filters(t *testing.T) {
	file := isolate(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"zip", []string{"--zip", "78664"}, 1},
		{"city substring", []string{"--city", "round"}, 1},
		{"min price", []string{"--min-price", "320000"}, 2},
		{"status", []string{"--status", "sold"}, 2},
		{"min beds", []string{"--min-beds", "4"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"analyze", file, "--json"}, tt.args...)
			out, _, err := run(t, args...)
			require.NoError(t, err)

			var report analyzeReport
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			assert.Equal(t, tt.want, report.Summary.Count)
		})
	}
}

func TestAnalyze_Table(t *testing.T) {
	file := isolate(t)

	out, _, err := run(t, "analyze", file, "--now", "2024-03-20")
	require.NoError(t, err)
	assert.Contains(t, out, "Median sale price")
	assert.Contains(t, out, "$325,000")
	assert.Contains(t, out, "78702")
	assert.Contains(t, out, "Cash sales")
	assert.Regexp(t, `Closed sales\s+2\n`, out)
	assert.Regexp(t, `New listings \(this month\)\s+1\n`, out)
	assert.NotContains(t, out, "30d")
}

func TestAnalyze_Errors(t *testing.T) {
	file := isolate(t)

	_, _, err := run(t, "analyze", file, "--now", "someday")
	assert.Error(t, err)

	_, _, err = run(t, "analyze", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, _, err = run(t, "analyze", empty)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	file := isolate(t)
	dir := t.TempDir()

	out := filepath.Join(dir, "sorted.csv")
	stdout, _, err := run(t, "export", file, "--out", out, "--columns", "address,price", "--sort", "price", "--desc")
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 of 4 rows kept")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Address,Price", lines[0])
	assert.Equal(t, "3 Elm Rd,450000", lines[1])

	geo := filepath.Join(dir, "market.geojson")
	_, _, err = run(t, "export", file, "--out", geo)
	require.NoError(t, err)
	data, err = os.ReadFile(geo)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")

	tests := []struct {
		name string
		args []string
	}{
		{"missing out", []string{"export", file}},
		{"unknown format", []string{"export", file, "--out", filepath.Join(dir, "x.pdf")}},
		{"unknown column", []string{"export", file, "--out", out, "--columns", "color"}},
		{"unknown sort", []string{"export", file, "--out", out, "--sort", "color"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestComps(t *testing.T) {
	file := isolate(t)

	out, _, err := run(t, "comps", file, "--sqft", "1550", "--beds", "3", "--baths", "2", "--json")
	require.NoError(t, err)

	var body struct {
		Comparables []map[string]any `json:"comparables"`
		Summary     struct {
			Count       int     `json:"count"`
			MedianPrice float64 `json:"medianPrice"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Len(t, body.Comparables, 2)
	assert.Equal(t, 2, body.Summary.Count)
	assert.Equal(t, 325000.0, body.Summary.MedianPrice)

	out, _, err = run(t, "comps", file, "--sqft", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "no comparable sales found")

	_, _, err = run(t, "comps", file)
	assert.Error(t, err)

	_, _, err = run(t, "comps", file, "--sqft", "1500", "--lat", "30.2")
	assert.Error(t, err)
}

func TestComps_OptionalFlags(t *testing.T) {
	file := isolate(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"sqft only ignores room counts", []string{"--sqft", "1550"}, 2},
		{"beds given constrains", []string{"--sqft", "1550", "--beds", "1"}, 0},
		{"baths given constrains", []string{"--sqft", "1550", "--baths", "2"}, 2},
		{"default tolerance", []string{"--sqft", "1300"}, 1},
		{"zero tolerance is exact", []string{"--sqft", "1500", "--tolerance", "0"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"comps", file, "--json"}, tt.args...)
			out, _, err := run(t, args...)
			require.NoError(t, err)

			var body struct {
				Comparables []map[string]any `json:"comparables"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &body))
			assert.Len(t, body.Comparables, tt.want)
		})
	}
}

func TestAsk_AnswersLocallyWithoutKey(t *testing.T) {
	file := isolate(t)

	out, stderr, err := run(t, "ask", file, "What", "is", "the", "median", "sale", "price?")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
	assert.Contains(t, stderr, "answered locally")
}

func TestLoadConfig(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.BaseURL)
	assert.Equal(t, 20, cfg.TimeoutSec)
	assert.Equal(t, 1000.0, cfg.DefaultSqft)

	path := filepath.Join(t.TempDir(), "mlsctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: local/test\nmax_diagnostics: 3\n"), 0o644))
	t.Setenv("MLSCTL_MAX_TOKENS", "64")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "local/test", cfg.Model)
	assert.Equal(t, 3, cfg.MaxDiagnostics)
	assert.Equal(t, 64, cfg.MaxTokens)
	assert.Equal(t, "sk-test", cfg.APIKey)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
