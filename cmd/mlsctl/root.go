package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/mapping"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// app is the state shared by every subcommand.
type app struct {
	cfgFile string
	debug   bool
	cfg     *cliConfig
	logger  *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "mlsctl",
		Short: "Analyze MLS exports from the command line",
		Long: `mlsctl ingests a CSV or Excel export from an MLS or listing portal and
reports market KPIs, exports filtered records, finds comparable sales and
answers questions about the data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			a.logger = logrus.New()
			a.logger.SetFormatter(&logrus.JSONFormatter{})
			a.logger.SetOutput(cmd.ErrOrStderr())
			a.logger.SetLevel(logrus.WarnLevel)
			if a.debug {
				a.logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.mlsctl/config.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newAnalyzeCmd(a),
		newExportCmd(a),
		newCompsCmd(a),
		newAskCmd(a),
	)
	return root
}

// load ingests the file at path with the configured column table.
func (a *app) load(ctx context.Context, path string) (*ingest.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	table, err := a.table()
	if err != nil {
		return nil, err
	}

	opts := ingest.DefaultOptions()
	if a.cfg.DefaultSqft > 0 {
		opts.DefaultSqft = a.cfg.DefaultSqft
	}
	if a.cfg.MaxDiagnostics > 0 {
		opts.MaxDiagnostics = a.cfg.MaxDiagnostics
	}
	return ingest.NewPipeline(table, opts, a.logger).Process(ctx, data)
}

func (a *app) table() (*mapping.Table, error) {
	if a.cfg.ColumnTable == "" {
		return mapping.Default(), nil
	}
	f, err := os.Open(a.cfg.ColumnTable)
	if err != nil {
		return nil, fmt.Errorf("open column table: %w", err)
	}
	defer f.Close()
	return mapping.LoadTable(f)
}

// filterFlags is the record filter shared by several subcommands.
type filterFlags struct {
	start, end         string
	minPrice, maxPrice float64
	city, zip          string
	minBeds, minBaths  float64
	types              []string
	status             string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.start, "start", "", "earliest sale or list date (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "latest sale or list date (YYYY-MM-DD)")
	fs.Float64Var(&f.minPrice, "min-price", 0, "minimum price")
	fs.Float64Var(&f.maxPrice, "max-price", 0, "maximum price")
	fs.StringVar(&f.city, "city", "", "city, matched as a case-insensitive substring")
	fs.StringVar(&f.zip, "zip", "", "exact zip code")
	fs.Float64Var(&f.minBeds, "min-beds", 0, "minimum bedrooms")
	fs.Float64Var(&f.minBaths, "min-baths", 0, "minimum bathrooms")
	fs.StringSliceVar(&f.types, "types", nil, "property types (comma separated)")
	fs.StringVar(&f.status, "status", "", "listing status (active, sold, pending, withdrawn)")
}

func (f *filterFlags) spec(cmd *cobra.Command) models.FilterSpec {
	fs := cmd.Flags()
	spec := models.FilterSpec{
		DateFrom:      f.start,
		DateTo:        f.end,
		City:          f.city,
		ZipCode:       f.zip,
		PropertyTypes: f.types,
		Status:        f.status,
	}
	if fs.Changed("min-price") {
		spec.MinPrice = &f.minPrice
	}
	if fs.Changed("max-price") {
		spec.MaxPrice = &f.maxPrice
	}
	if fs.Changed("min-beds") {
		spec.MinBeds = &f.minBeds
	}
	if fs.Changed("min-baths") {
		spec.MinBaths = &f.minBaths
	}
	return spec
}
