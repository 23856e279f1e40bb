package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/export"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/filter"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		out     string
		format  string
		columns string
		sortBy  string
		desc    bool
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write filtered records as CSV, Excel or GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(out), ".")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			table, err := a.table()
			if err != nil {
				return err
			}
			exporter, err := export.New(export.Options{Columns: export.ParseColumns(columns), Table: table})
			if err != nil {
				return err
			}

			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records := filter.Apply(res.Records, filters.spec(cmd))
			if sortBy != "" {
				field := models.Field(sortBy)
				if field != models.FieldID && !field.IsCanonical() {
					return fmt.Errorf("unknown sort field %q", sortBy)
				}
				records = filter.Sort(records, field, desc)
			}

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := exporter.Write(file, f, records); err != nil {
				file.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, ingestSummary(res, len(records)))
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path")
	cmd.Flags().StringVar(&format, "format", "", "csv, xlsx or geojson (default from the output extension)")
	cmd.Flags().StringVar(&columns, "columns", "", "comma-separated fields to write")
	cmd.Flags().StringVar(&sortBy, "sort", "", "field to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}
