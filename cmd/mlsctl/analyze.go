package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/coerce"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/filter"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/ingest"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

type analyzeReport struct {
	File         string               `json:"file"`
	RowsRead     int                  `json:"rowsRead"`
	RowsRejected int                  `json:"rowsRejected"`
	Mapping      models.ColumnMapping `json:"mapping"`
	Diagnostics  []string             `json:"diagnostics"`
	Summary      stats.Summary        `json:"summary"`
	KPIs         models.KPIData       `json:"kpis"`
	Areas        []models.AreaStats   `json:"areas"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		asOf    string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Report market KPIs for an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if asOf != "" {
				d, ok := coerce.Date(asOf)
				if !ok {
					return fmt.Errorf("invalid --now date %q", asOf)
				}
				now, _ = time.Parse(time.DateOnly, d)
			}

			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records := filter.Apply(res.Records, filters.spec(cmd))

			report := analyzeReport{
				File:         args[0],
				RowsRead:     res.RowsRead,
				RowsRejected: res.RowsRejected,
				Mapping:      res.Mapping,
				Diagnostics:  res.Diagnostics,
				Summary:      stats.Summarize(records),
				KPIs:         stats.Compute(records, now),
				Areas:        stats.ByArea(records),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&asOf, "now", "", "reference date whose calendar month counts as new listings (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(out io.Writer, r analyzeReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "File\t%s\n", r.File)
	fmt.Fprintf(w, "Rows read\t%s\n", humanize.Comma(int64(r.RowsRead)))
	fmt.Fprintf(w, "Rows rejected\t%s\n", humanize.Comma(int64(r.RowsRejected)))
	fmt.Fprintf(w, "Records\t%s\n", humanize.Comma(int64(r.Summary.Count)))
	if r.Summary.Dates.From != "" {
		fmt.Fprintf(w, "Dates\t%s to %s\n", r.Summary.Dates.From, r.Summary.Dates.To)
	}
	fmt.Fprintln(w)

	k := r.KPIs
	fmt.Fprintf(w, "Median sale price\t%s\n", money(k.MedianSalePrice))
	fmt.Fprintf(w, "Average sale price\t%s\n", money(k.AverageSalePrice))
	fmt.Fprintf(w, "Median list price\t%s\n", money(k.MedianListPrice))
	fmt.Fprintf(w, "Average list price\t%s\n", money(k.AverageListPrice))
	fmt.Fprintf(w, "Sale-to-list ratio\t%.1f%%\n", k.SaleToListRatio*100)
	fmt.Fprintf(w, "Price per sqft\t%s\n", money(k.PricePerSqft))
	fmt.Fprintf(w, "Days on market (avg/median)\t%.0f / %.0f\n", k.AverageDaysOnMarket, k.MedianDaysOnMarket)
	fmt.Fprintf(w, "Closed sales\t%d\n", k.ClosedSalesCount)
	fmt.Fprintf(w, "New listings (this month)\t%d\n", k.NewListingsCount)
	fmt.Fprintf(w, "Months of inventory\t%.1f\n", k.MonthsOfInventory)
	fmt.Fprintf(w, "Absorption rate\t%.1f%%\n", k.AbsorptionRate)
	if k.CashVsFinancedRatio != nil {
		fmt.Fprintf(w, "Cash sales\t%.1f%%\n", *k.CashVsFinancedRatio*100)
	} else {
		fmt.Fprintf(w, "Cash sales\tn/a\n")
	}

	if len(r.Areas) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ZIP\tLISTINGS\tSOLD\tAVG PRICE\tAVG $/SQFT")
		for _, area := range r.Areas {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", area.ZipCode, area.PropertyCount, area.SoldCount,
				money(area.AveragePrice), money(area.AvgPricePerSqft))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, d := range r.Diagnostics {
		fmt.Fprintf(out, "warning: %s\n", d)
	}
	return nil
}

func money(v float64) string {
	return "$" + humanize.Commaf(float64(int64(v+0.5)))
}

// ingestSummary is printed by subcommands that write records elsewhere.
func ingestSummary(res *ingest.Result, kept int) string {
	return fmt.Sprintf("%s of %s rows kept", humanize.Comma(int64(kept)), humanize.Comma(int64(res.RowsRead)))
}
