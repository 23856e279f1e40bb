package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/comps"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

func newCompsCmd(a *app) *cobra.Command {
	var (
		subject   models.Subject
		criteria  comps.Criteria
		lat, lng  float64
		beds      float64
		baths     float64
		tolerance float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "comps FILE",
		Short: "Find comparable sales for a subject property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject.Sqft <= 0 {
				return errors.New("--sqft must be positive")
			}
			fs := cmd.Flags()
			if fs.Changed("lat") != fs.Changed("lng") {
				return errors.New("--lat and --lng go together")
			}
			if fs.Changed("lat") {
				subject.Latitude, subject.Longitude = &lat, &lng
			}
			// an omitted room count does not constrain the search
			unbounded := math.Inf(1)
			if fs.Changed("beds") {
				subject.Beds = beds
			} else {
				criteria.BedsTolerance = &unbounded
			}
			if fs.Changed("baths") {
				subject.Baths = baths
			} else {
				criteria.BathsTolerance = &unbounded
			}
			if fs.Changed("tolerance") {
				band := tolerance / 100
				criteria.SqftTolerance = &band
			}

			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			found := comps.FindComparables(subject, res.Records, criteria)
			summary := comps.Summarize(subject, found)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"comparables": found, "summary": summary})
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "no comparable sales found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tZIP\tBEDS\tBATHS\tSQFT\tPRICE\tSOLD")
			for i := range found {
				p := &found[i]
				fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.0f\t%s\t%s\n",
					p.Address, p.ZipCode, p.Beds, p.Baths, p.Sqft, money(p.Price), p.SaleDate)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Median price\t%s\n", money(summary.MedianPrice))
			fmt.Fprintf(w, "Median $/sqft\t%s\n", money(summary.MedianPricePerSqft))
			fmt.Fprintf(w, "Range\t%s - %s\n", money(summary.LowPrice), money(summary.HighPrice))
			fmt.Fprintf(w, "Suggested value\t%s\n", money(summary.SuggestedValue))
			return w.Flush()
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&subject.Sqft, "sqft", 0, "subject living area")
	fs.Float64Var(&beds, "beds", 0, "subject bedrooms")
	fs.Float64Var(&baths, "baths", 0, "subject bathrooms")
	fs.StringVar(&subject.ZipCode, "zip", "", "restrict to the subject's zip code")
	fs.Float64Var(&lat, "lat", 0, "subject latitude")
	fs.Float64Var(&lng, "lng", 0, "subject longitude")
	fs.Float64Var(&criteria.RadiusKm, "radius", 0, "search radius in km (needs --lat and --lng)")
	fs.Float64Var(&tolerance, "tolerance", comps.DefaultSqftTolerance*100, "living area tolerance in percent, 0 for an exact match")
	fs.IntVar(&criteria.MaxResults, "max", comps.DefaultMaxResults, "maximum comparables")
	fs.BoolVar(&asJSON, "json", false, "print comparables as JSON")
	return cmd
}
