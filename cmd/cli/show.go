package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarifario/price-tracker/internal/pricing"
	"github.com/tarifario/price-tracker/internal/source"
)

var (
	showDate   string
	showVAT    float64
	showOutput string
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <provider> <tariff>",
	Short: "Print the full quarter-hour price table for a day",
	Example: `  price-tracker show "Coopérnico Base" SIMPLE
  price-tracker show "Repsol Leve Sem Mais" TRIHORARIO_DIARIO --date 2026-08-15`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showDate, "date", "", "Day to show (YYYY-MM-DD, default today)")
	showCmd.Flags().Float64Var(&showVAT, "vat", 0.23, "VAT rate applied to prices")
	showCmd.Flags().StringVar(&showOutput, "output", "table", "Output format: table or json")
}

func runShow(cmd *cobra.Command, args []string) error {
	provider, tariff := args[0], args[1]

	if !pricing.ValidProvider(provider) {
		return fmt.Errorf("unknown provider: %s\nValid providers: %s", provider, strings.Join(pricing.Providers, ", "))
	}
	if !pricing.ValidTariff(tariff) {
		return fmt.Errorf("unknown tariff: %s\nValid tariffs: %s", tariff, strings.Join(pricing.TariffCodes(), ", "))
	}

	fetcher, err := buildFetcher()
	if err != nil {
		return err
	}

	day, err := resolveDay(showDate, fetcher.Location())
	if err != nil {
		return err
	}

	spec := source.Spec{Provider: provider, Tariff: tariff, VATRate: showVAT}

	set, err := fetcher.Fetch(context.Background(), spec, day, false)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if strings.EqualFold(showOutput, "json") {
		return outputJSON(set)
	}

	fmt.Printf("\n%s / %s on %s (%d records)\n", set.Provider, set.Tariff, set.Day.Format("2006-01-02"), set.Len())
	fmt.Println(strings.Repeat("-", 72))

	if set.Empty() {
		fmt.Println("No prices available for this day.")
		return nil
	}

	now := time.Now().In(set.Day.Location())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Interval\t€/kWh\t€/kWh (VAT)\tOMIE\tTAR\t\n")
	fmt.Fprintf(w, "--------\t-----\t-----------\t----\t---\t\n")
	for _, rec := range set.Records {
		marker := ""
		if rec.Covers(now) {
			marker = "<- now"
		}
		fmt.Fprintf(w, "%s\t%.5f\t%.5f\t%.2f\t%.4f\t%s\n",
			rec.Interval, rec.Price, rec.PriceWithVAT, rec.MarketPrice, rec.TariffCost, marker)
	}
	w.Flush()

	return nil
}
