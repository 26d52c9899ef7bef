package main

import (
	"context"
	"encoding/json"
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
	fetchDate   string
	fetchVAT    float64
	fetchBypass bool
	fetchOutput string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <provider> <tariff>",
	Short: "Fetch one day of prices for a provider and tariff",
	Long: `Fetch the quarter-hourly prices of one provider and tariff for a single
day. Today's and tomorrow's prices come from the current upstream table;
older days are resolved through the upstream commit history. Results are
cached on disk, use --bypass-cache to force a fresh download.`,
	Example: `  price-tracker fetch "Coopérnico Base" SIMPLE
  price-tracker fetch "EDP Indexada Horária" BIHORARIO_DIARIO --date 2026-08-15
  price-tracker fetch "Galp Plano Dinâmico" SIMPLE --bypass-cache --output json`,
	Args: cobra.ExactArgs(2),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "Day to fetch (YYYY-MM-DD, default today)")
	fetchCmd.Flags().Float64Var(&fetchVAT, "vat", 0.23, "VAT rate applied to prices")
	fetchCmd.Flags().BoolVar(&fetchBypass, "bypass-cache", false, "Skip memory and disk caches")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "table", "Output format: table or json")
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	day, err := resolveDay(fetchDate, fetcher.Location())
	if err != nil {
		return err
	}

	spec := source.Spec{Provider: provider, Tariff: tariff, VATRate: fetchVAT}

	logger.Info().Str("provider", provider).Str("tariff", tariff).Str("day", day.Format("2006-01-02")).Msg("Fetching prices")
	set, err := fetcher.Fetch(context.Background(), spec, day, fetchBypass)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	switch strings.ToLower(fetchOutput) {
	case "json":
		return outputJSON(set)
	case "table":
		outputFetchTable(set)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", fetchOutput)
	}

	return nil
}

func outputFetchTable(set pricing.DailySet) {
	fmt.Printf("\n%s / %s on %s\n", set.Provider, set.Tariff, set.Day.Format("2006-01-02"))
	fmt.Println(strings.Repeat("-", 60))

	if set.Empty() {
		fmt.Println("No prices available for this day.")
		return
	}

	agg := set.AggregateAt(time.Now().In(set.Day.Location()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Metric\tValue\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Records\t%d\n", set.Len())
	fmt.Fprintf(w, "Complete\t%t\n", set.Complete())
	if agg.Min != nil {
		fmt.Fprintf(w, "Min €/kWh\t%.5f\n", *agg.Min)
	}
	if agg.Max != nil {
		fmt.Fprintf(w, "Max €/kWh\t%.5f\n", *agg.Max)
	}
	if agg.MinWithVAT != nil {
		fmt.Fprintf(w, "Min €/kWh (VAT)\t%.5f\n", *agg.MinWithVAT)
	}
	if agg.MaxWithVAT != nil {
		fmt.Fprintf(w, "Max €/kWh (VAT)\t%.5f\n", *agg.MaxWithVAT)
	}
	if agg.Current != nil {
		marker := ""
		if agg.CurrentEstimated {
			marker = " (estimated)"
		}
		fmt.Fprintf(w, "Current €/kWh\t%.5f%s\n", agg.Current.Price, marker)
		fmt.Fprintf(w, "Current interval\t%s\n", agg.Current.Interval)
	}
	w.Flush()
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
