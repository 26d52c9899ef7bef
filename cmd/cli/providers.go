package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tarifario/price-tracker/internal/pricing"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the supported providers and tariff cycles",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	fmt.Println("\nProviders")
	fmt.Println(strings.Repeat("-", 60))
	for _, p := range pricing.Providers {
		fmt.Printf("  %s\n", p)
	}

	fmt.Println("\nTariff cycles")
	fmt.Println(strings.Repeat("-", 60))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Code\tCSV label\n")
	fmt.Fprintf(w, "----\t---------\n")
	for _, code := range pricing.TariffCodes() {
		fmt.Fprintf(w, "%s\t%s\n", code, pricing.TariffLabel(code))
	}
	w.Flush()

	if cfg != nil && len(cfg.Instances) > 0 {
		fmt.Println("\nConfigured instances")
		fmt.Println(strings.Repeat("-", 60))
		for _, inst := range cfg.Instances {
			marker := ""
			if cfg.Active.Selection == inst.Key() {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", inst.Key(), marker)
		}
	}

	return nil
}
