package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// Tariff cycle codes as used in configuration and instance keys. The CSV
// labels them with the Portuguese display names in TariffLabels.
const (
	TariffSimple              = "SIMPLE"
	TariffBihorarioDiario     = "BIHORARIO_DIARIO"
	TariffBihorarioSemanal    = "BIHORARIO_SEMANAL"
	TariffTrihorarioDiario    = "TRIHORARIO_DIARIO"
	TariffTrihorarioSemanal   = "TRIHORARIO_SEMANAL"
	TariffTrihorarioDiarioHV  = "TRIHORARIO_DIARIO_HV"
	TariffTrihorarioSemanalHV = "TRIHORARIO_SEMANAL_HV"
)

// TariffLabels maps tariff codes to the exact labels used in the source
// CSV's "opcao" column.
var TariffLabels = map[string]string{
	TariffSimple:              "Simples",
	TariffBihorarioDiario:     "Bi-horário - Ciclo Diário",
	TariffBihorarioSemanal:    "Bi-horário - Ciclo Semanal",
	TariffTrihorarioDiario:    "Tri-horário - Ciclo Diário",
	TariffTrihorarioSemanal:   "Tri-horário - Ciclo Semanal",
	TariffTrihorarioDiarioHV:  "Tri-horário > 20.7 kVA - Ciclo Diário",
	TariffTrihorarioSemanalHV: "Tri-horário > 20.7 kVA - Ciclo Semanal",
}

// Providers lists the indexed-tariff suppliers tracked in the source CSV's
// "tarifario" column. Every provider offers the full tariff cycle set.
var Providers = []string{
	"Alfa Power Index BTN",
	"Coopérnico Base",
	"Coopérnico GO",
	"EDP Indexada Horária",
	"EZU Tarifa Coletiva",
	"G9 Smart Dynamic",
	"Galp Plano Dinâmico",
	"MeoEnergia Tarifa Variável",
	"Repsol Leve Sem Mais",
}

// TariffLabel resolves a tariff code to its CSV label. Unknown codes are
// passed through unchanged so the parser can still match raw labels given
// directly in configuration.
func TariffLabel(code string) string {
	if label, ok := TariffLabels[code]; ok {
		return label
	}
	return code
}

// ValidTariff reports whether code is a known tariff cycle code.
func ValidTariff(code string) bool {
	_, ok := TariffLabels[code]
	return ok
}

// ValidProvider reports whether name is a known provider.
func ValidProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// TariffCodes returns the known tariff codes in stable order.
func TariffCodes() []string {
	codes := make([]string, 0, len(TariffLabels))
	for code := range TariffLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// InstanceKey builds the canonical provider/tariff key used to address a
// configured instance, e.g. "coopérnico_base/simple".
func InstanceKey(provider, tariff string) string {
	p := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(provider)), " ", "_")
	t := strings.ToLower(strings.TrimSpace(tariff))
	return fmt.Sprintf("%s/%s", p, t)
}
