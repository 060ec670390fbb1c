// internal/pipeline/generator/fallback.go
package generator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"procurement-assistant/internal/models"
)

const defaultFallback = "I understand you're asking about procurement optimization. Based on our Strategic Action Priority Matrix, we have identified significant opportunities for cost savings and risk reduction across our vendor relationships."

// Savings fields in lookup order. Summary rows carry the first, matrix rows the second.
var savingsFields = []string{"total_savings_opportunity", "estimated_savings_opportunity"}

// Fallback renders the deterministic answer for plan and data. It never
// returns an empty string.
func Fallback(plan models.QueryPlan, data models.DataResult) string {
	count := 0
	if data.Success {
		count = len(data.Rows)
	}
	millions := FormatMillions(SavingsTotal(data.Rows))

	var b strings.Builder
	switch plan.Type {
	case models.PlanTypeExplanation:
		b.WriteString("📊 Strategic Action Priority Matrix Overview\n\nThe Strategic Action Priority Matrix is a comprehensive framework that identifies procurement optimization opportunities across our organization. ")
		if count > 0 {
			fmt.Fprintf(&b, "We've identified %d priority categories with %s in potential savings.", count, millions)
		}

	case models.PlanTypeCrisisAnalysis:
		b.WriteString("🚨 Crisis Response Analysis\n\nImmediate action is required on critical procurement cases. ")
		if count > 0 {
			fmt.Fprintf(&b, "We have %d critical cases requiring emergency intervention within 30 days.", count)
		}

	case models.PlanTypeDataAnalysis:
		b.WriteString("📈 Procurement Data Analysis\n\n")
		if count > 0 {
			fmt.Fprintf(&b, "I found %d matching cases with %s in estimated savings opportunity.", count, millions)
			if top := str(data.Rows[0]["vendor_name"]); top != "" {
				fmt.Fprintf(&b, " The largest price variance is with %s.", top)
			}
		} else {
			b.WriteString("No matching procurement records are available right now.")
		}

	case models.PlanTypeFinancialAnalysis:
		b.WriteString("💰 Savings Opportunity Analysis\n\n")
		if count > 0 {
			fmt.Fprintf(&b, "Across %d cases, the estimated savings opportunity totals %s.", count, millions)
		} else {
			b.WriteString("Savings figures are not available right now.")
		}

	case models.PlanTypeProjectGeneration:
		b.WriteString("📋 Project Plan Outline\n\nStart with emergency renegotiation of CRITICAL cases on a 0-30 day timeline, then move to strategic reviews. ")
		if count > 0 {
			fmt.Fprintf(&b, "The plan covers %d cases with %s in targeted savings.", count, millions)
		}

	default:
		b.WriteString(defaultFallback)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return defaultFallback
	}
	return out
}

// SavingsTotal sums the first savings field present on each row.
func SavingsTotal(rows []models.Row) float64 {
	var total float64
	for _, row := range rows {
		for _, field := range savingsFields {
			if v, ok := toFloat(row[field]); ok {
				total += v
				break
			}
		}
	}
	return total
}

// FormatMillions renders dollars as "$X.XM".
func FormatMillions(dollars float64) string {
	return fmt.Sprintf("$%.1fM", dollars/1_000_000)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
