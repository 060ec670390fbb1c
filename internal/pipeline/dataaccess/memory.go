package dataaccess

import (
	"context"
	"math"
	"sort"
	"strings"

	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/dataaccess/queries"
)

// MemoryStore serves a fixed dataset. It is the default backend for local
// runs and tests.
type MemoryStore struct {
	rows []models.Row
}

func NewMemoryStore(rows []models.Row) *MemoryStore {
	if rows == nil {
		rows = SampleRows()
	}
	return &MemoryStore{rows: rows}
}

// SampleRows is a small slice of the strategic action priority matrix.
// The two CRITICAL cases add up to $2,250,967.85 in estimated savings.
func SampleRows() []models.Row {
	return []models.Row{
		matrixRow("POWELL ELECTRICAL SYSTEMS INC", "SWITCHGEARS AND PARTS, METAL CLAD", 11,
			568541.0, 11508.93, 6367032.64, 1591758.16,
			models.PriorityCritical, "EXTREME", "0-30 days", "Emergency Contract Renegotiation", "HIGH"),
		matrixRow("AVAYA INC", "TELEPHONE SYSTEMS, DIGITAL", 7,
			384451.02, 2310.55, 2636838.77, 659209.69,
			models.PriorityCritical, "HIGH", "0-30 days", "Emergency Contract Renegotiation", "MEDIUM"),
		matrixRow("MOTOROLA SOLUTIONS INC", "RADIO COMMUNICATION EQUIPMENT", 24,
			212340.50, 845.12, 4120388.10, 1030097.03,
			models.PriorityHigh, "HIGH", "30-60 days", "Strategic Contract Review", "MEDIUM"),
		matrixRow("INSIGHT PUBLIC SECTOR", "COMPUTER SOFTWARE LICENSES", 38,
			150220.75, 310.40, 5210940.00, 781470.00,
			models.PriorityHigh, "MEDIUM", "30-60 days", "Vendor Consolidation", "MEDIUM"),
		matrixRow("AUSTIN WHITE LIME CO", "LIME, HYDRATED", 52,
			64210.33, 120.55, 1850320.44, 277548.07,
			models.PriorityMedium, "MEDIUM", "60-90 days", "Price Benchmarking", "LOW"),
		matrixRow("FREEIT DATA SOLUTIONS", "DATA STORAGE SERVICES", 9,
			18230.10, 45.20, 640112.00, 64011.20,
			models.PriorityLow, "LOW", "90+ days", "Monitor Pricing", "LOW"),
	}
}

func matrixRow(vendor, commodity string, transactions int, variance, variancePct, spend, savings float64,
	priority, risk, timeline, action, effort string) models.Row {
	return models.Row{
		"vendor_name":                   vendor,
		"commodity_description":         commodity,
		"transaction_count":             transactions,
		"price_variance_amount":         variance,
		"price_variance_percentage":     variancePct,
		"total_spend":                   spend,
		"estimated_savings_opportunity": savings,
		"strategic_priority":            priority,
		"risk_level":                    risk,
		"recommended_timeline":          timeline,
		"recommended_action":            action,
		"effort_level":                  effort,
	}
}

func (s *MemoryStore) QueryMatrix(ctx context.Context, filters models.Filters) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	query, _ := queries.Matrix(filters)

	var out []models.Row
	for _, row := range s.rows {
		if matches(row, filters) {
			out = append(out, copyRow(row))
		}
	}
	sortByDesc(out, "price_variance_amount")
	if limit, ok := queries.IntFilter(filters, "limit"); ok && limit < len(out) {
		out = out[:limit]
	}
	return Result{Rows: nonNil(out), Query: query}, nil
}

func (s *MemoryStore) PrioritySummary(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	type agg struct {
		count                 int
		savings, variance, sp float64
	}
	groups := make(map[string]*agg)
	for _, row := range s.rows {
		p, _ := row["strategic_priority"].(string)
		g, ok := groups[p]
		if !ok {
			g = &agg{}
			groups[p] = g
		}
		g.count++
		g.savings += number(row["estimated_savings_opportunity"])
		g.variance += number(row["price_variance_amount"])
		g.sp += number(row["total_spend"])
	}

	out := make([]models.Row, 0, len(groups))
	for p, g := range groups {
		out = append(out, models.Row{
			"strategic_priority":        p,
			"case_count":                g.count,
			"total_savings_opportunity": round2(g.savings),
			"avg_price_variance":        round2(g.variance / float64(g.count)),
			"total_spend_at_risk":       round2(g.sp),
		})
	}
	sortByPriority(out)
	return Result{Rows: out, Query: queries.PrioritySummary()}, nil
}

func (s *MemoryStore) SearchVendors(ctx context.Context, term string, limit int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	query, _ := queries.VendorSearch(term, limit)
	needle := strings.ToLower(term)

	var out []models.Row
	for _, row := range s.rows {
		vendor, _ := row["vendor_name"].(string)
		commodity, _ := row["commodity_description"].(string)
		if strings.Contains(strings.ToLower(vendor), needle) || strings.Contains(strings.ToLower(commodity), needle) {
			projected := make(models.Row, len(queries.SearchColumns))
			for _, col := range queries.SearchColumns {
				projected[col] = row[col]
			}
			out = append(out, projected)
		}
	}
	sortByDesc(out, "estimated_savings_opportunity")
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return Result{Rows: nonNil(out), Query: query}, nil
}

func matches(row models.Row, filters models.Filters) bool {
	for key, column := range map[string]string{
		"priority":  "strategic_priority",
		"timeline":  "recommended_timeline",
		"riskLevel": "risk_level",
	} {
		if want, ok := queries.StringFilter(filters, key); ok && !strings.EqualFold(str(row[column]), want) {
			return false
		}
	}
	for key, column := range map[string]string{
		"vendor":    "vendor_name",
		"commodity": "commodity_description",
	} {
		if want, ok := queries.StringFilter(filters, key); ok &&
			!strings.Contains(strings.ToLower(str(row[column])), strings.ToLower(want)) {
			return false
		}
	}
	savings := number(row["estimated_savings_opportunity"])
	if min, ok := queries.NumberFilter(filters, "minSavings"); ok && savings < min {
		return false
	}
	if max, ok := queries.NumberFilter(filters, "maxSavings"); ok && savings > max {
		return false
	}
	return true
}

func copyRow(row models.Row) models.Row {
	out := make(models.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func nonNil(rows []models.Row) []models.Row {
	if rows == nil {
		return []models.Row{}
	}
	return rows
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// sortByPriority orders summary rows CRITICAL, HIGH, MEDIUM, LOW.
func sortByPriority(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := str(rows[i]["strategic_priority"]), str(rows[j]["strategic_priority"])
		if ri, rj := models.PriorityRank(pi), models.PriorityRank(pj); ri != rj {
			return ri < rj
		}
		return pi < pj
	})
}

// sortByDesc orders rows by a numeric column, descending, ties by vendor.
func sortByDesc(rows []models.Row, column string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := number(rows[i][column]), number(rows[j][column])
		if a != b {
			return a > b
		}
		return str(rows[i]["vendor_name"]) < str(rows[j]["vendor_name"])
	})
}
