// Package queries builds the parameterized statements run against the
// strategic action priority matrix.
package queries

import (
	"math"
	"strconv"
	"strings"

	"procurement-assistant/internal/models"
)

const Table = "strategic_action_priority_matrix"

// MatrixColumns are the columns returned by matrix and crisis queries, in order.
var MatrixColumns = []string{
	"vendor_name",
	"commodity_description",
	"transaction_count",
	"price_variance_amount",
	"price_variance_percentage",
	"total_spend",
	"estimated_savings_opportunity",
	"strategic_priority",
	"risk_level",
	"recommended_timeline",
	"recommended_action",
	"effort_level",
}

var SummaryColumns = []string{
	"strategic_priority",
	"case_count",
	"total_savings_opportunity",
	"avg_price_variance",
	"total_spend_at_risk",
}

var SearchColumns = []string{
	"vendor_name",
	"commodity_description",
	"strategic_priority",
	"estimated_savings_opportunity",
	"recommended_action",
}

// NumericColumns lists every column holding a number.
var NumericColumns = map[string]bool{
	"transaction_count":             true,
	"price_variance_amount":         true,
	"price_variance_percentage":     true,
	"total_spend":                   true,
	"estimated_savings_opportunity": true,
	"case_count":                    true,
	"total_savings_opportunity":     true,
	"avg_price_variance":            true,
	"total_spend_at_risk":           true,
}

// CrisisFilters select the cases needing action within 30 days.
func CrisisFilters() models.Filters {
	return models.Filters{"timeline": "0-30 days", "priority": models.PriorityCritical}
}

// Matrix builds the filtered matrix query. Filter keys are applied in a
// fixed order so identical filters always yield identical SQL.
func Matrix(filters models.Filters) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, clause+" $"+strconv.Itoa(len(args)))
	}

	if v, ok := StringFilter(filters, "priority"); ok {
		add("strategic_priority =", v)
	}
	if v, ok := StringFilter(filters, "timeline"); ok {
		add("recommended_timeline =", v)
	}
	if v, ok := StringFilter(filters, "riskLevel"); ok {
		add("risk_level =", v)
	}
	if v, ok := NumberFilter(filters, "minSavings"); ok {
		add("estimated_savings_opportunity >=", v)
	}
	if v, ok := NumberFilter(filters, "maxSavings"); ok {
		add("estimated_savings_opportunity <=", v)
	}
	if v, ok := StringFilter(filters, "vendor"); ok {
		add("vendor_name ILIKE", "%"+v+"%")
	}
	if v, ok := StringFilter(filters, "commodity"); ok {
		add("commodity_description ILIKE", "%"+v+"%")
	}

	var b strings.Builder
	b.WriteString("SELECT " + strings.Join(MatrixColumns, ", ") + " FROM " + Table)
	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY price_variance_amount DESC, vendor_name ASC")
	if limit, ok := IntFilter(filters, "limit"); ok {
		args = append(args, limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

// PrioritySummary aggregates the matrix per strategic priority.
func PrioritySummary() string {
	return "SELECT strategic_priority, COUNT(*) AS case_count," +
		" SUM(estimated_savings_opportunity) AS total_savings_opportunity," +
		" AVG(price_variance_amount) AS avg_price_variance," +
		" SUM(total_spend) AS total_spend_at_risk" +
		" FROM " + Table +
		" GROUP BY strategic_priority" +
		" ORDER BY CASE strategic_priority WHEN 'CRITICAL' THEN 1 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 3 WHEN 'LOW' THEN 4 ELSE 5 END, strategic_priority"
}

// VendorSearch matches term against vendor or commodity. An empty term
// matches every row.
func VendorSearch(term string, limit int) (string, []interface{}) {
	query := "SELECT " + strings.Join(SearchColumns, ", ") + " FROM " + Table +
		" WHERE vendor_name ILIKE $1 OR commodity_description ILIKE $1" +
		" ORDER BY estimated_savings_opportunity DESC, vendor_name ASC LIMIT $2"
	return query, []interface{}{"%" + term + "%", limit}
}

// StringFilter returns a non-empty string filter value.
func StringFilter(filters models.Filters, key string) (string, bool) {
	s, ok := filters[key].(string)
	return s, ok && s != ""
}

// NumberFilter accepts any numeric filter value.
func NumberFilter(filters models.Filters, key string) (float64, bool) {
	switch v := filters[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// IntFilter accepts whole numbers only.
func IntFilter(filters models.Filters, key string) (int, bool) {
	f, ok := NumberFilter(filters, key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
