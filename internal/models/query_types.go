// internal/models/query_types.go
package models

// Operation names a data-access capability.
type Operation string

const (
	OperationPrioritySummary Operation = "getStrategicPrioritySummary"
	OperationCrisisResponse  Operation = "getCrisisResponseData"
	OperationQueryMatrix     Operation = "queryStrategicActionMatrix"
	OperationSearchVendors   Operation = "searchVendors"
)

// PlanType classifies the answer the assistant is expected to give.
type PlanType string

const (
	PlanTypeExplanation       PlanType = "explanation"
	PlanTypeCrisisAnalysis    PlanType = "crisis_analysis"
	PlanTypeProjectGeneration PlanType = "project_generation"
	PlanTypeDataAnalysis      PlanType = "data_analysis"
	PlanTypeFinancialAnalysis PlanType = "financial_analysis"
	PlanTypeGeneral           PlanType = "general"
)

// Strategic priorities, highest first.
const (
	PriorityCritical = "CRITICAL"
	PriorityHigh     = "HIGH"
	PriorityMedium   = "MEDIUM"
	PriorityLow      = "LOW"
)

var Priorities = []string{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Timelines are the recommended_timeline buckets.
var Timelines = []string{"0-30 days", "30-60 days", "60-90 days", "90+ days"}

// PriorityRank orders priorities for summaries. Unknown values sort last.
func PriorityRank(priority string) int {
	for i, p := range Priorities {
		if p == priority {
			return i + 1
		}
	}
	return len(Priorities) + 1
}
