package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"procurement-assistant/internal/models"
)

func intentOf(category string) models.Intent {
	i := models.DefaultIntent()
	i.Category = category
	return i
}

// ==========================
// Pattern Table Tests
// ==========================

func TestPlan_PatternRules(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantType    models.PlanType
		wantOp      models.Operation
		wantFilters models.Filters
		wantPattern string
	}{
		{
			name:        "matrix explanation",
			query:       "What is the Strategic Action Priority Matrix?",
			wantType:    models.PlanTypeExplanation,
			wantOp:      models.OperationPrioritySummary,
			wantFilters: models.Filters{},
			wantPattern: "strategic action priority matrix",
		},
		{
			name:        "crisis response",
			query:       "Give me the CRISIS RESPONSE plan",
			wantType:    models.PlanTypeCrisisAnalysis,
			wantOp:      models.OperationCrisisResponse,
			wantFilters: models.Filters{},
			wantPattern: "crisis response",
		},
		{
			name:        "critical cases",
			query:       "Show me critical cases",
			wantType:    models.PlanTypeDataAnalysis,
			wantOp:      models.OperationQueryMatrix,
			wantFilters: models.Filters{"priority": "CRITICAL"},
			wantPattern: "critical cases",
		},
		{
			name:        "high priority",
			query:       "list high priority items",
			wantType:    models.PlanTypeDataAnalysis,
			wantOp:      models.OperationQueryMatrix,
			wantFilters: models.Filters{"priority": "HIGH"},
			wantPattern: "high priority",
		},
		{
			name:        "savings opportunities plural",
			query:       "Where are our biggest savings opportunities?",
			wantType:    models.PlanTypeFinancialAnalysis,
			wantOp:      models.OperationQueryMatrix,
			wantFilters: models.Filters{},
			wantPattern: "savings opportunit",
		},
		{
			name:        "earlier rule wins when several match",
			query:       "crisis response project plan for critical cases",
			wantType:    models.PlanTypeCrisisAnalysis,
			wantOp:      models.OperationCrisisResponse,
			wantFilters: models.Filters{},
			wantPattern: "crisis response",
		},
		{
			name:        "vendor search",
			query:       "Search for switchgear vendors",
			wantType:    models.PlanTypeDataAnalysis,
			wantOp:      models.OperationSearchVendors,
			wantFilters: models.Filters{},
			wantPattern: "search for",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := p.Plan(tt.query, intentOf(models.IntentDataQuery))
			assert.Equal(t, tt.wantType, plan.Type)
			assert.Equal(t, tt.wantOp, plan.Operation)
			assert.Equal(t, tt.wantFilters, plan.Filters)
			assert.Equal(t, tt.wantPattern, plan.MatchedPattern)
			assert.NotEmpty(t, plan.Description)
			assert.False(t, Defaulted(plan))
		})
	}
}

func TestPlan_SearchTerm(t *testing.T) {
	plan := New().Plan("Search for Powell switchgear vendors", models.DefaultIntent())
	assert.Equal(t, "powell switchgear", plan.SearchTerm)
}

// ==========================
// Intent Fallback Tests
// ==========================

func TestPlan_IntentRules(t *testing.T) {
	tests := []struct {
		intent      string
		wantType    models.PlanType
		wantOp      models.Operation
		wantFilters models.Filters
	}{
		{models.IntentExplanation, models.PlanTypeExplanation, models.OperationPrioritySummary, models.Filters{}},
		{models.IntentCrisisResponse, models.PlanTypeCrisisAnalysis, models.OperationCrisisResponse, models.Filters{}},
		{models.IntentProjectPlan, models.PlanTypeProjectGeneration, models.OperationQueryMatrix, models.Filters{"priority": "CRITICAL"}},
		{models.IntentDataQuery, models.PlanTypeDataAnalysis, models.OperationQueryMatrix, models.Filters{}},
		{models.IntentAnalysis, models.PlanTypeGeneral, models.OperationPrioritySummary, models.Filters{}},
		{"nonsense", models.PlanTypeGeneral, models.OperationPrioritySummary, models.Filters{}},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			plan := p.Plan("how are we doing this quarter", intentOf(tt.intent))
			assert.Equal(t, tt.wantType, plan.Type)
			assert.Equal(t, tt.wantOp, plan.Operation)
			assert.Equal(t, tt.wantFilters, plan.Filters)
			assert.True(t, Defaulted(plan))
		})
	}
}

func TestPlan_VendorMentionsUseIntent(t *testing.T) {
	p := New()
	for _, q := range []string{
		"Which vendors need immediate attention?",
		"List suppliers with the largest price variance",
	} {
		plan := p.Plan(q, intentOf(models.IntentDataQuery))
		assert.Equal(t, models.OperationQueryMatrix, plan.Operation, q)
		assert.Equal(t, models.PlanTypeDataAnalysis, plan.Type, q)
		assert.Empty(t, plan.SearchTerm, q)
		assert.True(t, Defaulted(plan), q)
	}
}

func TestPlan_PatternBeatsIntent(t *testing.T) {
	plan := New().Plan("show critical cases", intentOf(models.IntentCrisisResponse))
	assert.Equal(t, models.PlanTypeDataAnalysis, plan.Type)
}

func TestPlan_Totality(t *testing.T) {
	inputs := []string{"", " ", "????", strings.Repeat("x", 1000), "ünïcödé", "%00\x00"}
	p := New()
	for _, in := range inputs {
		plan := p.Plan(in, models.Intent{})
		assert.NotEmpty(t, plan.Operation)
		assert.NotEmpty(t, plan.Type)
		assert.NotNil(t, plan.Filters)
	}
}

func TestPlan_FiltersAreCopies(t *testing.T) {
	p := New()
	first := p.Plan("critical cases", models.DefaultIntent())
	first.Filters["priority"] = "LOW"

	second := p.Plan("critical cases", models.DefaultIntent())
	assert.Equal(t, "CRITICAL", second.Filters["priority"])
}

func TestExtractSearchTerm(t *testing.T) {
	assert.Equal(t, "electrical metal clad", ExtractSearchTerm("find me the electrical metal clad"))
	assert.Equal(t, "", ExtractSearchTerm("show me a vendor"))
	assert.Equal(t, "powell", ExtractSearchTerm("Powell?"))
}
