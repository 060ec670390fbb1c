// Package planner maps free text, aided by a classified intent, onto a data
// operation plan. Planning never fails.
package planner

import (
	"strings"

	"procurement-assistant/internal/models"
)

// Rule is one entry of an ordered dispatch table. Exactly one of Pattern
// (substring of the lower-cased query) or Intent (classifier category) is set.
type Rule struct {
	Pattern     string
	Intent      string
	Type        models.PlanType
	Operation   models.Operation
	Filters     models.Filters
	Description string
	// Search marks rules whose operation takes a term extracted from the query.
	Search bool
}

func (r Rule) plan(query string) models.QueryPlan {
	p := models.QueryPlan{
		Type:           r.Type,
		Operation:      r.Operation,
		Filters:        r.Filters.Clone(),
		MatchedPattern: r.Pattern,
		Description:    r.Description,
	}
	if r.Search {
		p.SearchTerm = ExtractSearchTerm(query)
	}
	return p
}

// PatternRules are evaluated first; the first substring match wins. Search
// rules need an explicit trigger phrase; questions that merely mention
// vendors fall through to the intent table.
var PatternRules = []Rule{
	{
		Pattern:     "strategic action priority matrix",
		Type:        models.PlanTypeExplanation,
		Operation:   models.OperationPrioritySummary,
		Description: "Explains the Strategic Action Priority Matrix concept and shows summary data",
	},
	{
		Pattern:     "crisis response",
		Type:        models.PlanTypeCrisisAnalysis,
		Operation:   models.OperationCrisisResponse,
		Description: "Shows immediate crisis response actions needed within 0-30 days",
	},
	{
		Pattern:     "project plan",
		Type:        models.PlanTypeProjectGeneration,
		Operation:   models.OperationQueryMatrix,
		Description: "Generates detailed project plans based on strategic priorities",
	},
	{
		Pattern:     "critical cases",
		Type:        models.PlanTypeDataAnalysis,
		Operation:   models.OperationQueryMatrix,
		Filters:     models.Filters{"priority": models.PriorityCritical},
		Description: "Shows critical priority cases requiring immediate attention",
	},
	{
		Pattern:     "high priority",
		Type:        models.PlanTypeDataAnalysis,
		Operation:   models.OperationQueryMatrix,
		Filters:     models.Filters{"priority": models.PriorityHigh},
		Description: "Shows high priority cases for strategic intervention",
	},
	{
		Pattern:     "savings opportunit",
		Type:        models.PlanTypeFinancialAnalysis,
		Operation:   models.OperationQueryMatrix,
		Description: "Analyzes potential savings opportunities",
	},
	{
		Pattern:     "search for",
		Type:        models.PlanTypeDataAnalysis,
		Operation:   models.OperationSearchVendors,
		Description: "Searches vendors and commodities",
		Search:      true,
	},
	{
		Pattern:     "find vendor",
		Type:        models.PlanTypeDataAnalysis,
		Operation:   models.OperationSearchVendors,
		Description: "Searches vendors and commodities",
		Search:      true,
	},
}

// IntentRules apply when no pattern matched.
var IntentRules = []Rule{
	{
		Intent:      models.IntentExplanation,
		Type:        models.PlanTypeExplanation,
		Operation:   models.OperationPrioritySummary,
		Description: "Provides explanation with supporting data",
	},
	{
		Intent:      models.IntentCrisisResponse,
		Type:        models.PlanTypeCrisisAnalysis,
		Operation:   models.OperationCrisisResponse,
		Description: "Crisis response analysis and action plan",
	},
	{
		Intent:      models.IntentProjectPlan,
		Type:        models.PlanTypeProjectGeneration,
		Operation:   models.OperationQueryMatrix,
		Filters:     models.Filters{"priority": models.PriorityCritical},
		Description: "Generates detailed project plan",
	},
	{
		Intent:      models.IntentDataQuery,
		Type:        models.PlanTypeDataAnalysis,
		Operation:   models.OperationQueryMatrix,
		Description: "Data analysis and insights",
	},
}

// DefaultRule is the final fallback.
var DefaultRule = Rule{
	Type:        models.PlanTypeGeneral,
	Operation:   models.OperationPrioritySummary,
	Description: "General strategic procurement assistance",
}

type Planner struct {
	patterns []Rule
	intents  []Rule
	fallback Rule
}

// New returns a planner over the package rule tables.
func New() *Planner {
	return NewWithRules(PatternRules, IntentRules, DefaultRule)
}

func NewWithRules(patterns, intents []Rule, fallback Rule) *Planner {
	return &Planner{patterns: patterns, intents: intents, fallback: fallback}
}

// Plan resolves query and intent to a plan. Pattern rules take precedence
// over intent rules even when the two disagree.
func (p *Planner) Plan(query string, intent models.Intent) models.QueryPlan {
	lower := strings.ToLower(query)
	for _, rule := range p.patterns {
		if strings.Contains(lower, rule.Pattern) {
			return rule.plan(query)
		}
	}
	for _, rule := range p.intents {
		if rule.Intent == intent.Category {
			return rule.plan(query)
		}
	}
	return p.fallback.plan(query)
}

// Defaulted reports whether plan came from the intent table or the fallback.
func Defaulted(plan models.QueryPlan) bool {
	return plan.MatchedPattern == ""
}

var stopWords = map[string]struct{}{
	"show": {}, "me": {}, "find": {}, "search": {}, "for": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"vendor": {}, "vendors": {}, "supplier": {}, "suppliers": {},
}

// ExtractSearchTerm drops stop words and words of two characters or fewer.
func ExtractSearchTerm(query string) string {
	var kept []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, "?!.,:")
		if len([]rune(word)) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
