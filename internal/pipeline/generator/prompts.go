// internal/pipeline/generator/prompts.go
package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"procurement-assistant/internal/models"
)

const SystemPrompt = `You are a Strategic Procurement AI Assistant for C-suite executives. You provide sophisticated analysis and strategic insights based on procurement data.

Key Capabilities:
- Analyze strategic procurement opportunities from real database queries
- Generate executive-level insights and recommendations
- Create detailed project plans for procurement optimization
- Provide crisis response frameworks and timelines
- Explain complex procurement concepts in business terms

Context: You have access to a Strategic Action Priority Matrix that identifies procurement optimization opportunities across a $516M spend with significant price variance issues requiring immediate attention.

Response Style:
- Executive-level language appropriate for C-suite
- Data-driven insights with specific recommendations
- Clear action items with timelines and savings projections
- Strategic context that ties to business objectives
- Professional formatting with clear sections

Always provide actionable insights, not just data summaries.`

var contextualNotes = map[models.PlanType]string{
	models.PlanTypeCrisisAnalysis:    "This is a crisis response query requiring immediate executive attention.",
	models.PlanTypeProjectGeneration: "User is requesting a detailed project plan with specific timelines and actions.",
	models.PlanTypeExplanation:       "User needs a comprehensive explanation of procurement concepts.",
}

// ContextualInfo is the short note attached to every prompt. The plan-type
// note is only added when data was retrieved.
func ContextualInfo(plan models.QueryPlan, data models.DataResult, intent models.Intent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query Type: %s\n", plan.Type)
	fmt.Fprintf(&b, "Operation: %s\n", plan.Description)

	if data.Success && data.Rows != nil {
		fmt.Fprintf(&b, "Data Records: %d\n", len(data.Rows))
		if note, ok := contextualNotes[plan.Type]; ok {
			b.WriteString(note + "\n")
		}
	}
	if intent.Urgency == "high" || intent.Urgency == "critical" {
		fmt.Fprintf(&b, "Urgency: %s\n", intent.Urgency)
	}
	return b.String()
}

// BuildUserPrompt assembles the user message sent with SystemPrompt.
func BuildUserPrompt(query string, plan models.QueryPlan, data models.DataResult, intent models.Intent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Query: %q\n\n", query)

	if payload, err := json.MarshalIndent(data, "", "  "); err == nil {
		fmt.Fprintf(&b, "Database Query Results:\n%s\n\n", payload)
	}
	if plan.Type != "" {
		fmt.Fprintf(&b, "Query Type: %s\n\n", plan.Type)
	}
	fmt.Fprintf(&b, "Additional Context: %s\n\n", ContextualInfo(plan, data, intent))

	b.WriteString("Please provide a comprehensive, executive-level response with specific insights and actionable recommendations.")
	return b.String()
}
