// internal/models/plan.go
package models

// QueryPlan is the resolved decision of which capability to call and how.
type QueryPlan struct {
	Type           PlanType  `json:"type"`
	Operation      Operation `json:"operation"`
	Filters        Filters   `json:"filters"`
	MatchedPattern string    `json:"matched_pattern,omitempty"`
	Description    string    `json:"description"`
	SearchTerm     string    `json:"searchTerm,omitempty"`
}

// Row is one record: column name to scalar.
type Row map[string]interface{}

type DataResult struct {
	Success   bool      `json:"success"`
	Rows      []Row     `json:"data"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Operation Operation `json:"operation"`
	// Query echoes what the store ran. Diagnostics only.
	Query string `json:"query,omitempty"`
}

// FailedData builds the failure value returned by the data layer.
func FailedData(op Operation, err error) DataResult {
	return DataResult{Success: false, Rows: []Row{}, Error: err.Error(), Operation: op}
}
