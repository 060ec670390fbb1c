// Package dataaccess executes query plans against the procurement data
// store. Every failure is returned as a value, never as a Go error.
package dataaccess

import (
	"context"

	"procurement-assistant/internal/models"
)

// Result is a store reply: ordered rows plus the statement that produced them.
type Result struct {
	Rows  []models.Row
	Query string
}

type VendorSearcher interface {
	SearchVendors(ctx context.Context, term string, limit int) (Result, error)
}

// Store is the read-only procurement data boundary.
type Store interface {
	QueryMatrix(ctx context.Context, filters models.Filters) (Result, error)
	PrioritySummary(ctx context.Context) (Result, error)
	VendorSearcher
}
