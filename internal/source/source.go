package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retail-sync/inventory-sync/internal/config"
	"retail-sync/inventory-sync/internal/model"
)

// Failure taxonomy for the fetch side of the run. All are fatal; callers
// match with errors.Is.
var (
	ErrAuthFailed         = errors.New("erp authentication failed")
	ErrSessionInvalid     = errors.New("erp session not accepted")
	ErrUnexpectedResponse = errors.New("unexpected source response")
	ErrMalformedPayload   = errors.New("malformed source payload")
	ErrSourceUnavailable  = errors.New("source unavailable")
)

// Source yields raw rows for the three destination tables. Inventory and
// catalog rows may come from one payload (ERP) or separate views (database).
type Source interface {
	Name() string
	InventoryRows(ctx context.Context) ([]model.SourceRow, error)
	CatalogRows(ctx context.Context) ([]model.SourceRow, error)
}

func New(cfg config.Config) (Source, error) {
	switch cfg.Source {
	case config.SourceERP:
		return NewERP(cfg.ERP, cfg.Filters)
	case config.SourceDatabase:
		return NewDatabase(cfg.Database, cfg.Filters), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Source)
	}
}

// snippet truncates a response body for diagnostics.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
