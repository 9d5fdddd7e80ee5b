package services

import (
	"strings"

	"github.com/meridianerp/quotes-backend/internal/data/repos"
	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// PriceResolver resolves a product to a unit price in the context of a
// quote. Pure read, no mutation; injected into the orchestrator, never into
// the aggregate.
type PriceResolver interface {
	Resolve(dbc dbctx.Context, quote *types.Quote, productType, productCode string) (int64, bool, error)
}

type tablePriceResolver struct {
	log          *logger.Logger
	prices       repos.PriceRepo
	defaultTable string
}

// NewTablePriceResolver consults the quote's own price table first and the
// configured default table second.
func NewTablePriceResolver(baseLog *logger.Logger, prices repos.PriceRepo, defaultTable string) PriceResolver {
	return &tablePriceResolver{
		log:          baseLog.With("service", "PriceResolver"),
		prices:       prices,
		defaultTable: strings.TrimSpace(defaultTable),
	}
}

func (r *tablePriceResolver) Resolve(dbc dbctx.Context, quote *types.Quote, productType, productCode string) (int64, bool, error) {
	if strings.TrimSpace(productType) == "" || strings.TrimSpace(productCode) == "" {
		return 0, false, nil
	}

	entry, err := r.prices.Lookup(dbc, quote.PriceTable, productType, productCode)
	if err != nil {
		return 0, false, err
	}
	if entry == nil && r.defaultTable != "" && r.defaultTable != quote.PriceTable {
		entry, err = r.prices.Lookup(dbc, r.defaultTable, productType, productCode)
		if err != nil {
			return 0, false, err
		}
	}
	if entry == nil || entry.UnitPrice < 0 {
		return 0, false, nil
	}
	return entry.UnitPrice, true, nil
}
