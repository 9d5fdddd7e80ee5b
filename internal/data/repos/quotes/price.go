package quotes

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// PriceRepo reads price table entries for the pricing resolver and lets
// admin/seed flows maintain them.
type PriceRepo interface {
	Lookup(dbc dbctx.Context, priceTable, productType, productCode string) (*types.PriceTableEntry, error)
	Upsert(dbc dbctx.Context, entry *types.PriceTableEntry) error
}

type priceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriceRepo(db *gorm.DB, baseLog *logger.Logger) PriceRepo {
	return &priceRepo{db: db, log: baseLog.With("repo", "PriceRepo")}
}

func (r *priceRepo) Lookup(dbc dbctx.Context, priceTable, productType, productCode string) (*types.PriceTableEntry, error) {
	conn := r.conn(dbc)

	var entry types.PriceTableEntry
	err := conn.
		Where("price_table = ? AND product_type = ? AND product_code = ?", priceTable, productType, productCode).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *priceRepo) Upsert(dbc dbctx.Context, entry *types.PriceTableEntry) error {
	conn := r.conn(dbc)

	existing, err := r.Lookup(dbc, entry.PriceTable, entry.ProductType, entry.ProductCode)
	if err != nil {
		return err
	}
	if existing == nil {
		return conn.Create(entry).Error
	}
	return conn.Model(&types.PriceTableEntry{}).
		Where("price_table = ? AND product_type = ? AND product_code = ?",
			entry.PriceTable, entry.ProductType, entry.ProductCode).
		Updates(map[string]any{
			"unit_price": entry.UnitPrice,
			"updated_at": entry.UpdatedAt,
		}).Error
}

func (r *priceRepo) conn(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx)
}
