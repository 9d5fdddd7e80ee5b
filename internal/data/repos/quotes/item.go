package quotes

import (
	"gorm.io/gorm"

	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// QuoteItemRepo persists owned items. Sequence numbers are assigned here,
// on first insert, scoped to the owning quote.
type QuoteItemRepo interface {
	Insert(dbc dbctx.Context, item *types.QuoteItem) error
	Update(dbc dbctx.Context, item *types.QuoteItem) error
	Delete(dbc dbctx.Context, item *types.QuoteItem) error
}

type quoteItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuoteItemRepo(db *gorm.DB, baseLog *logger.Logger) QuoteItemRepo {
	return &quoteItemRepo{db: db, log: baseLog.With("repo", "QuoteItemRepo")}
}

func (r *quoteItemRepo) Insert(dbc dbctx.Context, item *types.QuoteItem) error {
	conn := r.conn(dbc)

	var max int
	if err := conn.Model(&types.QuoteItem{}).
		Where("company = ? AND branch = ? AND quote_number = ?", item.Company, item.Branch, item.QuoteNumber).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error; err != nil {
		return err
	}
	item.Sequence = max + 1

	return conn.Create(item).Error
}

func (r *quoteItemRepo) Update(dbc dbctx.Context, item *types.QuoteItem) error {
	return r.conn(dbc).
		Model(&types.QuoteItem{}).
		Where("company = ? AND branch = ? AND quote_number = ? AND sequence = ?",
			item.Company, item.Branch, item.QuoteNumber, item.Sequence).
		Updates(map[string]any{
			"product_type": item.ProductType,
			"product_code": item.ProductCode,
			"quantity":     item.Quantity,
			"unit_price":   item.UnitPrice,
			"updated_at":   item.UpdatedAt,
		}).Error
}

func (r *quoteItemRepo) Delete(dbc dbctx.Context, item *types.QuoteItem) error {
	return r.conn(dbc).
		Where("company = ? AND branch = ? AND quote_number = ? AND sequence = ?",
			item.Company, item.Branch, item.QuoteNumber, item.Sequence).
		Delete(&types.QuoteItem{}).Error
}

func (r *quoteItemRepo) conn(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx)
}
