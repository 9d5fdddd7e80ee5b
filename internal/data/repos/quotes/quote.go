package quotes

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// QuoteRepo persists the aggregate root. It is the only assigner of quote
// numbers and never opens a transaction of its own; callers pass theirs
// through dbctx.
type QuoteRepo interface {
	Find(dbc dbctx.Context, company, branch string, number int64) (*types.Quote, error)
	Insert(dbc dbctx.Context, quote *types.Quote) error
	Update(dbc dbctx.Context, quote *types.Quote) error
	Delete(dbc dbctx.Context, quote *types.Quote) error
}

type quoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuoteRepo(db *gorm.DB, baseLog *logger.Logger) QuoteRepo {
	return &quoteRepo{db: db, log: baseLog.With("repo", "QuoteRepo")}
}

// Find returns the quote with its items loaded, or nil when absent.
func (r *quoteRepo) Find(dbc dbctx.Context, company, branch string, number int64) (*types.Quote, error) {
	conn := r.conn(dbc)

	var quote types.Quote
	err := conn.
		Where("company = ? AND branch = ? AND number = ?", company, branch, number).
		First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []types.QuoteItem
	if err := conn.
		Where("company = ? AND branch = ? AND quote_number = ?", company, branch, number).
		Order("sequence ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	quote.Items = items
	return &quote, nil
}

// Insert assigns the next quote number within the caller's transaction and
// creates the root row. Items travel through QuoteItemRepo.
func (r *quoteRepo) Insert(dbc dbctx.Context, quote *types.Quote) error {
	conn := r.conn(dbc)

	var max int64
	if err := conn.Model(&types.Quote{}).
		Where("company = ? AND branch = ?", quote.Company, quote.Branch).
		Select("COALESCE(MAX(number), 0)").
		Scan(&max).Error; err != nil {
		return err
	}
	quote.Number = max + 1

	return conn.Create(quote).Error
}

func (r *quoteRepo) Update(dbc dbctx.Context, quote *types.Quote) error {
	return r.conn(dbc).
		Model(&types.Quote{}).
		Where("company = ? AND branch = ? AND number = ?", quote.Company, quote.Branch, quote.Number).
		Updates(map[string]any{
			"customer":      quote.Customer,
			"salesperson":   quote.Salesperson,
			"price_table":   quote.PriceTable,
			"user_code":     quote.UserCode,
			"status":        quote.Status,
			"validity_days": quote.ValidityDays,
			"expires_at":    quote.ExpiresAt,
			"updated_at":    quote.UpdatedAt,
		}).Error
}

func (r *quoteRepo) Delete(dbc dbctx.Context, quote *types.Quote) error {
	return r.conn(dbc).
		Where("company = ? AND branch = ? AND number = ?", quote.Company, quote.Branch, quote.Number).
		Delete(&types.Quote{}).Error
}

func (r *quoteRepo) conn(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx)
}
