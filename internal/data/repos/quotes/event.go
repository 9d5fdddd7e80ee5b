package quotes

import (
	"gorm.io/gorm"

	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// QuoteEventRepo appends event-log rows inside the command transaction so
// the log commits atomically with the state it describes.
type QuoteEventRepo interface {
	Append(dbc dbctx.Context, event *types.QuoteEvent) error
	ListForQuote(dbc dbctx.Context, company, branch string, number int64) ([]*types.QuoteEvent, error)
}

type quoteEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuoteEventRepo(db *gorm.DB, baseLog *logger.Logger) QuoteEventRepo {
	return &quoteEventRepo{db: db, log: baseLog.With("repo", "QuoteEventRepo")}
}

func (r *quoteEventRepo) Append(dbc dbctx.Context, event *types.QuoteEvent) error {
	return r.conn(dbc).Create(event).Error
}

func (r *quoteEventRepo) ListForQuote(dbc dbctx.Context, company, branch string, number int64) ([]*types.QuoteEvent, error) {
	var events []*types.QuoteEvent
	err := r.conn(dbc).
		Where("company = ? AND branch = ? AND quote_number = ?", company, branch, number).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *quoteEventRepo) conn(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx)
}
