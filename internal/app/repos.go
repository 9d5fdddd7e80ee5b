package app

import (
	"gorm.io/gorm"

	"github.com/meridianerp/quotes-backend/internal/data/repos"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

type Repos struct {
	Quote      repos.QuoteRepo
	QuoteItem  repos.QuoteItemRepo
	Price      repos.PriceRepo
	QuoteEvent repos.QuoteEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repos")
	return Repos{
		Quote:      repos.NewQuoteRepo(db, log),
		QuoteItem:  repos.NewQuoteItemRepo(db, log),
		Price:      repos.NewPriceRepo(db, log),
		QuoteEvent: repos.NewQuoteEventRepo(db, log),
	}
}
