package repos

import (
	"github.com/meridianerp/quotes-backend/internal/data/repos/quotes"
)

type QuoteRepo = quotes.QuoteRepo
type QuoteItemRepo = quotes.QuoteItemRepo
type PriceRepo = quotes.PriceRepo
type QuoteEventRepo = quotes.QuoteEventRepo

var NewQuoteRepo = quotes.NewQuoteRepo
var NewQuoteItemRepo = quotes.NewQuoteItemRepo
var NewPriceRepo = quotes.NewPriceRepo
var NewQuoteEventRepo = quotes.NewQuoteEventRepo
