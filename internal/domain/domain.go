package domain

import "github.com/meridianerp/quotes-backend/internal/domain/quotes"

type Quote = quotes.Quote
type QuoteItem = quotes.QuoteItem
type PriceTableEntry = quotes.PriceTableEntry
type QuoteEvent = quotes.QuoteEvent

type CreateInput = quotes.CreateInput
type UpdateInput = quotes.UpdateInput

type Status = quotes.Status
type Notification = quotes.Notification
type Result = quotes.Result
type Code = quotes.Code
type Defaults = quotes.Defaults

const (
	StatusDraft     = quotes.StatusDraft
	StatusOpen      = quotes.StatusOpen
	StatusClosed    = quotes.StatusClosed
	StatusReopened  = quotes.StatusReopened
	StatusCancelled = quotes.StatusCancelled
	StatusDeleted   = quotes.StatusDeleted

	CodeValidation       = quotes.CodeValidation
	CodeNotFound         = quotes.CodeNotFound
	CodeReferenceInvalid = quotes.CodeReferenceInvalid
	CodePersistence      = quotes.CodePersistence
)

// NewQuote builds an open quote from caller input and configured defaults.
var NewQuote = quotes.New

var Fail = quotes.Fail
var OK = quotes.OK
