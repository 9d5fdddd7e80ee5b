package events

import (
	"time"

	"github.com/google/uuid"

	types "github.com/meridianerp/quotes-backend/internal/domain"
)

// One event type per completed command.
const (
	TypeQuoteCreated   = "quote.created"
	TypeQuoteUpdated   = "quote.updated"
	TypeQuoteClosed    = "quote.closed"
	TypeQuoteReopened  = "quote.reopened"
	TypeQuoteCancelled = "quote.cancelled"
	TypeQuoteDeleted   = "quote.deleted"
	TypeItemAdded      = "quote.item.added"
	TypeItemUpdated    = "quote.item.updated"
	TypeItemRemoved    = "quote.item.removed"
)

// QuotePayload is the caller-facing representation carried by every event.
type QuotePayload struct {
	Company     string     `json:"company"`
	Branch      string     `json:"branch"`
	Number      int64      `json:"number"`
	Customer    string     `json:"customer"`
	Salesperson string     `json:"salesperson"`
	PriceTable  string     `json:"price_table"`
	User        string     `json:"user"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ItemCount   int        `json:"item_count"`
	Total       int64      `json:"total"`
}

type ItemPayload struct {
	Sequence    int    `json:"sequence"`
	ProductType string `json:"product_type"`
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

// Event is the payload handed to the sink, exactly one per successful
// command, strictly after commit.
type Event struct {
	ID         uuid.UUID    `json:"id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Quote      QuotePayload `json:"quote"`
	Item       *ItemPayload `json:"item,omitempty"`
}

func ForQuote(eventType string, quote *types.Quote) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Quote:      quotePayload(quote),
	}
}

func ForItem(eventType string, quote *types.Quote, item types.QuoteItem) Event {
	evt := ForQuote(eventType, quote)
	evt.Item = &ItemPayload{
		Sequence:    item.Sequence,
		ProductType: item.ProductType,
		ProductCode: item.ProductCode,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal(),
	}
	return evt
}

func quotePayload(q *types.Quote) QuotePayload {
	var total int64
	for _, item := range q.Items {
		total += item.LineTotal()
	}
	return QuotePayload{
		Company:     q.Company,
		Branch:      q.Branch,
		Number:      q.Number,
		Customer:    q.Customer,
		Salesperson: q.Salesperson,
		PriceTable:  q.PriceTable,
		User:        q.UserCode,
		Status:      string(q.Status),
		ExpiresAt:   q.ExpiresAt,
		ItemCount:   len(q.Items),
		Total:       total,
	}
}
