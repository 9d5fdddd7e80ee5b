package quotes

import (
	"fmt"
	"strings"
	"time"
)

// Defaults are the configured fallback reference codes used when a caller
// leaves a reference blank. They come from configuration, never from
// constants in this package.
type Defaults struct {
	Customer    string `yaml:"customer" json:"customer"`
	Salesperson string `yaml:"salesperson" json:"salesperson"`
	PriceTable  string `yaml:"price_table" json:"price_table"`
	User        string `yaml:"user" json:"user"`
}

type CreateInput struct {
	Customer     string
	Salesperson  string
	PriceTable   string
	User         string
	ValidityDays int
}

type UpdateInput struct {
	Customer     string
	Salesperson  string
	PriceTable   string
	User         string
	ValidityDays int
}

// New builds a quote in open status. Blank references fall back to the
// configured defaults; non-blank ones are taken as-is, since existence
// checking belongs to the persistence layer, not here.
func New(company, branch string, in CreateInput, defs Defaults, now time.Time) (*Quote, Result) {
	q := &Quote{
		Company:      strings.TrimSpace(company),
		Branch:       strings.TrimSpace(branch),
		Customer:     fallback(in.Customer, defs.Customer),
		Salesperson:  fallback(in.Salesperson, defs.Salesperson),
		PriceTable:   fallback(in.PriceTable, defs.PriceTable),
		UserCode:     fallback(in.User, defs.User),
		Status:       StatusDraft,
		ValidityDays: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.ValidityDays > 0 {
		q.ValidityDays = in.ValidityDays
		exp := now.AddDate(0, 0, in.ValidityDays)
		q.ExpiresAt = &exp
	}
	res := q.transition(StatusOpen)
	return q, res.Merge(q.Validate())
}

// ApplyUpdate replaces the header references while the quote is editable.
// Validity is recomputed from the creation time, keeping the expiry anchored
// to when the quote was issued.
func (q *Quote) ApplyUpdate(in UpdateInput, defs Defaults, now time.Time) Result {
	if !q.Status.AllowsItemChanges() {
		return Fail(CodeValidation, "status", fmt.Sprintf("quote in status %q cannot be updated", q.Status))
	}
	q.Customer = fallback(in.Customer, defs.Customer)
	q.Salesperson = fallback(in.Salesperson, defs.Salesperson)
	q.PriceTable = fallback(in.PriceTable, defs.PriceTable)
	q.UserCode = fallback(in.User, defs.User)
	if in.ValidityDays > 0 {
		q.ValidityDays = in.ValidityDays
		exp := q.CreatedAt.AddDate(0, 0, in.ValidityDays)
		q.ExpiresAt = &exp
	} else {
		q.ValidityDays = 0
		q.ExpiresAt = nil
	}
	q.UpdatedAt = now
	return q.Validate()
}

// AllowsItemChanges is exposed so the orchestrator can reject item commands
// before making any cross-aggregate call.
func (q *Quote) AllowsItemChanges() bool {
	return q.Status.AllowsItemChanges()
}

// Close finalizes the quote. A quote with no items cannot be closed.
func (q *Quote) Close() Result {
	if len(q.Items) == 0 {
		return Fail(CodeValidation, "quote", "quote has no items and cannot be closed")
	}
	return q.transition(StatusClosed)
}

// Reopen makes a closed quote editable again.
func (q *Quote) Reopen() Result {
	return q.transition(StatusReopened)
}

// Cancel is terminal and allowed from open, reopened and closed.
func (q *Quote) Cancel() Result {
	return q.transition(StatusCancelled)
}

// MarkDeleted records the terminal deleted status. Removing the items first
// is the orchestrator's responsibility.
func (q *Quote) MarkDeleted() Result {
	return q.transition(StatusDeleted)
}

// Item returns the owned item with the given sequence, or nil.
func (q *Quote) Item(sequence int) *QuoteItem {
	for i := range q.Items {
		if q.Items[i].Sequence == sequence {
			return &q.Items[i]
		}
	}
	return nil
}

// AddItem appends a new item value with a pending sequence. The price must
// already be resolved.
func (q *Quote) AddItem(item QuoteItem) Result {
	if !q.Status.AllowsItemChanges() {
		return Fail(CodeValidation, "status", fmt.Sprintf("quote in status %q does not accept item changes", q.Status))
	}
	if res := validateItem(item); !res.Valid() {
		return res
	}
	item.Company = q.Company
	item.Branch = q.Branch
	item.QuoteNumber = q.Number
	q.Items = append(q.Items, item)
	return OK()
}

// ReplaceItem swaps the item carrying the same sequence for the new value.
func (q *Quote) ReplaceItem(item QuoteItem) Result {
	if !q.Status.AllowsItemChanges() {
		return Fail(CodeValidation, "status", fmt.Sprintf("quote in status %q does not accept item changes", q.Status))
	}
	if res := validateItem(item); !res.Valid() {
		return res
	}
	existing := q.Item(item.Sequence)
	if existing == nil {
		return Fail(CodeNotFound, "item", fmt.Sprintf("item %d not found on quote %d", item.Sequence, q.Number))
	}
	item.Company = q.Company
	item.Branch = q.Branch
	item.QuoteNumber = q.Number
	item.CreatedAt = existing.CreatedAt
	*existing = item
	return OK()
}

// RemoveItem drops the item with the given sequence from the collection.
func (q *Quote) RemoveItem(sequence int) Result {
	if !q.Status.AllowsItemChanges() {
		return Fail(CodeValidation, "status", fmt.Sprintf("quote in status %q does not accept item changes", q.Status))
	}
	if len(q.Items) == 0 {
		return Fail(CodeValidation, "quote", "quote has no items to remove")
	}
	for i := range q.Items {
		if q.Items[i].Sequence == sequence {
			q.Items = append(q.Items[:i], q.Items[i+1:]...)
			return OK()
		}
	}
	return Fail(CodeNotFound, "item", fmt.Sprintf("item %d not found on quote %d", sequence, q.Number))
}

// Validate checks the structural invariants and reports every violation,
// not just the first.
func (q *Quote) Validate() Result {
	res := OK()
	if strings.TrimSpace(q.Company) == "" {
		res = res.With(CodeValidation, "company", "company is required")
	}
	if strings.TrimSpace(q.Branch) == "" {
		res = res.With(CodeValidation, "branch", "branch is required")
	}
	if strings.TrimSpace(q.Customer) == "" {
		res = res.With(CodeValidation, "customer", "customer is required")
	}
	if strings.TrimSpace(q.Salesperson) == "" {
		res = res.With(CodeValidation, "salesperson", "salesperson is required")
	}
	if strings.TrimSpace(q.PriceTable) == "" {
		res = res.With(CodeValidation, "price_table", "price table is required")
	}
	if strings.TrimSpace(q.UserCode) == "" {
		res = res.With(CodeValidation, "user", "user is required")
	}
	for _, item := range q.Items {
		res = res.Merge(validateItem(item))
	}
	return res
}

func (q *Quote) transition(next Status) Result {
	if !q.Status.CanTransitionTo(next) {
		return Fail(CodeValidation, "status", fmt.Sprintf("illegal transition from %q to %q", q.Status, next))
	}
	q.Status = next
	return OK()
}

func validateItem(item QuoteItem) Result {
	res := OK()
	if strings.TrimSpace(item.ProductType) == "" || strings.TrimSpace(item.ProductCode) == "" {
		res = res.With(CodeValidation, "product", "product reference is required")
	}
	if item.Quantity <= 0 {
		res = res.With(CodeValidation, "quantity", "quantity must be greater than zero")
	}
	if item.UnitPrice < 0 {
		res = res.With(CodeValidation, "unit_price", "unit price cannot be negative")
	}
	return res
}

func fallback(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
