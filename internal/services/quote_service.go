package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/meridianerp/quotes-backend/internal/data/repos"
	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/events"
	"github.com/meridianerp/quotes-backend/internal/events/bus"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

// errAbort rolls the command transaction back while keeping the outcome a
// business failure rather than an infrastructure error.
var errAbort = errors.New("command aborted")

// QuoteRef identifies a quote aggregate.
type QuoteRef struct {
	Company string
	Branch  string
	Number  int64
}

type CreateQuote struct {
	Company      string
	Branch       string
	Customer     string
	Salesperson  string
	PriceTable   string
	User         string
	ValidityDays int
}

type UpdateQuote struct {
	Ref          QuoteRef
	Customer     string
	Salesperson  string
	PriceTable   string
	User         string
	ValidityDays int
}

type AddQuoteItem struct {
	Ref         QuoteRef
	ProductType string
	ProductCode string
	Quantity    int
}

type UpdateQuoteItem struct {
	Ref         QuoteRef
	Sequence    int
	ProductType string
	ProductCode string
	Quantity    int
}

type RemoveQuoteItem struct {
	Ref      QuoteRef
	Sequence int
}

// Outcome is what every command returns: a single success flag plus the full
// notification sequence. Callers inspect notifications, not error types.
type Outcome struct {
	Success       bool                 `json:"success"`
	Notifications []types.Notification `json:"notifications"`
	Quote         *types.Quote         `json:"quote,omitempty"`
}

// QuoteService is the transactional shell around the quote aggregate: one
// transaction per command, one mutation per transaction, one event per
// successful command.
type QuoteService interface {
	Create(ctx context.Context, cmd CreateQuote) (Outcome, error)
	Update(ctx context.Context, cmd UpdateQuote) (Outcome, error)
	Close(ctx context.Context, ref QuoteRef) (Outcome, error)
	Reopen(ctx context.Context, ref QuoteRef) (Outcome, error)
	Cancel(ctx context.Context, ref QuoteRef) (Outcome, error)
	Delete(ctx context.Context, ref QuoteRef) (Outcome, error)
	AddItem(ctx context.Context, cmd AddQuoteItem) (Outcome, error)
	UpdateItem(ctx context.Context, cmd UpdateQuoteItem) (Outcome, error)
	RemoveItem(ctx context.Context, cmd RemoveQuoteItem) (Outcome, error)
	Get(ctx context.Context, ref QuoteRef) (*types.Quote, error)
}

type quoteService struct {
	db       *gorm.DB
	log      *logger.Logger
	defaults types.Defaults
	quotes   repos.QuoteRepo
	items    repos.QuoteItemRepo
	eventLog repos.QuoteEventRepo
	pricing  PriceResolver
	bus      bus.Bus
	tracer   trace.Tracer
	now      func() time.Time
}

func NewQuoteService(
	db *gorm.DB,
	baseLog *logger.Logger,
	defaults types.Defaults,
	quotes repos.QuoteRepo,
	items repos.QuoteItemRepo,
	eventLog repos.QuoteEventRepo,
	pricing PriceResolver,
	eventBus bus.Bus,
) QuoteService {
	return &quoteService{
		db:       db,
		log:      baseLog.With("service", "QuoteService"),
		defaults: defaults,
		quotes:   quotes,
		items:    items,
		eventLog: eventLog,
		pricing:  pricing,
		bus:      eventBus,
		tracer:   otel.Tracer("quotes-backend/services"),
		now:      time.Now,
	}
}

func (s *quoteService) Create(ctx context.Context, cmd CreateQuote) (Outcome, error) {
	return s.run(ctx, "QuoteService.Create", func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, res := types.NewQuote(cmd.Company, cmd.Branch, types.CreateInput{
			Customer:     cmd.Customer,
			Salesperson:  cmd.Salesperson,
			PriceTable:   cmd.PriceTable,
			User:         cmd.User,
			ValidityDays: cmd.ValidityDays,
		}, s.defaults, s.now().UTC())
		if !res.Valid() {
			return s.abort(out, res)
		}
		if err := s.quotes.Insert(dbc, quote); err != nil {
			return s.abortPersistence(out, "quote", "could not persist quote", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForQuote(events.TypeQuoteCreated, quote))
	})
}

func (s *quoteService) Update(ctx context.Context, cmd UpdateQuote) (Outcome, error) {
	return s.run(ctx, "QuoteService.Update", func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, evt, err := s.load(dbc, out, cmd.Ref)
		if err != nil {
			return evt, err
		}
		res := quote.ApplyUpdate(types.UpdateInput{
			Customer:     cmd.Customer,
			Salesperson:  cmd.Salesperson,
			PriceTable:   cmd.PriceTable,
			User:         cmd.User,
			ValidityDays: cmd.ValidityDays,
		}, s.defaults, s.now().UTC())
		if !res.Valid() {
			return s.abort(out, res)
		}
		if err := s.quotes.Update(dbc, quote); err != nil {
			return s.abortPersistence(out, "quote", "could not persist quote", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForQuote(events.TypeQuoteUpdated, quote))
	})
}

func (s *quoteService) Close(ctx context.Context, ref QuoteRef) (Outcome, error) {
	return s.transitionCommand(ctx, "QuoteService.Close", ref, events.TypeQuoteClosed, (*types.Quote).Close)
}

func (s *quoteService) Reopen(ctx context.Context, ref QuoteRef) (Outcome, error) {
	return s.transitionCommand(ctx, "QuoteService.Reopen", ref, events.TypeQuoteReopened, (*types.Quote).Reopen)
}

func (s *quoteService) Cancel(ctx context.Context, ref QuoteRef) (Outcome, error) {
	return s.transitionCommand(ctx, "QuoteService.Cancel", ref, events.TypeQuoteCancelled, (*types.Quote).Cancel)
}

// transitionCommand is the shared protocol for close/reopen/cancel: the
// aggregate decides, the repository persists, the event log records.
func (s *quoteService) transitionCommand(
	ctx context.Context,
	op string,
	ref QuoteRef,
	eventType string,
	mutate func(*types.Quote) types.Result,
) (Outcome, error) {
	return s.run(ctx, op, func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, evt, err := s.load(dbc, out, ref)
		if err != nil {
			return evt, err
		}
		res := mutate(quote)
		if !res.Valid() {
			return s.abort(out, res)
		}
		quote.UpdatedAt = s.now().UTC()
		if err := s.quotes.Update(dbc, quote); err != nil {
			return s.abortPersistence(out, "quote", "could not persist quote", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForQuote(eventType, quote))
	})
}

func (s *quoteService) Delete(ctx context.Context, ref QuoteRef) (Outcome, error) {
	return s.run(ctx, "QuoteService.Delete", func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, evt, err := s.load(dbc, out, ref)
		if err != nil {
			return evt, err
		}
		res := quote.MarkDeleted()
		if !res.Valid() {
			return s.abort(out, res)
		}
		// every item has to go before the root does
		for i := range quote.Items {
			if err := s.items.Delete(dbc, &quote.Items[i]); err != nil {
				return s.abortPersistence(out, "item", "could not remove quote item", err)
			}
		}
		quote.Items = nil
		if err := s.quotes.Delete(dbc, quote); err != nil {
			return s.abortPersistence(out, "quote", "could not remove quote", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForQuote(events.TypeQuoteDeleted, quote))
	})
}

func (s *quoteService) AddItem(ctx context.Context, cmd AddQuoteItem) (Outcome, error) {
	return s.run(ctx, "QuoteService.AddItem", func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, evt, err := s.load(dbc, out, cmd.Ref)
		if err != nil {
			return evt, err
		}
		// guard before the pricing call so a non-editable quote never
		// reaches the collaborator
		if !quote.AllowsItemChanges() {
			return s.abort(out, types.Fail(types.CodeValidation, "status",
				fmt.Sprintf("quote in status %q does not accept item changes", quote.Status)))
		}
		price, evt, err := s.resolvePrice(dbc, out, quote, cmd.ProductType, cmd.ProductCode)
		if err != nil {
			return evt, err
		}
		now := s.now().UTC()
		item := types.QuoteItem{
			ProductType: cmd.ProductType,
			ProductCode: cmd.ProductCode,
			Quantity:    cmd.Quantity,
			UnitPrice:   price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if res := quote.AddItem(item); !res.Valid() {
			return s.abort(out, res)
		}
		if res := quote.Validate(); !res.Valid() {
			return s.abort(out, res)
		}
		stored := &quote.Items[len(quote.Items)-1]
		if err := s.items.Insert(dbc, stored); err != nil {
			return s.abortPersistence(out, "item", "could not persist quote item", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForItem(events.TypeItemAdded, quote, *stored))
	})
}

func (s *quoteService) UpdateItem(ctx context.Context, cmd UpdateQuoteItem) (Outcome, error) {
	return s.run(ctx, "QuoteService.UpdateItem", func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, evt, err := s.load(dbc, out, cmd.Ref)
		if err != nil {
			return evt, err
		}
		if !quote.AllowsItemChanges() {
			return s.abort(out, types.Fail(types.CodeValidation, "status",
				fmt.Sprintf("quote in status %q does not accept item changes", quote.Status)))
		}
		if quote.Item(cmd.Sequence) == nil {
			return s.abort(out, types.Fail(types.CodeNotFound, "item",
				fmt.Sprintf("item %d not found on quote %d", cmd.Sequence, quote.Number)))
		}
		price, evt, err := s.resolvePrice(dbc, out, quote, cmd.ProductType, cmd.ProductCode)
		if err != nil {
			return evt, err
		}
		item := types.QuoteItem{
			Sequence:    cmd.Sequence,
			ProductType: cmd.ProductType,
			ProductCode: cmd.ProductCode,
			Quantity:    cmd.Quantity,
			UnitPrice:   price,
			UpdatedAt:   s.now().UTC(),
		}
		if res := quote.ReplaceItem(item); !res.Valid() {
			return s.abort(out, res)
		}
		if res := quote.Validate(); !res.Valid() {
			return s.abort(out, res)
		}
		if err := s.items.Update(dbc, quote.Item(cmd.Sequence)); err != nil {
			return s.abortPersistence(out, "item", "could not persist quote item", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForItem(events.TypeItemUpdated, quote, *quote.Item(cmd.Sequence)))
	})
}

func (s *quoteService) RemoveItem(ctx context.Context, cmd RemoveQuoteItem) (Outcome, error) {
	return s.run(ctx, "QuoteService.RemoveItem", func(dbc dbctx.Context, out *Outcome) (events.Event, error) {
		quote, evt, err := s.load(dbc, out, cmd.Ref)
		if err != nil {
			return evt, err
		}
		if !quote.AllowsItemChanges() {
			return s.abort(out, types.Fail(types.CodeValidation, "status",
				fmt.Sprintf("quote in status %q does not accept item changes", quote.Status)))
		}
		target := quote.Item(cmd.Sequence)
		if target == nil {
			return s.abort(out, types.Fail(types.CodeNotFound, "item",
				fmt.Sprintf("item %d not found on quote %d", cmd.Sequence, quote.Number)))
		}
		removed := *target
		if res := quote.RemoveItem(cmd.Sequence); !res.Valid() {
			return s.abort(out, res)
		}
		if err := s.items.Delete(dbc, &removed); err != nil {
			return s.abortPersistence(out, "item", "could not remove quote item", err)
		}
		out.Quote = quote
		return s.stage(dbc, out, events.ForItem(events.TypeItemRemoved, quote, removed))
	})
}

// Get is a plain read outside any command transaction.
func (s *quoteService) Get(ctx context.Context, ref QuoteRef) (*types.Quote, error) {
	return s.quotes.Find(dbctx.Context{Ctx: ctx}, ref.Company, ref.Branch, ref.Number)
}

// run owns the command transaction. The closure performs load, guard,
// mutate, validate and persist, and returns the single event describing the
// completed operation; the event reaches the bus only after commit.
func (s *quoteService) run(
	ctx context.Context,
	op string,
	fn func(dbc dbctx.Context, out *Outcome) (events.Event, error),
) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	var out Outcome
	var evt events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		evt, err = fn(dbctx.Context{Ctx: ctx, Tx: tx}, &out)
		return err
	})
	if err != nil {
		if errors.Is(err, errAbort) {
			span.SetAttributes(attribute.Bool("command.success", false))
			return out, nil
		}
		s.log.Error("command failed", "op", op, "error", err)
		return Outcome{}, err
	}

	out.Success = true
	span.SetAttributes(attribute.Bool("command.success", true))
	s.publish(ctx, evt)
	return out, nil
}

func (s *quoteService) load(dbc dbctx.Context, out *Outcome, ref QuoteRef) (*types.Quote, events.Event, error) {
	quote, err := s.quotes.Find(dbc, ref.Company, ref.Branch, ref.Number)
	if err != nil {
		evt, aerr := s.abortPersistence(out, "quote", "could not load quote", err)
		return nil, evt, aerr
	}
	if quote == nil {
		evt, aerr := s.abort(out, types.Fail(types.CodeNotFound, "quote",
			fmt.Sprintf("quote %d not found for %s/%s", ref.Number, ref.Company, ref.Branch)))
		return nil, evt, aerr
	}
	return quote, events.Event{}, nil
}

func (s *quoteService) resolvePrice(dbc dbctx.Context, out *Outcome, quote *types.Quote, productType, productCode string) (int64, events.Event, error) {
	price, ok, err := s.pricing.Resolve(dbc, quote, productType, productCode)
	if err != nil {
		return 0, events.Event{}, err
	}
	if !ok {
		evt, aerr := s.abort(out, types.Fail(types.CodeReferenceInvalid, "price",
			fmt.Sprintf("no price for product %s/%s on table %s", productType, productCode, quote.PriceTable)))
		return 0, evt, aerr
	}
	return price, events.Event{}, nil
}

// stage writes the event-log row inside the transaction; the row commits or
// rolls back together with the state change it describes.
func (s *quoteService) stage(dbc dbctx.Context, out *Outcome, evt events.Event) (events.Event, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return s.abortPersistence(out, "event", "could not encode event", err)
	}
	row := &types.QuoteEvent{
		ID:          evt.ID,
		Company:     evt.Quote.Company,
		Branch:      evt.Quote.Branch,
		QuoteNumber: evt.Quote.Number,
		Type:        evt.Type,
		Payload:     datatypes.JSON(payload),
		CreatedAt:   evt.OccurredAt,
	}
	if err := s.eventLog.Append(dbc, row); err != nil {
		return s.abortPersistence(out, "event", "could not persist event", err)
	}
	return evt, nil
}

func (s *quoteService) abort(out *Outcome, res types.Result) (events.Event, error) {
	out.Notifications = res.Notifications
	return events.Event{}, errAbort
}

func (s *quoteService) abortPersistence(out *Outcome, field, message string, err error) (events.Event, error) {
	s.log.Error("persistence failure", "field", field, "error", err)
	return s.abort(out, types.Fail(types.CodePersistence, field, message))
}

func (s *quoteService) publish(ctx context.Context, evt events.Event) {
	if s.bus == nil || evt.Type == "" {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.log.Warn("event publish failed", "type", evt.Type, "error", err)
	}
}
