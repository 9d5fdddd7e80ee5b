package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	repoquotes "github.com/meridianerp/quotes-backend/internal/data/repos/quotes"
	"github.com/meridianerp/quotes-backend/internal/data/repos/testutil"
	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/events"
	"github.com/meridianerp/quotes-backend/internal/pkg/dbctx"
)

var testDefaults = types.Defaults{
	Customer:    "31112",
	Salesperson: "900",
	PriceTable:  "16",
	User:        "system",
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

type countingResolver struct {
	inner PriceResolver
	calls int
}

func (r *countingResolver) Resolve(dbc dbctx.Context, quote *types.Quote, productType, productCode string) (int64, bool, error) {
	r.calls++
	return r.inner.Resolve(dbc, quote, productType, productCode)
}

type testEnv struct {
	db       *gorm.DB
	svc      QuoteService
	bus      *recordingBus
	resolver *countingResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MemoryDB(t)
	log := testutil.Logger(t)

	quoteRepo := repoquotes.NewQuoteRepo(db, log)
	itemRepo := repoquotes.NewQuoteItemRepo(db, log)
	priceRepo := repoquotes.NewPriceRepo(db, log)
	eventRepo := repoquotes.NewQuoteEventRepo(db, log)

	resolver := &countingResolver{inner: NewTablePriceResolver(log, priceRepo, testDefaults.PriceTable)}
	eventBus := &recordingBus{}

	svc := NewQuoteService(db, log, testDefaults, quoteRepo, itemRepo, eventRepo, resolver, eventBus)
	return &testEnv{db: db, svc: svc, bus: eventBus, resolver: resolver}
}

func (e *testEnv) seedPrice(t *testing.T, table, productType, productCode string, price int64) {
	t.Helper()
	testutil.SeedPrice(t, e.db, table, productType, productCode, price)
}

func (e *testEnv) create(t *testing.T, cmd CreateQuote) *types.Quote {
	t.Helper()
	out, err := e.svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !out.Success {
		t.Fatalf("Create failed: %+v", out.Notifications)
	}
	return out.Quote
}

func (e *testEnv) addItem(t *testing.T, ref QuoteRef, productType, productCode string, qty int) *types.Quote {
	t.Helper()
	out, err := e.svc.AddItem(context.Background(), AddQuoteItem{Ref: ref, ProductType: productType, ProductCode: productCode, Quantity: qty})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if !out.Success {
		t.Fatalf("AddItem failed: %+v", out.Notifications)
	}
	return out.Quote
}

func (e *testEnv) eventCount(t *testing.T, eventType string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&types.QuoteEvent{}).Where("type = ?", eventType).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func ref(q *types.Quote) QuoteRef {
	return QuoteRef{Company: q.Company, Branch: q.Branch, Number: q.Number}
}

func TestCreateAppliesConfiguredDefaults(t *testing.T) {
	env := newTestEnv(t)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01", Customer: ""})
	if quote.Customer != "31112" {
		t.Fatalf("Customer=%q, want default %q", quote.Customer, "31112")
	}
	if quote.Number != 1 {
		t.Fatalf("Number=%d, want repository-assigned 1", quote.Number)
	}
	if quote.Status != types.StatusOpen {
		t.Fatalf("Status=%s, want %s", quote.Status, types.StatusOpen)
	}

	if len(env.bus.published) != 1 || env.bus.published[0].Type != events.TypeQuoteCreated {
		t.Fatalf("expected one quote.created event, got %+v", env.bus.published)
	}
	if n := env.eventCount(t, events.TypeQuoteCreated); n != 1 {
		t.Fatalf("event log rows=%d, want 1", n)
	}
}

func TestCreateInvalidIdentityEmitsNothing(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.svc.Create(context.Background(), CreateQuote{Company: "", Branch: ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure")
	}
	if len(out.Notifications) != 2 {
		t.Fatalf("expected both violations surfaced, got %+v", out.Notifications)
	}
	if len(env.bus.published) != 0 {
		t.Fatalf("no event may be published for an aborted command: %+v", env.bus.published)
	}
}

func TestCloseEmptyQuoteFails(t *testing.T) {
	env := newTestEnv(t)
	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})

	out, err := env.svc.Close(context.Background(), ref(quote))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if out.Success {
		t.Fatal("closing an empty quote must fail")
	}
	if out.Notifications[0].Field != "quote" {
		t.Fatalf("field=%q, want %q", out.Notifications[0].Field, "quote")
	}
	if n := env.eventCount(t, events.TypeQuoteClosed); n != 0 {
		t.Fatalf("aborted close wrote %d event rows", n)
	}

	stored, err := env.svc.Get(context.Background(), ref(quote))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != types.StatusOpen {
		t.Fatalf("Status=%s, want unchanged %s", stored.Status, types.StatusOpen)
	}
}

func TestAddItemResolvesPriceFromQuoteTableFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "02", "PR", "P-100", 2000)
	env.seedPrice(t, "16", "PR", "P-100", 1500)
	env.seedPrice(t, "16", "PR", "P-200", 900)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01", PriceTable: "02"})

	got := env.addItem(t, ref(quote), "PR", "P-100", 2)
	if got.Items[0].UnitPrice != 2000 {
		t.Fatalf("UnitPrice=%d, want quote table price 2000", got.Items[0].UnitPrice)
	}
	if got.Items[0].Sequence != 1 {
		t.Fatalf("Sequence=%d, want 1", got.Items[0].Sequence)
	}

	// not on table 02, falls back to the default table
	got = env.addItem(t, ref(quote), "PR", "P-200", 1)
	if got.Items[1].UnitPrice != 900 {
		t.Fatalf("UnitPrice=%d, want default table price 900", got.Items[1].UnitPrice)
	}
	if got.Items[1].Sequence != 2 {
		t.Fatalf("Sequence=%d, want 2", got.Items[1].Sequence)
	}

	if n := env.eventCount(t, events.TypeItemAdded); n != 2 {
		t.Fatalf("item.added event rows=%d, want 2", n)
	}
}

func TestAddItemUnresolvablePrice(t *testing.T) {
	env := newTestEnv(t)
	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})

	out, err := env.svc.AddItem(context.Background(), AddQuoteItem{Ref: ref(quote), ProductType: "PR", ProductCode: "NOPE", Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Notifications[0].Code != types.CodeReferenceInvalid || out.Notifications[0].Field != "price" {
		t.Fatalf("unexpected notification: %+v", out.Notifications)
	}

	var n int64
	if err := env.db.Model(&types.QuoteItem{}).Count(&n).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if n != 0 {
		t.Fatalf("item rows=%d, insertItem must never run on unresolved price", n)
	}
	if len(env.bus.published) != 1 {
		// only the quote.created event from setup
		t.Fatalf("unexpected events: %+v", env.bus.published)
	}
}

func TestAddItemShortCircuitsBeforePricing(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)
	if out, err := env.svc.Close(context.Background(), ref(quote)); err != nil || !out.Success {
		t.Fatalf("Close: %v %+v", err, out.Notifications)
	}

	calls := env.resolver.calls
	out, err := env.svc.AddItem(context.Background(), AddQuoteItem{Ref: ref(quote), ProductType: "PR", ProductCode: "P-1", Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if out.Success {
		t.Fatal("item change on closed quote must fail")
	}
	if env.resolver.calls != calls {
		t.Fatal("pricing collaborator must not be called when item changes are not permitted")
	}
}

func TestUpdateItemMissingSequence(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)
	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})

	calls := env.resolver.calls
	out, err := env.svc.UpdateItem(context.Background(), UpdateQuoteItem{Ref: ref(quote), Sequence: 5, ProductType: "PR", ProductCode: "P-1", Quantity: 1})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if out.Success || out.Notifications[0].Code != types.CodeNotFound {
		t.Fatalf("expected not_found, got %+v", out.Notifications)
	}
	if env.resolver.calls != calls {
		t.Fatal("pricing must not run for a missing item")
	}
}

func TestUpdateItemRecomputesPrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)
	env.seedPrice(t, "16", "PR", "P-2", 300)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)

	out, err := env.svc.UpdateItem(context.Background(), UpdateQuoteItem{Ref: ref(quote), Sequence: 1, ProductType: "PR", ProductCode: "P-2", Quantity: 4})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if !out.Success {
		t.Fatalf("UpdateItem failed: %+v", out.Notifications)
	}
	it := out.Quote.Items[0]
	if it.ProductCode != "P-2" || it.Quantity != 4 || it.UnitPrice != 300 {
		t.Fatalf("item not updated: %+v", it)
	}
	if n := env.eventCount(t, events.TypeItemUpdated); n != 1 {
		t.Fatalf("item.updated event rows=%d, want 1", n)
	}
}

func TestRemoveItemMissingSequenceIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)

	out, err := env.svc.RemoveItem(context.Background(), RemoveQuoteItem{Ref: ref(quote), Sequence: 9})
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Notifications[0].Code != types.CodeNotFound {
		t.Fatalf("code=%s, want %s", out.Notifications[0].Code, types.CodeNotFound)
	}
}

func TestRemoveItemEmitsItemRemoved(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)

	out, err := env.svc.RemoveItem(context.Background(), RemoveQuoteItem{Ref: ref(quote), Sequence: 1})
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !out.Success {
		t.Fatalf("RemoveItem failed: %+v", out.Notifications)
	}

	last := env.bus.published[len(env.bus.published)-1]
	if last.Type != events.TypeItemRemoved {
		t.Fatalf("event type=%s, want %s", last.Type, events.TypeItemRemoved)
	}
	if last.Item == nil || last.Item.Sequence != 1 {
		t.Fatalf("removed item payload missing: %+v", last.Item)
	}
}

func TestDeleteRemovesItemsThenQuote(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)
	env.seedPrice(t, "16", "PR", "P-2", 200)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)
	env.addItem(t, ref(quote), "PR", "P-2", 2)

	out, err := env.svc.Delete(context.Background(), ref(quote))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !out.Success {
		t.Fatalf("Delete failed: %+v", out.Notifications)
	}

	var items, quotes int64
	if err := env.db.Model(&types.QuoteItem{}).Count(&items).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if err := env.db.Model(&types.Quote{}).Count(&quotes).Error; err != nil {
		t.Fatalf("count quotes: %v", err)
	}
	if items != 0 || quotes != 0 {
		t.Fatalf("items=%d quotes=%d after delete, want 0/0", items, quotes)
	}
	if n := env.eventCount(t, events.TypeQuoteDeleted); n != 1 {
		t.Fatalf("quote.deleted event rows=%d, want 1", n)
	}

	deleted := env.bus.published[len(env.bus.published)-1]
	if deleted.Type != events.TypeQuoteDeleted || deleted.Quote.Status != string(types.StatusDeleted) {
		t.Fatalf("unexpected final event: %+v", deleted)
	}
}

func TestCancelClosedQuote(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)
	if out, err := env.svc.Close(context.Background(), ref(quote)); err != nil || !out.Success {
		t.Fatalf("Close: %v %+v", err, out.Notifications)
	}

	out, err := env.svc.Cancel(context.Background(), ref(quote))
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !out.Success {
		t.Fatalf("Cancel failed: %+v", out.Notifications)
	}
	if out.Quote.Status != types.StatusCancelled {
		t.Fatalf("Status=%s, want %s", out.Quote.Status, types.StatusCancelled)
	}

	last := env.bus.published[len(env.bus.published)-1]
	if last.Type != events.TypeQuoteCancelled || last.Quote.Number != quote.Number {
		t.Fatalf("unexpected cancel event: %+v", last)
	}
}

func TestReopenOnlyFromClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})

	out, err := env.svc.Reopen(context.Background(), ref(quote))
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if out.Success {
		t.Fatal("reopen from open must fail")
	}

	env.addItem(t, ref(quote), "PR", "P-1", 1)
	if out, err := env.svc.Close(context.Background(), ref(quote)); err != nil || !out.Success {
		t.Fatalf("Close: %v %+v", err, out.Notifications)
	}

	out, err = env.svc.Reopen(context.Background(), ref(quote))
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if !out.Success || out.Quote.Status != types.StatusReopened {
		t.Fatalf("Reopen: %+v %+v", out.Quote, out.Notifications)
	}

	last := env.bus.published[len(env.bus.published)-1]
	if last.Type != events.TypeQuoteReopened || last.Quote.Number != quote.Number {
		t.Fatalf("unexpected reopen event: %+v", last)
	}

	// reopened quotes accept items again
	env.addItem(t, ref(quote), "PR", "P-1", 3)
}

func TestCommandNotFound(t *testing.T) {
	env := newTestEnv(t)

	missing := QuoteRef{Company: "01", Branch: "01", Number: 404}
	out, err := env.svc.Close(context.Background(), missing)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if out.Success || out.Notifications[0].Code != types.CodeNotFound {
		t.Fatalf("expected not_found, got %+v", out.Notifications)
	}
}

func TestUpdateQuoteHeader(t *testing.T) {
	env := newTestEnv(t)
	quote := env.create(t, CreateQuote{Company: "01", Branch: "01", Customer: "70021"})

	out, err := env.svc.Update(context.Background(), UpdateQuote{Ref: ref(quote), Customer: "", Salesperson: "104", ValidityDays: 5})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !out.Success {
		t.Fatalf("Update failed: %+v", out.Notifications)
	}
	if out.Quote.Customer != "31112" || out.Quote.Salesperson != "104" {
		t.Fatalf("header not updated: %+v", out.Quote)
	}
	if out.Quote.ExpiresAt == nil {
		t.Fatal("expected expiry from validity days")
	}
	if n := env.eventCount(t, events.TypeQuoteUpdated); n != 1 {
		t.Fatalf("quote.updated event rows=%d, want 1", n)
	}
}

type failingEventRepo struct{}

func (failingEventRepo) Append(dbctx.Context, *types.QuoteEvent) error {
	return errors.New("event log unavailable")
}

func (failingEventRepo) ListForQuote(dbctx.Context, string, string, int64) ([]*types.QuoteEvent, error) {
	return nil, errors.New("event log unavailable")
}

func TestPersistenceFailureAbortsTransaction(t *testing.T) {
	db := testutil.MemoryDB(t)
	log := testutil.Logger(t)

	quoteRepo := repoquotes.NewQuoteRepo(db, log)
	itemRepo := repoquotes.NewQuoteItemRepo(db, log)
	priceRepo := repoquotes.NewPriceRepo(db, log)
	eventBus := &recordingBus{}

	svc := NewQuoteService(db, log, testDefaults, quoteRepo, itemRepo, failingEventRepo{},
		NewTablePriceResolver(log, priceRepo, testDefaults.PriceTable), eventBus)

	out, err := svc.Create(context.Background(), CreateQuote{Company: "01", Branch: "01"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Success {
		t.Fatal("persistence failure must abort the command")
	}
	if out.Notifications[0].Code != types.CodePersistence {
		t.Fatalf("code=%s, want %s", out.Notifications[0].Code, types.CodePersistence)
	}
	if len(eventBus.published) != 0 {
		t.Fatalf("aborted command published events: %+v", eventBus.published)
	}

	// the quote insert from the same transaction must have rolled back
	var n int64
	if err := db.Model(&types.Quote{}).Count(&n).Error; err != nil {
		t.Fatalf("count quotes: %v", err)
	}
	if n != 0 {
		t.Fatalf("quote rows=%d after rollback, want 0", n)
	}
}

func TestNumbersAssignedPerBranch(t *testing.T) {
	env := newTestEnv(t)

	for i := 1; i <= 3; i++ {
		q := env.create(t, CreateQuote{Company: "01", Branch: "01"})
		if q.Number != int64(i) {
			t.Fatalf("Number=%d, want %d", q.Number, i)
		}
	}
	q := env.create(t, CreateQuote{Company: "01", Branch: "02"})
	if q.Number != 1 {
		t.Fatalf("Number=%d, want per-branch numbering to restart at 1", q.Number)
	}
}

func TestGetMissingQuote(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.svc.Get(context.Background(), QuoteRef{Company: "01", Branch: "01", Number: 7})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get: expected nil, got %+v", got)
	}
}

func TestEventLogOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrice(t, "16", "PR", "P-1", 100)

	quote := env.create(t, CreateQuote{Company: "01", Branch: "01"})
	env.addItem(t, ref(quote), "PR", "P-1", 1)
	if out, err := env.svc.Close(context.Background(), ref(quote)); err != nil || !out.Success {
		t.Fatalf("Close: %v %+v", err, out.Notifications)
	}

	eventRepo := repoquotes.NewQuoteEventRepo(env.db, testutil.Logger(t))
	logged, err := eventRepo.ListForQuote(dbctx.Context{Ctx: context.Background()}, quote.Company, quote.Branch, quote.Number)
	if err != nil {
		t.Fatalf("ListForQuote: %v", err)
	}
	want := []string{events.TypeQuoteCreated, events.TypeItemAdded, events.TypeQuoteClosed}
	if len(logged) != len(want) {
		t.Fatalf("logged %d events, want %d: %+v", len(logged), len(want), logged)
	}
	for i, evt := range logged {
		if evt.Type != want[i] {
			t.Fatalf("event[%d]=%s, want %s", i, evt.Type, want[i])
		}
	}
	if fmt.Sprintf("%d", logged[0].QuoteNumber) != "1" {
		t.Fatalf("event quote number=%d, want 1", logged[0].QuoteNumber)
	}
}
