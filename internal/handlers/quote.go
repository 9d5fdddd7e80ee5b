package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meridianerp/quotes-backend/internal/pdf"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
	"github.com/meridianerp/quotes-backend/internal/services"
)

type QuoteHandler struct {
	log          *logger.Logger
	quoteService services.QuoteService
	documents    *pdf.Generator
}

func NewQuoteHandler(log *logger.Logger, qsvc services.QuoteService, documents *pdf.Generator) *QuoteHandler {
	return &QuoteHandler{
		log:          log.With("handler", "QuoteHandler"),
		quoteService: qsvc,
		documents:    documents,
	}
}

type quoteBody struct {
	Customer     string `json:"customer"`
	Salesperson  string `json:"salesperson"`
	PriceTable   string `json:"price_table"`
	User         string `json:"user"`
	ValidityDays int    `json:"validity_days"`
}

type createQuoteBody struct {
	Company string `json:"company"`
	Branch  string `json:"branch"`
	quoteBody
}

type itemBody struct {
	ProductType string `json:"product_type"`
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
}

// POST /api/quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var body createQuoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	out, err := h.quoteService.Create(c.Request.Context(), services.CreateQuote{
		Company:      body.Company,
		Branch:       body.Branch,
		Customer:     body.Customer,
		Salesperson:  body.Salesperson,
		PriceTable:   body.PriceTable,
		User:         body.User,
		ValidityDays: body.ValidityDays,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOutcome(c, out, http.StatusCreated)
}

// GET /api/quotes/:company/:branch/:number
func (h *QuoteHandler) Get(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	quote, err := h.quoteService.Get(c.Request.Context(), ref)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if quote == nil {
		RespondError(c, http.StatusNotFound, "not_found",
			fmt.Errorf("quote %d not found for %s/%s", ref.Number, ref.Company, ref.Branch))
		return
	}
	RespondOK(c, quote)
}

// PUT /api/quotes/:company/:branch/:number
func (h *QuoteHandler) Update(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var body quoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	out, err := h.quoteService.Update(c.Request.Context(), services.UpdateQuote{
		Ref:          ref,
		Customer:     body.Customer,
		Salesperson:  body.Salesperson,
		PriceTable:   body.PriceTable,
		User:         body.User,
		ValidityDays: body.ValidityDays,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOutcome(c, out, http.StatusOK)
}

// POST /api/quotes/:company/:branch/:number/close
func (h *QuoteHandler) Close(c *gin.Context) {
	h.transition(c, h.quoteService.Close)
}

// POST /api/quotes/:company/:branch/:number/reopen
func (h *QuoteHandler) Reopen(c *gin.Context) {
	h.transition(c, h.quoteService.Reopen)
}

// POST /api/quotes/:company/:branch/:number/cancel
func (h *QuoteHandler) Cancel(c *gin.Context) {
	h.transition(c, h.quoteService.Cancel)
}

// DELETE /api/quotes/:company/:branch/:number
func (h *QuoteHandler) Delete(c *gin.Context) {
	h.transition(c, h.quoteService.Delete)
}

// POST /api/quotes/:company/:branch/:number/items
func (h *QuoteHandler) AddItem(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var body itemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	out, err := h.quoteService.AddItem(c.Request.Context(), services.AddQuoteItem{
		Ref:         ref,
		ProductType: body.ProductType,
		ProductCode: body.ProductCode,
		Quantity:    body.Quantity,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOutcome(c, out, http.StatusCreated)
}

// PUT /api/quotes/:company/:branch/:number/items/:sequence
func (h *QuoteHandler) UpdateItem(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	seq, ok := h.sequence(c)
	if !ok {
		return
	}
	var body itemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	out, err := h.quoteService.UpdateItem(c.Request.Context(), services.UpdateQuoteItem{
		Ref:         ref,
		Sequence:    seq,
		ProductType: body.ProductType,
		ProductCode: body.ProductCode,
		Quantity:    body.Quantity,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOutcome(c, out, http.StatusOK)
}

// DELETE /api/quotes/:company/:branch/:number/items/:sequence
func (h *QuoteHandler) RemoveItem(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	seq, ok := h.sequence(c)
	if !ok {
		return
	}
	out, err := h.quoteService.RemoveItem(c.Request.Context(), services.RemoveQuoteItem{
		Ref:      ref,
		Sequence: seq,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOutcome(c, out, http.StatusOK)
}

// GET /api/quotes/:company/:branch/:number/pdf
func (h *QuoteHandler) ExportPDF(c *gin.Context) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	quote, err := h.quoteService.Get(c.Request.Context(), ref)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if quote == nil {
		RespondError(c, http.StatusNotFound, "not_found",
			fmt.Errorf("quote %d not found for %s/%s", ref.Number, ref.Company, ref.Branch))
		return
	}
	raw, err := h.documents.Generate(quote)
	if err != nil {
		h.log.Error("pdf generation failed", "number", ref.Number, "error", err)
		RespondError(c, http.StatusInternalServerError, "pdf_failed", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=quote-%d.pdf", ref.Number))
	c.Data(http.StatusOK, "application/pdf", raw)
}

// transition runs a command that takes only the quote reference.
func (h *QuoteHandler) transition(c *gin.Context, cmd func(context.Context, services.QuoteRef) (services.Outcome, error)) {
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	out, err := cmd(c.Request.Context(), ref)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOutcome(c, out, http.StatusOK)
}

func (h *QuoteHandler) ref(c *gin.Context) (services.QuoteRef, bool) {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_number", errors.New("quote number must be an integer"))
		return services.QuoteRef{}, false
	}
	return services.QuoteRef{
		Company: c.Param("company"),
		Branch:  c.Param("branch"),
		Number:  number,
	}, true
}

func (h *QuoteHandler) sequence(c *gin.Context) (int, bool) {
	seq, err := strconv.Atoi(c.Param("sequence"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_sequence", errors.New("item sequence must be an integer"))
		return 0, false
	}
	return seq, true
}
