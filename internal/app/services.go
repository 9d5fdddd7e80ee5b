package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/meridianerp/quotes-backend/internal/events/bus"
	"github.com/meridianerp/quotes-backend/internal/pdf"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
	"github.com/meridianerp/quotes-backend/internal/services"
)

type Services struct {
	Bus     bus.Bus
	Pricing services.PriceResolver
	Quote   services.QuoteService
	PDF     *pdf.Generator
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("wiring services")

	var eventBus bus.Bus
	if cfg.RedisAddr != "" {
		rb, err := bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			return Services{}, fmt.Errorf("init redis bus: %w", err)
		}
		eventBus = rb
	} else {
		log.Warn("no redis configured, events go to the log bus")
		eventBus = bus.NewLogBus(log)
	}

	pricing := services.NewTablePriceResolver(log, r.Price, cfg.Defaults.PriceTable)
	quote := services.NewQuoteService(db, log, cfg.Defaults, r.Quote, r.QuoteItem, r.QuoteEvent, pricing, eventBus)

	return Services{
		Bus:     eventBus,
		Pricing: pricing,
		Quote:   quote,
		PDF:     pdf.New(),
	}, nil
}
