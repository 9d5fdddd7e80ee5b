package quotes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Quote is the aggregate root. Identity (company, branch, number) is assigned
// by the repository on insert and never changes afterwards.
type Quote struct {
	Company string `gorm:"primaryKey;size:8;column:company" json:"company"`
	Branch  string `gorm:"primaryKey;size:8;column:branch" json:"branch"`
	Number  int64  `gorm:"primaryKey;autoIncrement:false;column:number" json:"number"`

	Customer    string `gorm:"not null;column:customer" json:"customer"`
	Salesperson string `gorm:"not null;column:salesperson" json:"salesperson"`
	PriceTable  string `gorm:"not null;column:price_table" json:"price_table"`
	UserCode    string `gorm:"not null;column:user_code" json:"user_code"`

	Status       Status     `gorm:"not null;size:16;column:status" json:"status"`
	ValidityDays int        `gorm:"column:validity_days" json:"validity_days"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`

	// Items are owned by the aggregate and stored in their own table; the
	// repository loads them alongside the root.
	Items []QuoteItem `gorm:"-" json:"items"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Quote) TableName() string { return "quote" }

// QuoteItem is a line entry owned by exactly one quote. Sequence is unique
// within the quote and assigned by the repository on first insert.
type QuoteItem struct {
	Company     string `gorm:"primaryKey;size:8;column:company" json:"company"`
	Branch      string `gorm:"primaryKey;size:8;column:branch" json:"branch"`
	QuoteNumber int64  `gorm:"primaryKey;autoIncrement:false;column:quote_number" json:"quote_number"`
	Sequence    int    `gorm:"primaryKey;autoIncrement:false;column:sequence" json:"sequence"`

	ProductType string `gorm:"not null;size:8;column:product_type" json:"product_type"`
	ProductCode string `gorm:"not null;column:product_code" json:"product_code"`
	Quantity    int    `gorm:"not null;column:quantity" json:"quantity"`

	// UnitPrice is in cents, resolved by the pricing collaborator before the
	// item ever reaches the aggregate.
	UnitPrice int64 `gorm:"not null;column:unit_price" json:"unit_price"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (QuoteItem) TableName() string { return "quote_item" }

func (i QuoteItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// PriceTableEntry backs the pricing collaborator. A product may appear in any
// number of tables with different prices.
type PriceTableEntry struct {
	PriceTable  string `gorm:"primaryKey;column:price_table" json:"price_table"`
	ProductType string `gorm:"primaryKey;size:8;column:product_type" json:"product_type"`
	ProductCode string `gorm:"primaryKey;column:product_code" json:"product_code"`

	UnitPrice int64 `gorm:"not null;column:unit_price" json:"unit_price"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PriceTableEntry) TableName() string { return "price_table_entry" }

// QuoteEvent is the durable event-log row, written in the same transaction as
// the state change it describes. Bus publication happens after commit.
type QuoteEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Company     string         `gorm:"not null;size:8;column:company" json:"company"`
	Branch      string         `gorm:"not null;size:8;column:branch" json:"branch"`
	QuoteNumber int64          `gorm:"not null;column:quote_number" json:"quote_number"`
	Type        string         `gorm:"not null;index;column:type" json:"type"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (QuoteEvent) TableName() string { return "quote_event" }
