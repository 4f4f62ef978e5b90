// Package store provides an interface for order and invoice-sequence
// storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Order is the persisted order document. Items are stored inline as JSONB
// so the record keeps the single-document shape the API exposes.
type Order struct {
	ID             uuid.UUID  `json:"_id"`
	UserEmail      string     `json:"user_email"`
	Items          []CartItem `json:"items"`
	Amount         float64    `json:"amount"`
	Status         string     `json:"status"`
	GatewayOrderID string     `json:"order_id"`
	PaymentID      *string    `json:"payment_id,omitempty"`
	InvoiceNumber  *string    `json:"invoice_number,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CartItem is one line of an order.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int32   `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order status vocabulary. Only created -> paid is ever transitioned by
// this service; the remaining states are representable but unreachable.
const (
	StatusCreated   = "created"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusFulfilled = "fulfilled"
)

// CreateOrderParams has everything needed to insert a new order.
type CreateOrderParams struct {
	ID             uuid.UUID
	UserEmail      string
	Items          []CartItem
	Amount         float64
	GatewayOrderID string
}

// MarkPaidParams records a successful payment verification.
type MarkPaidParams struct {
	ID            uuid.UUID
	PaymentID     string
	InvoiceNumber string
}

// OrderStore is an interface for order storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type OrderStore interface {
	// CreateOrder adds a new order with status "created".
	// Returns ErrStorageUnavailable if no database is configured.
	CreateOrder(ctx context.Context, params *CreateOrderParams) (*Order, error)

	// FindByGatewayID retrieves a single order by its gateway order id.
	// Returns ErrOrderNotFound if no order exists with the given id.
	FindByGatewayID(ctx context.Context, gatewayOrderID string) (*Order, error)

	// FindByEmail returns up to limit orders for the given email, newest
	// first. Returns an empty slice if no orders exist.
	FindByEmail(ctx context.Context, email string, limit int32) ([]Order, error)

	// MarkPaid sets status "paid", the payment id and the invoice number.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	MarkPaid(ctx context.Context, params *MarkPaidParams) (*Order, error)
}

// SequenceStore hands out invoice sequence values. The increment and the
// read-back must be a single atomic operation in the backing store so that
// concurrent callers, including other process instances, never observe the
// same value.
type SequenceStore interface {
	NextInvoiceNumber(ctx context.Context) (int64, error)
}

// Diagnostics describes store connectivity for the /test endpoint.
type Diagnostics struct {
	DatabaseName string
	Tables       []string
}

// DiagnosticsStore exposes connectivity introspection.
type DiagnosticsStore interface {
	Diagnostics(ctx context.Context) (*Diagnostics, error)
}
