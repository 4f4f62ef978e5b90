// Package service provides the implementation of storefront business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	trierrors "github.com/trilabs/tri-backend/internal/errors"
	"github.com/trilabs/tri-backend/internal/invoice"
	"github.com/trilabs/tri-backend/internal/metrics"
	"github.com/trilabs/tri-backend/internal/payment"
	"github.com/trilabs/tri-backend/internal/store"
)

// Currency is fixed; the store only trades in INR.
const Currency = "INR"

// listLimit caps how many orders a single listing returns.
const listLimit = 50

// OrderService defines the methods for managing orders.
// It abstracts the underlying business logic and data access.
type OrderService interface {
	// Create adds a new order with status "created" and a derived gateway
	// order id. Returns error if the order cannot be created.
	Create(ctx context.Context, order OrderCreateDto) (*OrderCreatedDto, error)

	// VerifyPayment runs the verification strategy for an order, allocates
	// an invoice number and marks the order paid.
	// Returns ErrOrderNotFound if the gateway order id is unknown.
	VerifyPayment(ctx context.Context, req VerifyPaymentDto) (*PaymentVerifiedDto, error)

	// FindByEmail returns the user's orders, newest first, at most 50.
	// Returns an empty slice if no orders exist.
	FindByEmail(ctx context.Context, email string) ([]OrderDto, error)

	// InvoiceByGatewayID assembles the data for the HTML invoice.
	// Returns ErrOrderNotFound if the gateway order id is unknown.
	InvoiceByGatewayID(ctx context.Context, gatewayOrderID string) (*invoice.Document, error)
}

// Service implements OrderService.
type Service struct {
	orderStore store.OrderStore
	allocator  *invoice.Allocator
	verifier   payment.Verifier
	logger     *slog.Logger
}

// NewService creates a new instance of OrderService.
func NewService(orderStore store.OrderStore, allocator *invoice.Allocator, verifier payment.Verifier, logger *slog.Logger) *Service {
	return &Service{
		orderStore: orderStore,
		allocator:  allocator,
		verifier:   verifier,
		logger:     logger.With("component", "service"),
	}
}

// CartItemDto is one submitted line item.
type CartItemDto struct {
	ProductID string  `json:"product_id" validate:"required"`
	Title     string  `json:"title" validate:"required"`
	Quantity  int32   `json:"quantity" validate:"required,min=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
type OrderCreateDto struct {
	UserEmail string        `json:"user_email" validate:"required,email"`
	Items     []CartItemDto `json:"items" validate:"required,gt=0,dive"`
}

// OrderCreatedDto is the response to order creation.
type OrderCreatedDto struct {
	ID             string  `json:"_id"`
	GatewayOrderID string  `json:"order_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
}

// VerifyPaymentDto represents the data transfer object for payment verification.
type VerifyPaymentDto struct {
	GatewayOrderID string `json:"order_id" validate:"required"`
	PaymentID      string `json:"payment_id,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

// PaymentVerifiedDto is the response to a successful verification.
type PaymentVerifiedDto struct {
	Status        string `json:"status"`
	InvoiceNumber string `json:"invoice_number"`
}

// OrderDto is the full order document as exposed by the listing endpoint.
type OrderDto struct {
	ID             string        `json:"_id"`
	UserEmail      string        `json:"user_email"`
	Items          []CartItemDto `json:"items"`
	Amount         float64       `json:"amount"`
	Status         string        `json:"status"`
	GatewayOrderID string        `json:"order_id"`
	PaymentID      string        `json:"payment_id,omitempty"`
	InvoiceNumber  string        `json:"invoice_number,omitempty"`
	CreatedAt      string        `json:"created_at"`
	UpdatedAt      string        `json:"updated_at"`
}

// Create computes the order total, derives the gateway order id from the
// internal id and inserts the order with status "created".
func (s *Service) Create(ctx context.Context, order OrderCreateDto) (*OrderCreatedDto, error) {
	items := make([]store.CartItem, len(order.Items))
	var amount float64
	for i, item := range order.Items {
		items[i] = store.CartItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		amount += item.Price * float64(item.Quantity)
	}

	id := uuid.New()
	params := store.CreateOrderParams{
		ID:             id,
		UserEmail:      order.UserEmail,
		Items:          items,
		Amount:         amount,
		GatewayOrderID: GatewayOrderID(id),
	}
	created, err := s.orderStore.CreateOrder(ctx, &params)
	if err != nil {
		return nil, err
	}
	metrics.OrdersCreated.Inc()

	return &OrderCreatedDto{
		ID:             created.ID.String(),
		GatewayOrderID: created.GatewayOrderID,
		Amount:         created.Amount,
		Currency:       Currency,
		Status:         created.Status,
	}, nil
}

// VerifyPayment looks up the order, runs the verifier, then allocates an
// invoice number and marks the order paid. Allocation happens strictly
// before the status update: if numbering fails the order is never marked
// paid. If the status update fails after a successful allocation the
// number is burned, which the gap-tolerant sequence allows.
//
// Verifying an already-paid order allocates a fresh number and overwrites
// the previous one. That matches the behavior this service replaces;
// callers wanting idempotence must check the status first.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyPaymentDto) (*PaymentVerifiedDto, error) {
	order, err := s.orderStore.FindByGatewayID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	evidence := payment.Evidence{PaymentID: req.PaymentID, Signature: req.Signature}
	if err := s.verifier.Verify(ctx, order, evidence); err != nil {
		return nil, fmt.Errorf("%w: %w", trierrors.ErrPaymentRejected, err)
	}

	invoiceNumber, err := s.allocator.Next(ctx)
	if err != nil {
		return nil, err
	}

	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = DefaultPaymentID(order.ID)
	}

	if _, err := s.orderStore.MarkPaid(ctx, &store.MarkPaidParams{
		ID:            order.ID,
		PaymentID:     paymentID,
		InvoiceNumber: invoiceNumber,
	}); err != nil {
		return nil, err
	}
	metrics.InvoicesIssued.Inc()
	s.logger.InfoContext(ctx, "Order marked paid",
		"order_id", req.GatewayOrderID,
		"invoice_number", invoiceNumber,
	)

	return &PaymentVerifiedDto{Status: store.StatusPaid, InvoiceNumber: invoiceNumber}, nil
}

// FindByEmail retrieves the user's orders as OrderDtos, newest first.
func (s *Service) FindByEmail(ctx context.Context, email string) ([]OrderDto, error) {
	orders, err := s.orderStore.FindByEmail(ctx, email, listLimit)
	if err != nil {
		return nil, err
	}
	dtos := make([]OrderDto, len(orders))
	for i := range orders {
		dtos[i] = *toDto(&orders[i])
	}
	return dtos, nil
}

// InvoiceByGatewayID builds the renderable invoice document. Orders not
// yet paid render with the number "PENDING".
func (s *Service) InvoiceByGatewayID(ctx context.Context, gatewayOrderID string) (*invoice.Document, error) {
	order, err := s.orderStore.FindByGatewayID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}

	number := invoice.PendingNumber
	if order.InvoiceNumber != nil && *order.InvoiceNumber != "" {
		number = *order.InvoiceNumber
	}
	lines := make([]invoice.Line, len(order.Items))
	for i, item := range order.Items {
		lines[i] = invoice.Line{
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    item.Price,
			Amount:   item.Price * float64(item.Quantity),
		}
	}
	return &invoice.Document{
		Number:    number,
		UserEmail: order.UserEmail,
		Date:      time.Now().Format("2006-01-02"),
		Items:     lines,
		Total:     order.Amount,
	}, nil
}

// GatewayOrderID derives the synthetic gateway order reference from the
// internal id: "order_" plus the last 8 characters of the id string.
func GatewayOrderID(id uuid.UUID) string {
	return "order_" + suffix(id.String(), 8)
}

// DefaultPaymentID derives the fallback payment reference when the client
// supplies none: "pay_" plus the last 6 characters of the internal id.
func DefaultPaymentID(id uuid.UUID) string {
	return "pay_" + suffix(id.String(), 6)
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// toDto converts a store.Order to an OrderDto.
func toDto(order *store.Order) *OrderDto {
	items := make([]CartItemDto, len(order.Items))
	for i, item := range order.Items {
		items[i] = CartItemDto{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	dto := &OrderDto{
		ID:             order.ID.String(),
		UserEmail:      order.UserEmail,
		Items:          items,
		Amount:         order.Amount,
		Status:         order.Status,
		GatewayOrderID: order.GatewayOrderID,
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      order.UpdatedAt.Format(time.RFC3339),
	}
	if order.PaymentID != nil {
		dto.PaymentID = *order.PaymentID
	}
	if order.InvoiceNumber != nil {
		dto.InvoiceNumber = *order.InvoiceNumber
	}
	return dto
}
