// Package errors provides custom error types for storefront operations.
package errors

import "errors"

// ErrStorageUnavailable is returned when the database is not configured or
// cannot be reached. Handlers surface it as a 500 with a generic message.
var ErrStorageUnavailable = errors.New("database not configured")

var ErrOrderNotFound = errors.New("order not found")

var ErrCreateOrder = errors.New("failed to create order")
var ErrMarkOrderPaid = errors.New("failed to mark order paid")

var ErrFailedToFindOrder = errors.New("failed to find order")
var ErrFailedToFindUserOrders = errors.New("failed to find user orders")

var ErrAllocateInvoiceNumber = errors.New("failed to allocate invoice number")

var ErrPaymentRejected = errors.New("payment verification rejected")
