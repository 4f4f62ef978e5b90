package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	trierrors "github.com/trilabs/tri-backend/internal/errors"
)

// sequenceID is the fixed key of the singleton counter row; exactly one
// row ever exists.
const sequenceID = "seq"

// PgStore implements OrderStore, SequenceStore and DiagnosticsStore using
// PostgreSQL as the data store. The pool may be nil: the service boots
// without a database and every call then reports ErrStorageUnavailable.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new store over the given connection pool. A nil
// pool yields a store that is permanently unavailable.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const orderColumns = `id, user_email, items, amount, status, gateway_order_id, payment_id, invoice_number, created_at, updated_at`

func (p *PgStore) CreateOrder(ctx context.Context, params *CreateOrderParams) (*Order, error) {
	if p.db == nil {
		return nil, trierrors.ErrStorageUnavailable
	}
	row := p.db.QueryRow(ctx, `
		INSERT INTO orders (id, user_email, items, amount, status, gateway_order_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		params.ID, params.UserEmail, params.Items, params.Amount, StatusCreated, params.GatewayOrderID,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", trierrors.ErrCreateOrder, err)
	}
	return order, nil
}

func (p *PgStore) FindByGatewayID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	if p.db == nil {
		return nil, trierrors.ErrStorageUnavailable
	}
	row := p.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE gateway_order_id = $1`,
		gatewayOrderID,
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trierrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %w", trierrors.ErrFailedToFindOrder, err)
	}
	return order, nil
}

func (p *PgStore) FindByEmail(ctx context.Context, email string, limit int32) ([]Order, error) {
	if p.db == nil {
		return nil, trierrors.ErrStorageUnavailable
	}
	rows, err := p.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_email = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		email, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", trierrors.ErrFailedToFindUserOrders, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", trierrors.ErrFailedToFindUserOrders, err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", trierrors.ErrFailedToFindUserOrders, err)
	}
	return orders, nil
}

func (p *PgStore) MarkPaid(ctx context.Context, params *MarkPaidParams) (*Order, error) {
	if p.db == nil {
		return nil, trierrors.ErrStorageUnavailable
	}
	row := p.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_id = $3, invoice_number = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		params.ID, StatusPaid, params.PaymentID, params.InvoiceNumber,
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trierrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %w", trierrors.ErrMarkOrderPaid, err)
	}
	return order, nil
}

// NextInvoiceNumber atomically increments the singleton counter and returns
// the post-increment value. The upsert creates the row on first use, so a
// fresh database yields 1. The whole read-modify-write is one statement;
// Postgres serializes concurrent callers on the row, which is what makes
// the sequence safe across horizontally scaled instances.
func (p *PgStore) NextInvoiceNumber(ctx context.Context) (int64, error) {
	if p.db == nil {
		return 0, trierrors.ErrStorageUnavailable
	}
	var n int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO invoice_sequence (id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (id) DO UPDATE
		SET last_number = invoice_sequence.last_number + 1
		RETURNING last_number`,
		sequenceID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", trierrors.ErrAllocateInvoiceNumber, err)
	}
	return n, nil
}

// Diagnostics reports the connected database name and its public tables.
func (p *PgStore) Diagnostics(ctx context.Context) (*Diagnostics, error) {
	if p.db == nil {
		return nil, trierrors.ErrStorageUnavailable
	}
	var d Diagnostics
	if err := p.db.QueryRow(ctx, `SELECT current_database()`).Scan(&d.DatabaseName); err != nil {
		return nil, fmt.Errorf("failed to query database name: %w", err)
	}
	rows, err := p.db.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		d.Tables = append(d.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return &d, nil
}

// Ping checks database connectivity.
func (p *PgStore) Ping(ctx context.Context) error {
	if p.db == nil {
		return trierrors.ErrStorageUnavailable
	}
	return p.db.Ping(ctx)
}

// scanOrder reads one order row. Items come back as JSONB and pgx
// unmarshals them straight into the slice.
func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.UserEmail,
		&o.Items,
		&o.Amount,
		&o.Status,
		&o.GatewayOrderID,
		&o.PaymentID,
		&o.InvoiceNumber,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
