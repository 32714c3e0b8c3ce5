package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoteldesk/backend/services/reservations/internal/domain"
)

type InvoiceRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Invoice, error)
	FindByReservation(ctx context.Context, reservationID int64) (*domain.Invoice, error)
	List(ctx context.Context, limit, offset int) ([]domain.Invoice, error)
	UpdateAmount(ctx context.Context, id int64, amount float64) (*domain.Invoice, error)
	// MarkPaid flips the invoice to PAID and its reservation to CONFIRMED
	// in one transaction. Calling it on an already paid invoice is a no-op
	// that still succeeds.
	MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error)
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

const invoiceCols = `id, reservation_id, amount, status, issued_at, updated_at`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.ReservationID, &inv.Amount, &inv.Status, &inv.IssuedAt, &inv.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanInvoice(r.pool.QueryRow(ctx, q, id))
}

func (r *invoiceRepository) FindByReservation(ctx context.Context, reservationID int64) (*domain.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE reservation_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanInvoice(r.pool.QueryRow(ctx, q, reservationID))
}

func (r *invoiceRepository) List(ctx context.Context, limit, offset int) ([]domain.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + invoiceCols + ` FROM invoices ORDER BY issued_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.ReservationID, &inv.Amount, &inv.Status, &inv.IssuedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepository) UpdateAmount(ctx context.Context, id int64, amount float64) (*domain.Invoice, error) {
	const q = `
		UPDATE invoices SET amount = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + invoiceCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanInvoice(r.pool.QueryRow(ctx, q, id, amount))
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const payInvoice = `
		UPDATE invoices SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + invoiceCols

	invoice, err := scanInvoice(tx.QueryRow(ctx, payInvoice, id, domain.InvoicePaid))
	if err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if invoice == nil {
		return nil, nil
	}

	const confirmReservation = `
		UPDATE reservations SET status = $2, updated_at = now()
		WHERE id = $1`

	if _, err := tx.Exec(ctx, confirmReservation, invoice.ReservationID, domain.StatusConfirmed); err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return invoice, nil
}
