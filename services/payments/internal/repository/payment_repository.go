package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoteldesk/backend/services/payments/internal/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	FindByID(ctx context.Context, id int64) (*domain.Payment, error)
	FindByReservation(ctx context.Context, reservationID int64) ([]domain.Payment, error)
	// FindByReference looks a payment up by its provider reference
	// (Stripe intent id, PayPal order id, on-site receipt number).
	FindByReference(ctx context.Context, reference string) (*domain.Payment, error)
	Complete(ctx context.Context, id int64, providerState string, payerEmail *string) (*domain.Payment, error)
	Fail(ctx context.Context, id int64, providerState string) (*domain.Payment, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentCols = `id, invoice_id, reservation_id, amount, method, status, reference, provider_state, operator_id, payer_email, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.InvoiceID, &p.ReservationID, &p.Amount, &p.Method, &p.Status,
		&p.Reference, &p.ProviderState, &p.OperatorID, &p.PayerEmail, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	const q = `
		INSERT INTO payments (invoice_id, reservation_id, amount, method, status, reference, provider_state, operator_id, payer_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + paymentCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q,
		p.InvoiceID, p.ReservationID, p.Amount, p.Method, p.Status,
		p.Reference, p.ProviderState, p.OperatorID, p.PayerEmail))
}

func (r *paymentRepository) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, id))
}

func (r *paymentRepository) FindByReservation(ctx context.Context, reservationID int64) ([]domain.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE reservation_id = $1 ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.InvoiceID, &p.ReservationID, &p.Amount, &p.Method, &p.Status,
			&p.Reference, &p.ProviderState, &p.OperatorID, &p.PayerEmail, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE reference = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, reference))
}

func (r *paymentRepository) Complete(ctx context.Context, id int64, providerState string, payerEmail *string) (*domain.Payment, error) {
	const q = `
		UPDATE payments
		SET status = $2, provider_state = $3, payer_email = COALESCE($4, payer_email), updated_at = now()
		WHERE id = $1
		RETURNING ` + paymentCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, id, domain.StatusComplete, providerState, payerEmail))
}

func (r *paymentRepository) Fail(ctx context.Context, id int64, providerState string) (*domain.Payment, error) {
	const q = `
		UPDATE payments
		SET status = $2, provider_state = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + paymentCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, id, domain.StatusFailed, providerState))
}
