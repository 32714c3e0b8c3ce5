package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoteldesk/backend/services/reservations/internal/domain"
)

type ReservationRepository interface {
	CreateWithInvoice(ctx context.Context, res *domain.Reservation, amount float64) (*domain.Reservation, *domain.Invoice, error)
	FindByID(ctx context.Context, id int64) (*domain.Reservation, error)
	List(ctx context.Context, clientID *int64, limit, offset int) ([]domain.Reservation, error)
	Update(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Reservation, error)
	Delete(ctx context.Context, id int64) error
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const reservationCols = `id, client_id, room_id, check_in, check_out, status, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(
		&res.ID, &res.ClientID, &res.RoomID, &res.CheckIn, &res.CheckOut,
		&res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateWithInvoice persists the reservation and its invoice in one
// transaction. A reservation never exists without an invoice.
func (r *reservationRepository) CreateWithInvoice(ctx context.Context, res *domain.Reservation, amount float64) (*domain.Reservation, *domain.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertReservation = `
		INSERT INTO reservations (client_id, room_id, check_in, check_out, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + reservationCols

	created, err := scanReservation(tx.QueryRow(ctx, insertReservation,
		res.ClientID, res.RoomID, res.CheckIn, res.CheckOut, domain.StatusConfirmed))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	const insertInvoice = `
		INSERT INTO invoices (reservation_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING ` + invoiceCols

	invoice, err := scanInvoice(tx.QueryRow(ctx, insertInvoice,
		created.ID, amount, domain.InvoiceIssued))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit: %w", err)
	}
	return created, invoice, nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanReservation(r.pool.QueryRow(ctx, q, id))
}

func (r *reservationRepository) List(ctx context.Context, clientID *int64, limit, offset int) ([]domain.Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if clientID != nil {
		const q = `SELECT ` + reservationCols + ` FROM reservations WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.pool.Query(ctx, q, *clientID, limit, offset)
	} else {
		const q = `SELECT ` + reservationCols + ` FROM reservations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.pool.Query(ctx, q, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID, &res.ClientID, &res.RoomID, &res.CheckIn, &res.CheckOut,
			&res.Status, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	const q = `
		UPDATE reservations
		SET room_id = $2, check_in = $3, check_out = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanReservation(r.pool.QueryRow(ctx, q, res.ID, res.RoomID, res.CheckIn, res.CheckOut))
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Reservation, error) {
	const q = `
		UPDATE reservations SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanReservation(r.pool.QueryRow(ctx, q, id, status))
}

// Delete removes a reservation. The invoice row goes with it through the
// ON DELETE CASCADE on invoices.reservation_id.
func (r *reservationRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM reservations WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
