package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

const paymentColumns = `id, user_id, order_id, status, amount, external_payment_id, created_at, updated_at`

// Create persists the payment with its line items in one transaction. A
// unique violation, either on the external payment id or on the single open
// attempt per order, surfaces as domain.ErrEditConflict.
func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO payments (user_id, order_id, status, amount, external_payment_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			payment.UserID,
			payment.OrderID,
			payment.Status,
			payment.Amount,
			payment.ExternalPaymentID,
		).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrEditConflict
			}

			return err
		}

		rows := make([][]any, 0, len(payment.Items))
		for _, item := range payment.Items {
			rows = append(rows, []any{
				payment.ID,
				item.OrderItemID,
				item.PriceAtPayment,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"payment_items"},
			[]string{"payment_id", "order_item_id", "price_at_payment"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func (p *PostgresPaymentRepository) GetByExternalId(ctx context.Context, externalID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE external_payment_id = $1
	`

	return p.getOne(ctx, query, externalID)
}

// GetSettledByOrderId returns the most recently settled payment of the
// order, where settled means successful or refunded. Refund flows use it to
// tell "nothing to refund" apart from "already refunded".
func (p *PostgresPaymentRepository) GetSettledByOrderId(ctx context.Context, orderID int) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1 AND status IN ('successful', 'refunded')
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`

	return p.getOne(ctx, query, orderID)
}

func (p *PostgresPaymentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.OrderID,
		&payment.Status,
		&payment.Amount,
		&payment.ExternalPaymentID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	itemsByPayment, err := p.retrieveItemsForPayments(ctx, []int{payment.ID})
	if err != nil {
		return nil, err
	}

	payment.Items = itemsByPayment[payment.ID]

	return &payment, nil
}

func (p *PostgresPaymentRepository) GetAllByUserId(ctx context.Context, userID int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return p.getAll(ctx, query, userID)
}

func (p *PostgresPaymentRepository) GetAllByOrderId(ctx context.Context, orderID int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC
	`

	return p.getAll(ctx, query, orderID)
}

func (p *PostgresPaymentRepository) getAll(ctx context.Context, query string, arg any) ([]*domain.Payment, error) {
	rows, err := p.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)

	for rows.Next() {
		var payment domain.Payment

		err := rows.Scan(
			&payment.ID,
			&payment.UserID,
			&payment.OrderID,
			&payment.Status,
			&payment.Amount,
			&payment.ExternalPaymentID,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		payments = append(payments, &payment)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(payments) == 0 {
		return payments, nil
	}

	paymentIDs := make([]int, 0, len(payments))
	for _, payment := range payments {
		paymentIDs = append(paymentIDs, payment.ID)
	}

	itemsByPayment, err := p.retrieveItemsForPayments(ctx, paymentIDs)
	if err != nil {
		return nil, err
	}

	for _, payment := range payments {
		payment.Items = itemsByPayment[payment.ID]
	}

	return payments, nil
}

func (p *PostgresPaymentRepository) CountByOrderId(ctx context.Context, orderID int) (int, error) {
	var count int

	err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE order_id = $1`, orderID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// UpdateStatus moves the payment to status, guarded by the domain transition
// table at the database level. domain.ErrEditConflict reports that the
// payment was not in any status the transition allows.
func (p *PostgresPaymentRepository) UpdateStatus(ctx context.Context, id int, status domain.PaymentStatus) (*domain.Payment, error) {
	query := `
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING ` + paymentColumns + `
	`

	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, id, status, transitionSources(status)).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.OrderID,
		&payment.Status,
		&payment.Amount,
		&payment.ExternalPaymentID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEditConflict
		}

		return nil, err
	}

	itemsByPayment, err := p.retrieveItemsForPayments(ctx, []int{payment.ID})
	if err != nil {
		return nil, err
	}

	payment.Items = itemsByPayment[payment.ID]

	return &payment, nil
}

// MarkSucceeded settles the payment identified by externalID and marks its
// order as paid, in one transaction. The order row is locked first so that
// concurrent success claims for the same order serialize; only one payment
// per order can ever reach successful.
//
// The order transition is guarded on pending: an order canceled in the
// meantime keeps its status, while the payment still records the captured
// funds. Callers compare the order afterwards and escalate the mismatch.
func (p *PostgresPaymentRepository) MarkSucceeded(ctx context.Context, externalID string) (*domain.Payment, error) {
	var payment domain.Payment

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			SELECT id
			FROM orders
			WHERE id = (SELECT order_id FROM payments WHERE external_payment_id = $1)
			FOR UPDATE
		`

		var orderID int

		err := tx.QueryRow(ctx, query, externalID).Scan(&orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrRecordNotFound
			}

			return err
		}

		query = `
			SELECT external_payment_id
			FROM payments
			WHERE order_id = $1 AND status = 'successful'
			LIMIT 1
		`

		var successfulExternalID *string

		err = tx.QueryRow(ctx, query, orderID).Scan(&successfulExternalID)
		switch {
		case err == nil:
			if successfulExternalID != nil && *successfulExternalID == externalID {
				// duplicate delivery, the payment is already settled
				return p.scanByExternalId(ctx, tx, externalID, &payment)
			}

			return domain.ErrEditConflict
		case errors.Is(err, pgx.ErrNoRows):
			// the successful slot for this order is free
		default:
			return err
		}

		query = `
			UPDATE payments
			SET status = 'successful', updated_at = now()
			WHERE external_payment_id = $1 AND status = ANY($2)
			RETURNING ` + paymentColumns + `
		`

		err = tx.QueryRow(ctx, query, externalID, transitionSources(domain.PaymentStatusSuccessful)).Scan(
			&payment.ID,
			&payment.UserID,
			&payment.OrderID,
			&payment.Status,
			&payment.Amount,
			&payment.ExternalPaymentID,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrEditConflict
			}

			return err
		}

		_, err = tx.Exec(ctx, `UPDATE orders SET status = 'paid' WHERE id = $1 AND status = 'pending'`, orderID)

		return err
	})

	if err != nil {
		return nil, err
	}

	itemsByPayment, err := p.retrieveItemsForPayments(ctx, []int{payment.ID})
	if err != nil {
		return nil, err
	}

	payment.Items = itemsByPayment[payment.ID]

	return &payment, nil
}

func (p *PostgresPaymentRepository) scanByExternalId(ctx context.Context, tx pgx.Tx, externalID string, payment *domain.Payment) error {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE external_payment_id = $1
	`

	return tx.QueryRow(ctx, query, externalID).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.OrderID,
		&payment.Status,
		&payment.Amount,
		&payment.ExternalPaymentID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
}

func (p *PostgresPaymentRepository) retrieveItemsForPayments(ctx context.Context, paymentIDs []int) (map[int][]domain.PaymentItem, error) {
	query := `
		SELECT id, payment_id, order_item_id, price_at_payment
		FROM payment_items
		WHERE payment_id = ANY($1)
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, paymentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByPayment := make(map[int][]domain.PaymentItem)

	for rows.Next() {
		var item domain.PaymentItem

		err := rows.Scan(
			&item.ID,
			&item.PaymentID,
			&item.OrderItemID,
			&item.PriceAtPayment,
		)
		if err != nil {
			return nil, err
		}

		itemsByPayment[item.PaymentID] = append(itemsByPayment[item.PaymentID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return itemsByPayment, nil
}

func transitionSources(target domain.PaymentStatus) []string {
	sources := domain.PaymentTransitionSources(target)

	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, string(s))
	}

	return out
}
