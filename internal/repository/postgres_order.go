package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
)

type PostgresOrderRepository struct {
	db *pgxpool.Pool
}

func NewPostgresOrderRepository(db *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db: db,
	}
}

// Create persists the order with its frozen line items and consumes the cart
// it was built from, all in one transaction.
func (p *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order, cartID int) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (user_id, status, total_amount)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`

		err := tx.QueryRow(ctx, query, order.UserID, order.Status, order.TotalAmount).
			Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(order.Items))
		for _, item := range order.Items {
			rows = append(rows, []any{
				order.ID,
				item.MovieID,
				item.PriceAtOrder,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"order_items"},
			[]string{"order_id", "movie_id", "price_at_order"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)

		return err
	})
}

func (p *PostgresOrderRepository) GetById(ctx context.Context, id int) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order

	err := p.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	itemsByOrder, err := p.retrieveItemsForOrders(ctx, []int{order.ID})
	if err != nil {
		return nil, err
	}

	order.Items = itemsByOrder[order.ID]

	return &order, nil
}

func (p *PostgresOrderRepository) GetAllByUserId(ctx context.Context, userID int) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := p.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)

	for rows.Next() {
		var order domain.Order

		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		orders = append(orders, &order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	err = p.attachItems(ctx, orders)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (p *PostgresOrderRepository) GetAll(ctx context.Context, filters domain.OrderFilters) ([]*domain.Order, *domain.Metadata, error) {
	query := `
		SELECT COUNT(*) OVER(), id, user_id, status, total_amount, created_at
		FROM orders
		WHERE ($1::int IS NULL OR user_id = $1)
			AND ($2::text IS NULL OR status = $2)
			AND ($3::timestamptz IS NULL OR created_at >= $3)
			AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`

	var status *string
	if filters.Status != nil {
		s := string(*filters.Status)
		status = &s
	}

	rows, err := p.db.Query(
		ctx,
		query,
		filters.UserID,
		status,
		filters.DateFrom,
		filters.DateTo,
		filters.Limit(),
		filters.Offset(),
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	totalRecords := 0

	for rows.Next() {
		var order domain.Order

		err := rows.Scan(
			&totalRecords,
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		orders = append(orders, &order)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	err = p.attachItems(ctx, orders)
	if err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, filters.Page, filters.PageSize)

	return orders, metadata, nil
}

// GetBlockedMovieIds returns the subset of movieIDs that already belong to a
// paid or pending order of the user. One query regardless of cart size.
func (p *PostgresOrderRepository) GetBlockedMovieIds(ctx context.Context, userID int, movieIDs []int) ([]int, error) {
	if len(movieIDs) == 0 {
		return []int{}, nil
	}

	query := `
		SELECT DISTINCT oi.movie_id
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1
			AND o.status IN ('paid', 'pending')
			AND oi.movie_id = ANY($2)
	`

	rows, err := p.db.Query(ctx, query, userID, movieIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocked := make([]int, 0)

	for rows.Next() {
		var movieID int

		if err := rows.Scan(&movieID); err != nil {
			return nil, err
		}

		blocked = append(blocked, movieID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return blocked, nil
}

// UpdateStatus moves the order from one status to another. It reports
// domain.ErrEditConflict when the order is no longer in the expected from
// status, so callers can detect concurrent transitions.
func (p *PostgresOrderRepository) UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $3
		WHERE id = $1 AND status = $2
	`

	result, err := p.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}

func (p *PostgresOrderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]int, 0, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
	}

	itemsByOrder, err := p.retrieveItemsForOrders(ctx, orderIDs)
	if err != nil {
		return err
	}

	for _, order := range orders {
		order.Items = itemsByOrder[order.ID]
	}

	return nil
}

func (p *PostgresOrderRepository) retrieveItemsForOrders(ctx context.Context, orderIDs []int) (map[int][]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, movie_id, price_at_order
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByOrder := make(map[int][]domain.OrderItem)

	for rows.Next() {
		var item domain.OrderItem

		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MovieID,
			&item.PriceAtOrder,
		)
		if err != nil {
			return nil, err
		}

		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return itemsByOrder, nil
}
