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

type PostgresCartRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCartRepository(db *pgxpool.Pool) *PostgresCartRepository {
	return &PostgresCartRepository{
		db: db,
	}
}

func (p *PostgresCartRepository) AddMovie(ctx context.Context, userID, movieID int) (*domain.CartItem, error) {
	var item domain.CartItem

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		// DO UPDATE instead of DO NOTHING so RETURNING yields the id of an
		// already existing cart as well
		query := `
			INSERT INTO carts (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id
		`

		var cartID int

		err := tx.QueryRow(ctx, query, userID).Scan(&cartID)
		if err != nil {
			return err
		}

		query = `
			INSERT INTO cart_items (cart_id, movie_id)
			VALUES ($1, $2)
			RETURNING id, cart_id, movie_id, added_at
		`

		err = tx.QueryRow(ctx, query, cartID, movieID).Scan(
			&item.ID,
			&item.CartID,
			&item.MovieID,
			&item.AddedAt,
		)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrMovieAlreadyInCart
			}

			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (p *PostgresCartRepository) GetByUserId(ctx context.Context, userID int) (*domain.Cart, error) {
	query := `
		SELECT id, user_id
		FROM carts
		WHERE user_id = $1
	`

	var cart domain.Cart

	err := p.db.QueryRow(ctx, query, userID).Scan(&cart.ID, &cart.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}

		return nil, err
	}

	items, err := p.retrieveCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	cart.Items = items

	return &cart, nil
}

func (p *PostgresCartRepository) retrieveCartItems(ctx context.Context, cartID int) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.movie_id, ci.added_at, m.id, m.title, m.year, m.price
		FROM cart_items ci
		JOIN movies m ON m.id = ci.movie_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.id
	`

	rows, err := p.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)

	for rows.Next() {
		var item domain.CartItem
		var movie domain.Movie

		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.MovieID,
			&item.AddedAt,
			&movie.ID,
			&movie.Title,
			&movie.Year,
			&movie.Price,
		)

		if err != nil {
			return nil, err
		}

		item.Movie = &movie
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (p *PostgresCartRepository) RemoveMovie(ctx context.Context, userID, movieID int) (*domain.CartItem, error) {
	var item domain.CartItem
	var movie domain.Movie

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var cartID int

		err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrCartNotFound
			}

			return err
		}

		query := `
			DELETE FROM cart_items ci
			USING movies m
			WHERE ci.cart_id = $1 AND ci.movie_id = $2 AND m.id = ci.movie_id
			RETURNING ci.id, ci.cart_id, ci.movie_id, ci.added_at, m.id, m.title, m.year, m.price
		`

		err = tx.QueryRow(ctx, query, cartID, movieID).Scan(
			&item.ID,
			&item.CartID,
			&item.MovieID,
			&item.AddedAt,
			&movie.ID,
			&movie.Title,
			&movie.Year,
			&movie.Price,
		)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrMovieNotInCart
			}

			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	item.Movie = &movie

	return &item, nil
}

func (p *PostgresCartRepository) Delete(ctx context.Context, userID int) error {
	result, err := p.db.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}

	return nil
}
