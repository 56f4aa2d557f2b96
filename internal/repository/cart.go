package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// AddCartItem добавляет товар в корзину пользователя. Если позиция уже есть,
// количество увеличивается на указанное значение.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error) {
	var item model.CartItem
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cart (user_id, product_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity
		 RETURNING id, user_id, product_id, quantity`,
		userID, productID, quantity,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return &item, nil
}

// GetCartByUser возвращает содержимое корзины пользователя.
func (r *PostgresRepository) GetCartByUser(ctx context.Context, userID int64) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, product_id, quantity FROM cart WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// SetCartQuantity задаёт новое количество для позиции корзины.
func (r *PostgresRepository) SetCartQuantity(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error) {
	var item model.CartItem
	err := r.pool.QueryRow(ctx,
		`UPDATE cart SET quantity = $3
		 WHERE user_id = $1 AND product_id = $2
		 RETURNING id, user_id, product_id, quantity`,
		userID, productID, quantity,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return &item, nil
}

// DeleteCartItem удаляет позицию из корзины пользователя.
func (r *PostgresRepository) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM cart WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Checkout оформляет заказ из корзины пользователя в одной транзакции:
// блокирует строки корзины, фиксирует текущие цены, создаёт заказ и его
// позиции и очищает корзину. Либо видны все изменения, либо ни одного.
// Наполнение корзины проверяется уже внутри транзакции, поэтому из двух
// конкурентных оформлений второе получит ErrEmptyCart.
func (r *PostgresRepository) Checkout(ctx context.Context, userID int64) (int64, error) {
	var orderID int64
	err := r.withRetry(ctx, func() error {
		var txErr error
		orderID, txErr = r.checkoutTx(ctx, userID)
		return txErr
	})
	return orderID, err
}

func (r *PostgresRepository) checkoutTx(ctx context.Context, userID int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строки корзины до конца транзакции.
	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity FROM cart WHERE user_id = $1 ORDER BY product_id FOR UPDATE`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("select cart for update: %w", err)
	}

	type cartLine struct {
		productID int64
		quantity  int64
	}

	var lines []cartLine
	for rows.Next() {
		var l cartLine
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows error: %w", err)
	}

	if len(lines) == 0 {
		return 0, ErrEmptyCart
	}

	// Цены фиксируются здесь и больше не перечитываются.
	prices := make(map[int64]int64, len(lines))
	var totalCents int64
	for _, l := range lines {
		var price int64
		err := tx.QueryRow(ctx, `SELECT price FROM products WHERE id = $1`, l.productID).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("%w: %d", ErrProductNotFound, l.productID)
			}
			return 0, fmt.Errorf("get product price: %w", err)
		}
		prices[l.productID] = price
		totalCents += l.quantity * price
	}

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, total_amount, status) VALUES ($1, $2, $3) RETURNING id`,
		userID, totalCents, string(model.OrderStatusPaid),
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, l := range lines {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase) VALUES ($1, $2, $3, $4)`,
			orderID, l.productID, l.quantity, prices[l.productID],
		)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return orderID, nil
}

// GetOrdersByUser возвращает заказы пользователя вместе с позициями.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, total_amount, status, created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range orders {
		items, err := r.getOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// GetOrderByID возвращает заказ пользователя по идентификатору. Чужой или
// несуществующий заказ даёт ErrOrderNotFound.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_amount, status, created_at
		 FROM orders
		 WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	)

	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	items, err := r.getOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.TotalCents, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func (r *PostgresRepository) getOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, price_at_purchase FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}
