package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// ProductFilter описывает параметры выборки каталога.
type ProductFilter struct {
	Category      string
	MinPriceCents *int64
	MaxPriceCents *int64
	SortBy        string
	Offset        int
	Limit         int
}

// CreateProduct добавляет товар в каталог и возвращает его идентификатор.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock, category, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

// GetProductByID возвращает товар по идентификатору.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price, stock, category, image_url FROM products WHERE id = $1`,
		id,
	)

	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// UpdateProduct перезаписывает все поля товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, stock = $5, category = $6, image_url = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct удаляет товар из каталога.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListProducts возвращает страницу каталога по фильтру и общее число
// товаров, подходящих под фильтр.
func (r *PostgresRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, int64, error) {
	var (
		conds []string
		args  []any
	)

	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, "category = $"+strconv.Itoa(len(args)))
	}
	if f.MinPriceCents != nil {
		args = append(args, *f.MinPriceCents)
		conds = append(conds, "price >= $"+strconv.Itoa(len(args)))
	}
	if f.MaxPriceCents != nil {
		args = append(args, *f.MaxPriceCents)
		conds = append(conds, "price <= $"+strconv.Itoa(len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	// Поле сортировки ограничено известными именами колонок.
	orderBy := "id"
	switch f.SortBy {
	case "price":
		orderBy = "price"
	case "name":
		orderBy = "name"
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(
		`SELECT id, name, description, price, stock, category, image_url
		 FROM products%s
		 ORDER BY %s
		 LIMIT $%d OFFSET $%d`,
		where, orderBy, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// GetAllProducts возвращает весь каталог без фильтров.
func (r *PostgresRepository) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, price, stock, category, image_url FROM products ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// SearchProducts ищет товары по подстроке имени без учёта регистра.
func (r *PostgresRepository) SearchProducts(ctx context.Context, keyword string) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, price, stock, category, image_url
		 FROM products
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY id`,
		keyword,
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
