package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
)

const retailerColumns = `id, phone, shop_name, address, status, created_at, last_active_at`

func scanRetailer(row pgx.Row) (*model.Retailer, error) {
	var (
		r      model.Retailer
		status string
	)
	if err := row.Scan(&r.ID, &r.Phone, &r.ShopName, &r.Address, &status, &r.CreatedAt, &r.LastActiveAt); err != nil {
		return nil, err
	}
	r.Status = model.RetailerStatus(status)
	return &r, nil
}

// CreateRetailer регистрирует магазин.
func (r *PostgresRepository) CreateRetailer(ctx context.Context, phone, shopName, address string) (*model.Retailer, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO retailers (phone, shop_name, address, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+retailerColumns,
		phone, shopName, address, string(model.RetailerStatusActive),
	)
	ret, err := scanRetailer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrRetailerExists, phone)
		}
		return nil, fmt.Errorf("create retailer: %w", err)
	}
	return ret, nil
}

// GetRetailer возвращает магазин по идентификатору.
func (r *PostgresRepository) GetRetailer(ctx context.Context, id int64) (*model.Retailer, error) {
	ret, err := scanRetailer(r.pool.QueryRow(ctx,
		`SELECT `+retailerColumns+` FROM retailers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRetailerNotFound
		}
		return nil, fmt.Errorf("get retailer: %w", err)
	}
	return ret, nil
}

// GetRetailerByPhone возвращает магазин по номеру телефона владельца.
func (r *PostgresRepository) GetRetailerByPhone(ctx context.Context, phone string) (*model.Retailer, error) {
	ret, err := scanRetailer(r.pool.QueryRow(ctx,
		`SELECT `+retailerColumns+` FROM retailers WHERE phone = $1`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRetailerNotFound
		}
		return nil, fmt.Errorf("get retailer by phone: %w", err)
	}
	return ret, nil
}

// UpdateRetailerProfile меняет название и адрес магазина.
func (r *PostgresRepository) UpdateRetailerProfile(ctx context.Context, id int64, shopName, address string) (*model.Retailer, error) {
	ret, err := scanRetailer(r.pool.QueryRow(ctx,
		`UPDATE retailers SET shop_name = $2, address = $3
		 WHERE id = $1
		 RETURNING `+retailerColumns,
		id, shopName, address,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRetailerNotFound
		}
		return nil, fmt.Errorf("update retailer: %w", err)
	}
	return ret, nil
}

// SetRetailerStatus включает или отключает магазин.
func (r *PostgresRepository) SetRetailerStatus(ctx context.Context, id int64, status model.RetailerStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE retailers SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("set retailer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRetailerNotFound
	}
	return nil
}

// TouchRetailer отмечает время последней активности магазина.
func (r *PostgresRepository) TouchRetailer(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE retailers SET last_active_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("touch retailer: %w", err)
	}
	return nil
}

// RetailerTotals возвращает агрегаты по всем магазинам. Задолженность магазина
// считается как сумма задолженностей его покупателей, каждая ограничена нулём снизу.
func (r *PostgresRepository) RetailerTotals(ctx context.Context) ([]ledger.RetailerTotals, error) {
	rows, err := r.pool.Query(ctx,
		`WITH accounts AS (
		     SELECT c.retailer_id,
		            c.id AS customer_id,
		            COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'credit'), 0)::BIGINT  AS credits,
		            COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'payment'), 0)::BIGINT AS payments,
		            COUNT(e.id) FILTER (WHERE e.type = 'credit')                 AS credit_count
		     FROM customers c
		     LEFT JOIN ledger_events e ON e.customer_id = c.id AND e.retailer_id = c.retailer_id
		     GROUP BY c.retailer_id, c.id
		 )
		 SELECT r.id, r.phone, r.shop_name, r.address, r.status, r.created_at, r.last_active_at,
		        COUNT(a.customer_id),
		        COALESCE(SUM(a.credit_count), 0)::BIGINT,
		        COALESCE(SUM(GREATEST(a.credits - a.payments, 0)), 0)::BIGINT
		 FROM retailers r
		 LEFT JOIN accounts a ON a.retailer_id = r.id
		 GROUP BY r.id
		 ORDER BY r.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select retailer totals: %w", err)
	}
	defer rows.Close()

	var res []ledger.RetailerTotals
	for rows.Next() {
		var (
			t           ledger.RetailerTotals
			status      string
			customers   int64
			creditCount int64
		)
		if err := rows.Scan(&t.RetailerID, &t.Phone, &t.ShopName, &t.Address, &status, &t.CreatedAt, &t.LastActiveAt,
			&customers, &creditCount, &t.Outstanding); err != nil {
			return nil, fmt.Errorf("scan retailer totals: %w", err)
		}
		t.Status = model.RetailerStatus(status)
		t.Customers = int(customers)
		t.CreditCount = int(creditCount)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
