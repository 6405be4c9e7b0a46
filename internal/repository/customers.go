package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
)

const customerColumns = `id, retailer_id, name, phone, address, created_at`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	if err := row.Scan(&c.ID, &c.RetailerID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer добавляет покупателя магазину.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c model.Customer) (*model.Customer, error) {
	created, err := scanCustomer(r.pool.QueryRow(ctx,
		`INSERT INTO customers (retailer_id, name, phone, address)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+customerColumns,
		c.RetailerID, c.Name, c.Phone, c.Address,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrCustomerExists, c.Phone)
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

// GetCustomer возвращает покупателя магазина. Покупатель другого магазина не находится.
func (r *PostgresRepository) GetCustomer(ctx context.Context, retailerID, customerID int64) (*model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND retailer_id = $2`,
		customerID, retailerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// CustomerExists сообщает, заведён ли номер покупателем хотя бы у одного магазина.
func (r *PostgresRepository) CustomerExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE phone = $1)`, phone,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer: %w", err)
	}
	return exists, nil
}

// CustomerBalances возвращает задолженность покупателя с номером phone перед каждым магазином.
func (r *PostgresRepository) CustomerBalances(ctx context.Context, phone string) ([]model.RetailerBalance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.shop_name, c.id,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'credit'), 0)::BIGINT,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'payment'), 0)::BIGINT
		 FROM customers c
		 JOIN retailers r ON r.id = c.retailer_id
		 LEFT JOIN ledger_events e ON e.customer_id = c.id AND e.retailer_id = c.retailer_id
		 WHERE c.phone = $1
		 GROUP BY r.id, r.shop_name, c.id
		 ORDER BY r.shop_name`,
		phone,
	)
	if err != nil {
		return nil, fmt.Errorf("select customer balances: %w", err)
	}
	defer rows.Close()

	var res []model.RetailerBalance
	for rows.Next() {
		var (
			b                 model.RetailerBalance
			credits, payments int64
		)
		if err := rows.Scan(&b.RetailerID, &b.ShopName, &b.CustomerID, &credits, &payments); err != nil {
			return nil, fmt.Errorf("scan customer balance: %w", err)
		}
		b.Outstanding = ledger.Balance(credits, payments)
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCustomerByPhone возвращает покупателя с номером phone у магазина retailerID.
func (r *PostgresRepository) GetCustomerByPhone(ctx context.Context, retailerID int64, phone string) (*model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE retailer_id = $1 AND phone = $2`,
		retailerID, phone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by phone: %w", err)
	}
	return c, nil
}
