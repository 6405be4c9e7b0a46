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

const sumsQuery = `SELECT COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0)::BIGINT,
        COALESCE(SUM(amount) FILTER (WHERE type = 'payment'), 0)::BIGINT
 FROM ledger_events
 WHERE retailer_id = $1 AND customer_id = $2`

// RecordCredit сохраняет выдачу в долг и возвращает задолженность после неё.
func (r *PostgresRepository) RecordCredit(ctx context.Context, ev model.LedgerEvent) (*model.LedgerEvent, int64, error) {
	ev.Type = model.EventTypeCredit
	return r.appendEvent(ctx, ev, nil)
}

// RecordPayment сохраняет оплату, если она не превышает текущую задолженность.
// Проверка и вставка выполняются в одной транзакции под блокировкой строки покупателя,
// поэтому параллельные оплаты не могут в сумме превысить задолженность.
func (r *PostgresRepository) RecordPayment(ctx context.Context, ev model.LedgerEvent) (*model.LedgerEvent, int64, error) {
	ev.Type = model.EventTypePayment
	ev.DueDays, ev.DueDate, ev.ReminderDate = nil, nil, nil
	return r.appendEvent(ctx, ev, func(outstanding int64) error {
		return ledger.CheckPayment(ev.Amount, outstanding)
	})
}

func (r *PostgresRepository) appendEvent(ctx context.Context, ev model.LedgerEvent, admit func(outstanding int64) error) (*model.LedgerEvent, int64, error) {
	var (
		saved model.LedgerEvent
		after int64
	)

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Блокируем строку покупателя, чтобы сериализовать записи по одному счёту.
		var dummy int
		err = tx.QueryRow(ctx,
			`SELECT 1 FROM customers WHERE id = $1 AND retailer_id = $2 FOR UPDATE`,
			ev.CustomerID, ev.RetailerID,
		).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("lock customer for update: %w", err)
		}

		var credits, payments int64
		if err := tx.QueryRow(ctx, sumsQuery, ev.RetailerID, ev.CustomerID).Scan(&credits, &payments); err != nil {
			return fmt.Errorf("sum ledger events: %w", err)
		}

		outstanding := ledger.Balance(credits, payments)
		if admit != nil {
			if err := admit(outstanding); err != nil {
				return err
			}
		}

		saved = ev
		err = tx.QueryRow(ctx,
			`INSERT INTO ledger_events
			     (retailer_id, customer_id, type, amount, entry_date, due_days, due_date, reminder_date, note)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, created_at`,
			ev.RetailerID, ev.CustomerID, string(ev.Type), ev.Amount, ev.EntryDate,
			ev.DueDays, ev.DueDate, ev.ReminderDate, ev.Note,
		).Scan(&saved.ID, &saved.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert ledger event: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE retailers SET last_active_at = now() WHERE id = $1`, ev.RetailerID,
		); err != nil {
			return fmt.Errorf("touch retailer: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		if ev.Type == model.EventTypeCredit {
			after = ledger.Balance(credits+ev.Amount, payments)
		} else {
			after = ledger.Balance(credits, payments+ev.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return &saved, after, nil
}

// GetBalance возвращает задолженность покупателя перед магазином.
func (r *PostgresRepository) GetBalance(ctx context.Context, retailerID, customerID int64) (int64, error) {
	var credits, payments int64
	if err := r.pool.QueryRow(ctx, sumsQuery, retailerID, customerID).Scan(&credits, &payments); err != nil {
		return 0, fmt.Errorf("sum ledger events: %w", err)
	}
	return ledger.Balance(credits, payments), nil
}

// ListEvents возвращает историю счёта, новые записи первыми.
func (r *PostgresRepository) ListEvents(ctx context.Context, retailerID, customerID int64) ([]model.LedgerEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, retailer_id, customer_id, type, amount, entry_date, due_days, due_date, reminder_date, note, created_at
		 FROM ledger_events
		 WHERE retailer_id = $1 AND customer_id = $2
		 ORDER BY entry_date DESC, id DESC`,
		retailerID, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger events: %w", err)
	}
	defer rows.Close()

	var res []model.LedgerEvent
	for rows.Next() {
		var (
			ev  model.LedgerEvent
			typ string
		)
		if err := rows.Scan(&ev.ID, &ev.RetailerID, &ev.CustomerID, &typ, &ev.Amount, &ev.EntryDate,
			&ev.DueDays, &ev.DueDate, &ev.ReminderDate, &ev.Note, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		ev.Type = model.EventType(typ)
		res = append(res, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListAccounts возвращает счета всех покупателей магазина вместе с выдачами,
// нужными для распределения оплат.
func (r *PostgresRepository) ListAccounts(ctx context.Context, retailerID int64) ([]ledger.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.phone,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'credit'), 0)::BIGINT,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'payment'), 0)::BIGINT,
		        GREATEST(c.created_at, COALESCE(MAX(e.created_at), c.created_at))
		 FROM customers c
		 LEFT JOIN ledger_events e ON e.customer_id = c.id AND e.retailer_id = c.retailer_id
		 WHERE c.retailer_id = $1
		 GROUP BY c.id
		 ORDER BY c.id`,
		retailerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.CustomerID, &a.Name, &a.Phone, &a.Credits, &a.Payments, &a.LastActivity); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	credits, err := r.loadCredits(ctx,
		`SELECT customer_id, id, amount, entry_date, due_date, reminder_date
		 FROM ledger_events
		 WHERE retailer_id = $1 AND type = 'credit'
		 ORDER BY entry_date, id`,
		retailerID,
	)
	if err != nil {
		return nil, err
	}

	for i := range accounts {
		accounts[i].CreditEvents = credits[accounts[i].CustomerID]
	}

	return accounts, nil
}

func (r *PostgresRepository) loadCredits(ctx context.Context, query string, args ...any) (map[int64][]ledger.Credit, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select credits: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]ledger.Credit)
	for rows.Next() {
		var (
			customerID int64
			c          ledger.Credit
			entry      time.Time
		)
		if err := rows.Scan(&customerID, &c.ID, &c.Amount, &entry, &c.DueDate, &c.ReminderDate); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		c.EntryDate = entry
		res[customerID] = append(res[customerID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
