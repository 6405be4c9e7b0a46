package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
)

// ReminderAccount счёт покупателя, по которому на дату может потребоваться напоминание.
type ReminderAccount struct {
	RetailerID int64
	ShopName   string
	ledger.Account
}

const reminderCandidates = `SELECT DISTINCT e.retailer_id, e.customer_id
 FROM ledger_events e
 JOIN retailers r ON r.id = e.retailer_id
 WHERE e.type = 'credit'
   AND r.status = $2
   AND (e.reminder_date = $1 OR e.due_date <= $1)`

// DueReminders возвращает счета активных магазинов, у которых есть выдачи с датой
// напоминания today или со сроком не позже today.
func (r *PostgresRepository) DueReminders(ctx context.Context, today time.Time) ([]ReminderAccount, error) {
	rows, err := r.pool.Query(ctx,
		`WITH candidates AS (`+reminderCandidates+`)
		 SELECT c.retailer_id, r.shop_name, c.id, c.name, c.phone,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'credit'), 0)::BIGINT,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.type = 'payment'), 0)::BIGINT,
		        GREATEST(c.created_at, COALESCE(MAX(e.created_at), c.created_at))
		 FROM candidates k
		 JOIN customers c ON c.id = k.customer_id AND c.retailer_id = k.retailer_id
		 JOIN retailers r ON r.id = c.retailer_id
		 LEFT JOIN ledger_events e ON e.customer_id = c.id AND e.retailer_id = c.retailer_id
		 GROUP BY c.retailer_id, r.shop_name, c.id
		 ORDER BY c.retailer_id, c.id`,
		today, string(model.RetailerStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("select reminder accounts: %w", err)
	}
	defer rows.Close()

	var res []ReminderAccount
	for rows.Next() {
		var a ReminderAccount
		if err := rows.Scan(&a.RetailerID, &a.ShopName, &a.CustomerID, &a.Name, &a.Phone,
			&a.Credits, &a.Payments, &a.LastActivity); err != nil {
			return nil, fmt.Errorf("scan reminder account: %w", err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(res) == 0 {
		return nil, nil
	}

	credits, err := r.loadCredits(ctx,
		`WITH candidates AS (`+reminderCandidates+`)
		 SELECT e.customer_id, e.id, e.amount, e.entry_date, e.due_date, e.reminder_date
		 FROM ledger_events e
		 JOIN candidates k ON k.customer_id = e.customer_id AND k.retailer_id = e.retailer_id
		 WHERE e.type = 'credit'
		 ORDER BY e.entry_date, e.id`,
		today, string(model.RetailerStatusActive),
	)
	if err != nil {
		return nil, err
	}

	for i := range res {
		res[i].CreditEvents = credits[res[i].CustomerID]
	}

	return res, nil
}

// ReminderRunFinished сообщает, завершался ли уже прогон напоминаний за дату.
func (r *PostgresRepository) ReminderRunFinished(ctx context.Context, date time.Time) (bool, error) {
	var done bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reminder_runs WHERE run_date = $1 AND finished_at IS NOT NULL)`,
		date,
	).Scan(&done)
	if err != nil {
		return false, fmt.Errorf("check reminder run: %w", err)
	}
	return done, nil
}

// StartReminderRun регистрирует начало прогона.
func (r *PostgresRepository) StartReminderRun(ctx context.Context, id uuid.UUID, date time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reminder_runs (id, run_date) VALUES ($1, $2)`,
		id.String(), date,
	)
	if err != nil {
		return fmt.Errorf("start reminder run: %w", err)
	}
	return nil
}

// FinishReminderRun сохраняет итоги прогона.
func (r *PostgresRepository) FinishReminderRun(ctx context.Context, id uuid.UUID, preDue, overdue, failed int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE reminder_runs
		 SET finished_at = now(), pre_due_sent = $2, overdue_sent = $3, failed = $4
		 WHERE id = $1`,
		id.String(), preDue, overdue, failed,
	)
	if err != nil {
		return fmt.Errorf("finish reminder run: %w", err)
	}
	return nil
}
