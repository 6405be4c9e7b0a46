package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/creditbook/internal/model"
)

// CreateAdmin создаёт администратора.
func (r *PostgresRepository) CreateAdmin(ctx context.Context, username string, passwordHash []byte, email string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admin_users (username, password_hash, email) VALUES ($1, $2, $3) RETURNING id`,
		username, passwordHash, email,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrAdminExists, username)
		}
		return 0, fmt.Errorf("create admin: %w", err)
	}
	return id, nil
}

// GetAdminByUsername возвращает администратора по имени.
func (r *PostgresRepository) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	var a model.AdminUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, email, last_login_at FROM admin_users WHERE username = $1`,
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

// TouchAdminLogin сохраняет время последнего входа администратора.
func (r *PostgresRepository) TouchAdminLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE admin_users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch admin login: %w", err)
	}
	return nil
}

// AppendAudit добавляет запись в журнал действий администраторов.
func (r *PostgresRepository) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (admin_user, action, details, ip_address) VALUES ($1, $2, $3, $4)`,
		e.AdminUser, e.Action, e.Details, e.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAudit возвращает последние limit записей журнала.
func (r *PostgresRepository) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, admin_user, action, details, ip_address, created_at
		 FROM audit_logs
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select audit logs: %w", err)
	}
	defer rows.Close()

	var res []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.AdminUser, &e.Action, &e.Details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
