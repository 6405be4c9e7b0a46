package repository

import (
	"context"
	"fmt"
)

// SaveDeviceToken привязывает токен FCM к номеру покупателя. Повторная
// регистрация токена переносит его на новый номер.
func (r *PostgresRepository) SaveDeviceToken(ctx context.Context, phone, token, platform string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO device_tokens (token, phone, platform)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET phone = EXCLUDED.phone, platform = EXCLUDED.platform, updated_at = now()`,
		token, phone, platform,
	)
	if err != nil {
		return fmt.Errorf("save device token: %w", err)
	}
	return nil
}

// DeviceTokens возвращает токены устройств покупателя.
func (r *PostgresRepository) DeviceTokens(ctx context.Context, phone string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT token FROM device_tokens WHERE phone = $1 ORDER BY updated_at DESC`, phone)
	if err != nil {
		return nil, fmt.Errorf("select device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tokens, nil
}

// DeleteDeviceToken удаляет недействительный токен.
func (r *PostgresRepository) DeleteDeviceToken(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM device_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}
