package adherence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type settingsRepoPG struct{ pool *pgxpool.Pool }

func NewSettingsRepoPG(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepoPG{pool: pool}
}

func (r *settingsRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *settingsRepoPG) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT key, value, updated_at FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *settingsRepoPG) ByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT key, value FROM system_settings WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *settingsRepoPG) Upsert(ctx context.Context, key, value string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO system_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	return err
}
