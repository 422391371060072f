package permission

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) List(ctx context.Context, role string) ([]Override, error) {
	query := `SELECT role, menu_key, can_access FROM role_permission`
	var args []interface{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY role, menu_key`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.Role, &o.MenuKey, &o.CanAccess); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

func (r *repoPG) Upsert(ctx context.Context, o Override) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO role_permission (role, menu_key, can_access) VALUES ($1, $2, $3)
		ON CONFLICT (role, menu_key) DO UPDATE SET can_access = EXCLUDED.can_access`,
		o.Role, o.MenuKey, o.CanAccess)
	return err
}

func (r *repoPG) DeleteRole(ctx context.Context, role string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM role_permission WHERE role = $1`, role)
	return err
}
