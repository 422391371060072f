package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const protocolCols = `id, name, category, medication_type, frequency_days, goal, message, created_at, updated_at`

func scanProtocol(row pgx.Row) (*Protocol, error) {
	var p Protocol
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.MedicationType, &p.FrequencyDays,
		&p.Goal, &p.Message, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("protocol not found")
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Protocol) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO protocol (id, name, category, medication_type, frequency_days, goal, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Category, p.MedicationType, p.FrequencyDays, p.Goal, p.Message,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("a protocol named %q already exists", p.Name)
	}
	if err != nil {
		return err
	}
	return r.ReplaceMilestones(ctx, p.ID, p.Milestones)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Protocol, error) {
	p, err := scanProtocol(r.conn(ctx).QueryRow(ctx, `SELECT `+protocolCols+` FROM protocol WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	byID, err := r.milestones(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.Milestones = byID[p.ID]
	return p, nil
}

func (r *repoPG) ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM protocol WHERE name = $1 AND id <> $2)`, name, exclude,
	).Scan(&exists)
	return exists, err
}

func (r *repoPG) Update(ctx context.Context, p *Protocol) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE protocol SET name=$2, category=$3, medication_type=$4, frequency_days=$5,
			goal=$6, message=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Category, p.MedicationType, p.FrequencyDays, p.Goal, p.Message,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("protocol not found")
	}
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("a protocol named %q already exists", p.Name)
	}
	return err
}

func (r *repoPG) ReplaceMilestones(ctx context.Context, protocolID uuid.UUID, ms []Milestone) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM protocol_milestone WHERE protocol_id = $1`, protocolID); err != nil {
		return fmt.Errorf("clear milestones: %w", err)
	}
	for i := range ms {
		ms[i].ID = uuid.New()
		if _, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO protocol_milestone (id, protocol_id, day_offset, message) VALUES ($1,$2,$3,$4)`,
			ms[i].ID, protocolID, ms[i].DayOffset, ms[i].Message); err != nil {
			return fmt.Errorf("insert milestone: %w", err)
		}
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM protocol WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Conflict("protocol is referenced by existing treatments")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("protocol not found")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, category Category) ([]*Protocol, error) {
	query := `SELECT ` + protocolCols + ` FROM protocol`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Protocol
	var ids []uuid.UUID
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID, err := r.milestones(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		p.Milestones = byID[p.ID]
	}
	return items, nil
}

func (r *repoPG) milestones(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Milestone, error) {
	out := make(map[uuid.UUID][]Milestone, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT protocol_id, id, day_offset, message FROM protocol_milestone
		WHERE protocol_id = ANY($1)
		ORDER BY day_offset ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		var m Milestone
		if err := rows.Scan(&pid, &m.ID, &m.DayOffset, &m.Message); err != nil {
			return nil, err
		}
		out[pid] = append(out[pid], m)
	}
	return out, rows.Err()
}
