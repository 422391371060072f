package contact

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type dismissedRepoPG struct{ pool *pgxpool.Pool }

func NewDismissedRepoPG(pool *pgxpool.Pool) DismissedRepository {
	return &dismissedRepoPG{pool: pool}
}

func (r *dismissedRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const dismissedCols = `contact_id, dismissed_at, feedback_text, feedback_classification,
	feedback_needs_medical, feedback_urgency, feedback_status`

func scanDismissed(row pgx.Row) (*DismissedLog, error) {
	var l DismissedLog
	err := row.Scan(&l.ContactID, &l.DismissedAt, &l.Feedback.Text, &l.Feedback.Classification,
		&l.Feedback.NeedsMedicalResponse, &l.Feedback.Urgency, &l.Feedback.Status)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *dismissedRepoPG) Create(ctx context.Context, l *DismissedLog) error {
	f := l.Feedback
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dismissed_log (contact_id, feedback_text, feedback_classification,
			feedback_needs_medical, feedback_urgency, feedback_status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING dismissed_at`,
		l.ContactID, f.Text, f.Classification, f.NeedsMedicalResponse, f.Urgency, f.Status,
	).Scan(&l.DismissedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("contact %s was already dismissed", l.ContactID)
	}
	return err
}

func (r *dismissedRepoPG) Get(ctx context.Context, contactID string) (*DismissedLog, error) {
	l, err := scanDismissed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dismissedCols+` FROM dismissed_log WHERE contact_id = $1`, contactID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("dismissed contact not found")
	}
	return l, err
}

func (r *dismissedRepoPG) UpdateFeedback(ctx context.Context, contactID string, f Feedback) (*DismissedLog, error) {
	l, err := scanDismissed(r.conn(ctx).QueryRow(ctx, `
		UPDATE dismissed_log SET feedback_text=$2, feedback_classification=$3,
			feedback_needs_medical=$4, feedback_urgency=$5, feedback_status=$6
		WHERE contact_id = $1
		RETURNING `+dismissedCols,
		contactID, f.Text, f.Classification, f.NeedsMedicalResponse, f.Urgency, f.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("dismissed contact not found")
	}
	return l, err
}

func (r *dismissedRepoPG) List(ctx context.Context) ([]*DismissedLog, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+dismissedCols+` FROM dismissed_log ORDER BY dismissed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DismissedLog
	for rows.Next() {
		l, err := scanDismissed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *dismissedRepoPG) IDs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT contact_id FROM dismissed_log`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
