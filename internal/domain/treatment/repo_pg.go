package treatment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
	"github.com/DarkMage108/medical-service-backend/pkg/pagination"
)

// ---- Treatment Repo ----

type treatmentRepoPG struct{ pool *pgxpool.Pool }

func NewTreatmentRepoPG(pool *pgxpool.Pool) TreatmentRepository {
	return &treatmentRepoPG{pool: pool}
}

func (r *treatmentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const treatmentCols = `t.id, t.patient_id, t.protocol_id, p.name, p.frequency_days, t.status, t.start_date,
	t.planned_doses_before_consult, t.next_consultation_date, t.observations,
	(SELECT COUNT(*) FROM dose d WHERE d.treatment_id = t.id), t.created_at, t.updated_at`

const treatmentFrom = ` FROM treatment t JOIN protocol p ON p.id = t.protocol_id`

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	var start time.Time
	var next *time.Time
	err := row.Scan(&t.ID, &t.PatientID, &t.ProtocolID, &t.ProtocolName, &t.FrequencyDays,
		&t.Status, &start, &t.PlannedDosesBeforeConsult, &next, &t.Observations,
		&t.DoseCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.StartDate = db.DateOf(start)
	t.NextConsultationDate = db.DatePtrOf(next)
	return &t, nil
}

func (r *treatmentRepoPG) Create(ctx context.Context, t *Treatment) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment (id, patient_id, protocol_id, status, start_date,
			planned_doses_before_consult, next_consultation_date, observations)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		t.ID, t.PatientID, t.ProtocolID, t.Status, db.DateArg(t.StartDate),
		t.PlannedDosesBeforeConsult, db.DatePtrArg(t.NextConsultationDate), t.Observations,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("protocol not found")
	}
	return err
}

func (r *treatmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, err := scanTreatment(r.conn(ctx).QueryRow(ctx, `SELECT `+treatmentCols+treatmentFrom+` WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("treatment not found")
	}
	return t, err
}

func (r *treatmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, err := scanTreatment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+treatmentCols+treatmentFrom+` WHERE t.id = $1 FOR UPDATE OF t`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("treatment not found")
	}
	return t, err
}

func (r *treatmentRepoPG) Update(ctx context.Context, t *Treatment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE treatment SET status=$2, start_date=$3, planned_doses_before_consult=$4,
			next_consultation_date=$5, observations=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Status, db.DateArg(t.StartDate), t.PlannedDosesBeforeConsult,
		db.DatePtrArg(t.NextConsultationDate), t.Observations,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("treatment not found")
	}
	return err
}

func (r *treatmentRepoPG) SetStartDate(ctx context.Context, id uuid.UUID, start civil.Date) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE treatment SET start_date = $2, updated_at = NOW() WHERE id = $1 AND start_date <> $2`,
		id, db.DateArg(start))
	return err
}

func (r *treatmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("treatment not found")
	}
	return nil
}

func (r *treatmentRepoPG) List(ctx context.Context, f TreatmentFilter, p pagination.Params) ([]*Treatment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND t.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.ProtocolID != nil {
		where += fmt.Sprintf(` AND t.protocol_id = $%d`, idx)
		args = append(args, *f.ProtocolID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND t.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM treatment t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + treatmentCols + treatmentFrom + where +
		fmt.Sprintf(` ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, p.Limit, p.Offset)

	items, err := r.query(ctx, query, args...)
	return items, total, err
}

func (r *treatmentRepoPG) ListByPatients(ctx context.Context, patientIDs []uuid.UUID, status Status) ([]*Treatment, error) {
	query := `SELECT ` + treatmentCols + treatmentFrom + ` WHERE 1=1`
	var args []interface{}
	if patientIDs != nil {
		args = append(args, patientIDs)
		query += fmt.Sprintf(` AND t.patient_id = ANY($%d)`, len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND t.status = $%d`, len(args))
	}
	query += ` ORDER BY t.patient_id, t.start_date`
	return r.query(ctx, query, args...)
}

func (r *treatmentRepoPG) query(ctx context.Context, query string, args ...interface{}) ([]*Treatment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Treatment
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// ---- Dose Repo ----

type doseRepoPG struct{ pool *pgxpool.Pool }

func NewDoseRepoPG(pool *pgxpool.Pool) DoseRepository {
	return &doseRepoPG{pool: pool}
}

func (r *doseRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const doseCols = `id, treatment_id, cycle_number, scheduled_date, application_date, status,
	payment_status, payment_updated_at, inventory_lot_id, lot_number, expiry_date,
	calculated_next_date, days_until_next, is_last_before_consult, consultation_date,
	nurse, survey_status, survey_score, survey_comment, purchased, delivery_status,
	created_at, updated_at`

func scanDose(row pgx.Row) (*Dose, error) {
	var d Dose
	var scheduled, applied, next time.Time
	var expiry, consult *time.Time
	err := row.Scan(&d.ID, &d.TreatmentID, &d.CycleNumber, &scheduled, &applied, &d.Status,
		&d.PaymentStatus, &d.PaymentUpdatedAt, &d.InventoryLotID, &d.LotNumber, &expiry,
		&next, &d.DaysUntilNext, &d.IsLastBeforeConsult, &consult,
		&d.Nurse, &d.SurveyStatus, &d.SurveyScore, &d.SurveyComment, &d.Purchased, &d.DeliveryStatus,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ScheduledDate = db.DateOf(scheduled)
	d.ApplicationDate = db.DateOf(applied)
	d.CalculatedNextDate = db.DateOf(next)
	d.ExpiryDate = db.DatePtrOf(expiry)
	d.ConsultationDate = db.DatePtrOf(consult)
	return &d, nil
}

func (r *doseRepoPG) Create(ctx context.Context, d *Dose) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dose (id, treatment_id, cycle_number, scheduled_date, application_date, status,
			payment_status, payment_updated_at, inventory_lot_id, lot_number, expiry_date,
			calculated_next_date, days_until_next, is_last_before_consult, consultation_date,
			nurse, survey_status, survey_score, survey_comment, purchased, delivery_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING created_at, updated_at`,
		d.ID, d.TreatmentID, d.CycleNumber, db.DateArg(d.ScheduledDate), db.DateArg(d.ApplicationDate), d.Status,
		d.PaymentStatus, d.PaymentUpdatedAt, d.InventoryLotID, d.LotNumber, db.DatePtrArg(d.ExpiryDate),
		db.DateArg(d.CalculatedNextDate), d.DaysUntilNext, d.IsLastBeforeConsult, db.DatePtrArg(d.ConsultationDate),
		d.Nurse, d.SurveyStatus, d.SurveyScore, d.SurveyComment, d.Purchased, d.DeliveryStatus,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("cycle %d already exists for this treatment", d.CycleNumber)
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("treatment or inventory lot not found")
	}
	return err
}

func (r *doseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dose, error) {
	d, err := scanDose(r.conn(ctx).QueryRow(ctx, `SELECT `+doseCols+` FROM dose WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("dose not found")
	}
	return d, err
}

func (r *doseRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Dose, error) {
	d, err := scanDose(r.conn(ctx).QueryRow(ctx, `SELECT `+doseCols+` FROM dose WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("dose not found")
	}
	return d, err
}

func (r *doseRepoPG) Update(ctx context.Context, d *Dose) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE dose SET scheduled_date=$2, application_date=$3, status=$4, payment_status=$5,
			payment_updated_at=$6, inventory_lot_id=$7, lot_number=$8, expiry_date=$9,
			calculated_next_date=$10, days_until_next=$11, is_last_before_consult=$12,
			consultation_date=$13, nurse=$14, survey_status=$15, survey_score=$16,
			survey_comment=$17, purchased=$18, delivery_status=$19, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, db.DateArg(d.ScheduledDate), db.DateArg(d.ApplicationDate), d.Status, d.PaymentStatus,
		d.PaymentUpdatedAt, d.InventoryLotID, d.LotNumber, db.DatePtrArg(d.ExpiryDate),
		db.DateArg(d.CalculatedNextDate), d.DaysUntilNext, d.IsLastBeforeConsult,
		db.DatePtrArg(d.ConsultationDate), d.Nurse, d.SurveyStatus, d.SurveyScore,
		d.SurveyComment, d.Purchased, d.DeliveryStatus,
	).Scan(&d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("dose not found")
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("inventory lot not found")
	}
	return err
}

func (r *doseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM dose WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("dose not found")
	}
	return nil
}

func (r *doseRepoPG) MaxCycle(ctx context.Context, treatmentID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(cycle_number), 0) FROM dose WHERE treatment_id = $1`, treatmentID).Scan(&n)
	return n, err
}

func (r *doseRepoPG) ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*Dose, error) {
	return r.query(ctx, `SELECT `+doseCols+` FROM dose WHERE treatment_id = $1 ORDER BY cycle_number ASC`, treatmentID)
}

func (r *doseRepoPG) ListByTreatments(ctx context.Context, treatmentIDs []uuid.UUID) ([]*Dose, error) {
	return r.query(ctx, `SELECT `+doseCols+` FROM dose WHERE treatment_id = ANY($1)
		ORDER BY treatment_id, cycle_number ASC`, treatmentIDs)
}

func (r *doseRepoPG) List(ctx context.Context, f DoseFilter, p pagination.Params) ([]*Dose, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.TreatmentID != nil {
		where += fmt.Sprintf(` AND treatment_id = $%d`, idx)
		args = append(args, *f.TreatmentID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.PaymentStatus != "" {
		where += fmt.Sprintf(` AND payment_status = $%d`, idx)
		args = append(args, f.PaymentStatus)
		idx++
	}
	if f.Nurse != nil {
		where += fmt.Sprintf(` AND nurse = $%d`, idx)
		args = append(args, *f.Nurse)
		idx++
	}
	if f.FromDate != nil {
		where += fmt.Sprintf(` AND application_date >= $%d`, idx)
		args = append(args, db.DateArg(*f.FromDate))
		idx++
	}
	if f.ToDate != nil {
		where += fmt.Sprintf(` AND application_date <= $%d`, idx)
		args = append(args, db.DateArg(*f.ToDate))
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM dose`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doseCols + ` FROM dose` + where +
		fmt.Sprintf(` ORDER BY application_date DESC, cycle_number DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, p.Limit, p.Offset)

	items, err := r.query(ctx, query, args...)
	return items, total, err
}

func (r *doseRepoPG) query(ctx context.Context, query string, args ...interface{}) ([]*Dose, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Dose
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
