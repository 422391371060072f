package inventory

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
)

// ---- InventoryLot Repo ----

type lotRepoPG struct{ pool *pgxpool.Pool }

func NewLotRepoPG(pool *pgxpool.Pool) LotRepository {
	return &lotRepoPG{pool: pool}
}

func (r *lotRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const lotCols = `id, medication_name, lot_number, quantity, unit, expiry_date, active, created_at, updated_at`

func scanLot(row pgx.Row) (*Lot, error) {
	var l Lot
	var expiry time.Time
	err := row.Scan(&l.ID, &l.MedicationName, &l.LotNumber, &l.Quantity, &l.Unit,
		&expiry, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.ExpiryDate = db.DateOf(expiry)
	return &l, nil
}

func (r *lotRepoPG) Create(ctx context.Context, l *Lot) error {
	l.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inventory_lot (id, medication_name, lot_number, quantity, unit, expiry_date, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		l.ID, l.MedicationName, l.LotNumber, l.Quantity, l.Unit, db.DateArg(l.ExpiryDate), l.Active,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("lot %s of %s already exists", l.LotNumber, l.MedicationName)
	}
	return err
}

func (r *lotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lot, error) {
	l, err := scanLot(r.conn(ctx).QueryRow(ctx, `SELECT `+lotCols+` FROM inventory_lot WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("inventory lot not found")
	}
	return l, err
}

func (r *lotRepoPG) GetByKey(ctx context.Context, medicationName, lotNumber string) (*Lot, error) {
	l, err := scanLot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lotCols+` FROM inventory_lot WHERE medication_name = $1 AND lot_number = $2 FOR UPDATE`,
		medicationName, lotNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (r *lotRepoPG) AddStock(ctx context.Context, id uuid.UUID, qty int) (*Lot, error) {
	l, err := scanLot(r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_lot SET quantity = quantity + $2, active = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+lotCols, id, qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("inventory lot not found")
	}
	return l, err
}

func (r *lotRepoPG) Update(ctx context.Context, l *Lot) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_lot SET medication_name=$2, lot_number=$3, quantity=$4, unit=$5,
			expiry_date=$6, active=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		l.ID, l.MedicationName, l.LotNumber, l.Quantity, l.Unit, db.DateArg(l.ExpiryDate), l.Active,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("inventory lot not found")
	}
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("lot %s of %s already exists", l.LotNumber, l.MedicationName)
	}
	return err
}

func (r *lotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM inventory_lot WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Conflict("lot has dispense history; deactivate it instead")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("inventory lot not found")
	}
	return nil
}

func (r *lotRepoPG) List(ctx context.Context, f LotFilter) ([]*Lot, error) {
	query := `SELECT ` + lotCols + ` FROM inventory_lot WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Search != "" {
		query += fmt.Sprintf(` AND medication_name ILIKE $%d`, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Active != nil {
		query += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, *f.Active)
		idx++
	}
	if f.NotExpiredOn != nil {
		query += fmt.Sprintf(` AND expiry_date > $%d`, idx)
		args = append(args, db.DateArg(*f.NotExpiredOn))
	}
	query += ` ORDER BY medication_name ASC, expiry_date ASC`

	return r.queryLots(ctx, query, args...)
}

func (r *lotRepoPG) Available(ctx context.Context, medicationName string, day civil.Date) ([]*Lot, error) {
	query := `SELECT ` + lotCols + ` FROM inventory_lot
		WHERE active AND quantity > 0 AND expiry_date > $1`
	args := []interface{}{db.DateArg(day)}
	if medicationName != "" {
		query += ` AND medication_name ILIKE $2`
		args = append(args, "%"+medicationName+"%")
	}
	query += ` ORDER BY expiry_date ASC`
	return r.queryLots(ctx, query, args...)
}

func (r *lotRepoPG) queryLots(ctx context.Context, query string, args ...interface{}) ([]*Lot, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *lotRepoPG) DecrementIfAvailable(ctx context.Context, id uuid.UUID) (*Lot, bool, error) {
	l, err := scanLot(r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_lot SET quantity = quantity - 1, updated_at = NOW()
		WHERE id = $1 AND quantity > 0
		RETURNING `+lotCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

func (r *lotRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory_lot WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ---- DispenseLog Repo ----

type dispenseLogRepoPG struct{ pool *pgxpool.Pool }

func NewDispenseLogRepoPG(pool *pgxpool.Pool) DispenseLogRepository {
	return &dispenseLogRepoPG{pool: pool}
}

func (r *dispenseLogRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const logCols = `d.id, d.patient_id, d.inventory_lot_id, COALESCE(l.lot_number, ''), d.dose_id,
	d.medication_name, d.quantity, d.dispensed_at`

func scanLog(row pgx.Row) (*DispenseLog, error) {
	var l DispenseLog
	err := row.Scan(&l.ID, &l.PatientID, &l.InventoryLotID, &l.LotNumber, &l.DoseID,
		&l.MedicationName, &l.Quantity, &l.DispensedAt)
	return &l, err
}

func (r *dispenseLogRepoPG) ExistsForDose(ctx context.Context, doseID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dispense_log WHERE dose_id = $1)`, doseID).Scan(&exists)
	return exists, err
}

// Create skips the insert on a duplicate dose instead of raising a unique
// violation, which would abort the surrounding transaction.
func (r *dispenseLogRepoPG) Create(ctx context.Context, l *DispenseLog) error {
	l.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dispense_log (id, patient_id, inventory_lot_id, dose_id, medication_name, quantity)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (dose_id) DO NOTHING
		RETURNING dispensed_at`,
		l.ID, l.PatientID, l.InventoryLotID, l.DoseID, l.MedicationName, l.Quantity,
	).Scan(&l.DispensedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("dose %s: %w", l.DoseID, ErrAlreadyDispensed)
	}
	return err
}

func (r *dispenseLogRepoPG) List(ctx context.Context, f LogFilter) ([]*DispenseLog, error) {
	query := `SELECT ` + logCols + ` FROM dispense_log d
		LEFT JOIN inventory_lot l ON l.id = d.inventory_lot_id WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		query += fmt.Sprintf(` AND d.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.MedicationName != "" {
		query += fmt.Sprintf(` AND d.medication_name ILIKE $%d`, idx)
		args = append(args, "%"+f.MedicationName+"%")
		idx++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND d.dispensed_at >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND d.dispensed_at < $%d`, idx)
		args = append(args, *f.To)
	}
	query += ` ORDER BY d.dispensed_at DESC`
	return r.queryLogs(ctx, query, args...)
}

func (r *dispenseLogRepoPG) ListBetween(ctx context.Context, from, to time.Time) ([]*DispenseLog, error) {
	return r.queryLogs(ctx, `SELECT `+logCols+` FROM dispense_log d
		LEFT JOIN inventory_lot l ON l.id = d.inventory_lot_id
		WHERE d.dispensed_at >= $1 AND d.dispensed_at < $2
		ORDER BY d.dispensed_at ASC`, from, to)
}

func (r *dispenseLogRepoPG) queryLogs(ctx context.Context, query string, args ...interface{}) ([]*DispenseLog, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DispenseLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
