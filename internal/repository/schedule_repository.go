package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

const scheduleColumns = `id, consultant_id, client_id, branch_code, date, start_time, end_time,
        status, consultation_type, title, description, notes, processed, created_at, updated_at`

// ScheduleRepository handles persistence of calendar bookings.
type ScheduleRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB, lockTimeout time.Duration) *ScheduleRepository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &ScheduleRepository{db: db, lockTimeout: lockTimeout}
}

// FindByID returns a schedule by its ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns schedules matching the filter with pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ConsultantID != "" {
		conditions = append(conditions, fmt.Sprintf("consultant_id = $%d", len(args)+1))
		args = append(args, filter.ConsultantID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.BranchCode != "" {
		conditions = append(conditions, fmt.Sprintf("branch_code = $%d", len(args)+1))
		args = append(args, filter.BranchCode)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM schedules%s ORDER BY date %s, start_time %s LIMIT %d OFFSET %d`,
		scheduleColumns, clause, order, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM schedules" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// CreateBooked inserts a new BOOKED schedule after re-checking overlaps
// under the consultant-day advisory lock. The check and the insert share one
// transaction so two racing bookings cannot both land.
func (r *ScheduleRepository) CreateBooked(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.Status = models.ScheduleStatusBooked
	schedule.Processed = false
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err = ensureNoOverlap(ctx, tx, schedule, ""); err != nil {
		return err
	}

	const query = `INSERT INTO schedules (id, consultant_id, client_id, branch_code, date, start_time, end_time,
        status, consultation_type, title, description, notes, processed, created_at, updated_at)
        VALUES (:id, :consultant_id, :client_id, :branch_code, :date, :start_time, :end_time,
        :status, :consultation_type, :title, :description, :notes, :processed, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, schedule); err != nil {
		return lockTimeoutErr(fmt.Errorf("create schedule: %w", err))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking transaction: %w", err)
	}
	return nil
}

// ensureNoOverlap serializes bookings per consultant and date with an
// advisory lock, then fails with a scheduling conflict when the candidate
// window intersects a blocking row. Row locks alone cannot prevent two
// conflict-free checks racing each other: when the window is empty there is
// no row to lock, so both transactions would insert. The advisory lock is
// held until the transaction commits.
func ensureNoOverlap(ctx context.Context, tx *sqlx.Tx, candidate *models.Schedule, excludeID string) error {
	const dayLock = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := tx.ExecContext(ctx, dayLock, candidate.ConsultantID+":"+candidate.Date); err != nil {
		return lockTimeoutErr(fmt.Errorf("lock consultant day: %w", err))
	}

	query := `SELECT id FROM schedules
        WHERE consultant_id = $1 AND date = $2 AND status IN ($3, $4)
        AND start_time < $5 AND $6 < end_time`
	args := []interface{}{
		candidate.ConsultantID, candidate.Date,
		models.ScheduleStatusBooked, models.ScheduleStatusConfirmed,
		candidate.EndTime, candidate.StartTime,
	}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " FOR UPDATE"

	var conflicting []string
	if err := tx.SelectContext(ctx, &conflicting, query, args...); err != nil {
		return lockTimeoutErr(fmt.Errorf("check schedule overlap: %w", err))
	}
	if len(conflicting) > 0 {
		return appErrors.Clone(appErrors.ErrSchedulingConflict,
			fmt.Sprintf("time window overlaps existing booking on %s", candidate.Date))
	}
	return nil
}

// UpdateLocked loads the schedule under an exclusive row lock, applies the
// mutation, re-checks overlaps when the window moved, and persists.
func (r *ScheduleRepository) UpdateLocked(ctx context.Context, id string, mutate func(*models.Schedule) error) (*models.Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin schedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	var schedule models.Schedule
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1 FOR UPDATE`, scheduleColumns)
	if err = tx.GetContext(ctx, &schedule, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, lockTimeoutErr(fmt.Errorf("lock schedule %s: %w", id, err))
	}

	before := schedule
	if err = mutate(&schedule); err != nil {
		return nil, err
	}

	windowMoved := schedule.Date != before.Date ||
		schedule.StartTime != before.StartTime ||
		schedule.EndTime != before.EndTime
	if windowMoved && schedule.Status.Blocking() {
		if err = ensureNoOverlap(ctx, tx, &schedule, schedule.ID); err != nil {
			return nil, err
		}
	}

	schedule.UpdatedAt = time.Now().UTC()
	const updateQuery = `UPDATE schedules SET date = :date, start_time = :start_time, end_time = :end_time,
        status = :status, consultation_type = :consultation_type, title = :title,
        description = :description, notes = :notes, processed = :processed, updated_at = :updated_at
        WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, &schedule); err != nil {
		return nil, lockTimeoutErr(fmt.Errorf("update schedule %s: %w", id, err))
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule transaction: %w", err)
	}
	return &schedule, nil
}

// ListElapsedUnprocessed returns blocking schedules whose end time has passed
// and which the sweeper has not consumed yet, oldest first.
func (r *ScheduleRepository) ListElapsedUnprocessed(ctx context.Context, now time.Time, limit int) ([]models.Schedule, error) {
	if limit <= 0 {
		limit = 100
	}
	today := now.Format(models.DateLayout)
	clock := now.Format("15:04")
	query := fmt.Sprintf(`SELECT %s FROM schedules
        WHERE processed = FALSE AND status IN ($1, $2)
        AND (date < $3 OR (date = $3 AND end_time <= $4))
        ORDER BY date, end_time LIMIT %d`, scheduleColumns, limit)
	var schedules []models.Schedule
	err := r.db.SelectContext(ctx, &schedules, query,
		models.ScheduleStatusBooked, models.ScheduleStatusConfirmed, today, clock)
	if err != nil {
		return nil, fmt.Errorf("list elapsed schedules: %w", err)
	}
	return schedules, nil
}

// ListCompletedWithoutNotes returns COMPLETED schedules still missing a
// consultation note whose end time lies at or before the cutoff, oldest
// first. The sweeper uses it to nudge consultants after the grace period.
func (r *ScheduleRepository) ListCompletedWithoutNotes(ctx context.Context, cutoff time.Time, limit int) ([]models.Schedule, error) {
	if limit <= 0 {
		limit = 100
	}
	date := cutoff.Format(models.DateLayout)
	clock := cutoff.Format("15:04")
	query := fmt.Sprintf(`SELECT %s FROM schedules
        WHERE status = $1 AND (notes IS NULL OR notes = '')
        AND (date < $2 OR (date = $2 AND end_time <= $3))
        ORDER BY date, end_time LIMIT %d`, scheduleColumns, limit)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, models.ScheduleStatusCompleted, date, clock); err != nil {
		return nil, fmt.Errorf("list completed schedules without notes: %w", err)
	}
	return schedules, nil
}

// CancelFutureByPair cancels all not-yet-started blocking schedules for a
// consultant/client pair, returning how many were cancelled. Used when a
// mapping is terminated.
func (r *ScheduleRepository) CancelFutureByPair(ctx context.Context, consultantID, clientID string, from time.Time, note string) (int, error) {
	today := from.Format(models.DateLayout)
	clock := from.Format("15:04")
	const query = `UPDATE schedules SET status = $1, notes = $2, updated_at = $3
        WHERE consultant_id = $4 AND client_id = $5 AND status IN ($6, $7) AND processed = FALSE
        AND (date > $8 OR (date = $8 AND start_time >= $9))`
	res, err := r.db.ExecContext(ctx, query,
		models.ScheduleStatusCancelled, note, time.Now().UTC(),
		consultantID, clientID,
		models.ScheduleStatusBooked, models.ScheduleStatusConfirmed,
		today, clock)
	if err != nil {
		return 0, fmt.Errorf("cancel future schedules: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cancelled schedules: %w", err)
	}
	return int(n), nil
}

// ListBlockingByConsultantAndDate returns the blocking bookings for one
// consultant on one date, used by the availability view.
func (r *ScheduleRepository) ListBlockingByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules
        WHERE consultant_id = $1 AND date = $2 AND status IN ($3, $4)
        ORDER BY start_time`, scheduleColumns)
	var schedules []models.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, consultantID, date,
		models.ScheduleStatusBooked, models.ScheduleStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s on %s: %w", consultantID, date, err)
	}
	return schedules, nil
}
