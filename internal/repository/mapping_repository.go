package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

const mappingColumns = `id, consultant_id, client_id, branch_code, status, payment_status,
        total_sessions, used_sessions, remaining_sessions, purchased_sessions, package_name, package_price,
        payment_amount, payment_method, payment_reference, payment_date,
        admin_approval_date, approved_by, start_date, end_date,
        termination_reason, terminated_by, terminated_at, created_at, updated_at`

// MappingRepository handles persistence of consultant-client mappings.
type MappingRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewMappingRepository constructs the repository.
func NewMappingRepository(db *sqlx.DB, lockTimeout time.Duration) *MappingRepository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &MappingRepository{db: db, lockTimeout: lockTimeout}
}

// lockTimeoutErr translates pq lock-wait failures into the concurrency error.
func lockTimeoutErr(err error) error {
	var pqErr *pq.Error
	if asPqError(err, &pqErr) {
		// 55P03 lock_not_available, 40001 serialization_failure, 40P01 deadlock_detected
		switch pqErr.Code {
		case "55P03", "40001", "40P01":
			return appErrors.Wrap(err, appErrors.ErrConcurrencyConflict.Code, appErrors.ErrConcurrencyConflict.Status, "lock wait timed out")
		}
	}
	return err
}

func asPqError(err error, target **pq.Error) bool {
	for err != nil {
		if pe, ok := err.(*pq.Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func setLockTimeout(ctx context.Context, tx *sqlx.Tx, d time.Duration) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds()))
	return err
}

// List returns mappings joined with party display names.
func (r *MappingRepository) List(ctx context.Context, filter models.MappingFilter) ([]models.MappingDetail, int, error) {
	base := `FROM mappings m
LEFT JOIN users con ON con.id = m.consultant_id
LEFT JOIN users cli ON cli.id = m.client_id`
	var conditions []string
	var args []interface{}

	if filter.ConsultantID != "" {
		conditions = append(conditions, fmt.Sprintf("m.consultant_id = $%d", len(args)+1))
		args = append(args, filter.ConsultantID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("m.client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.BranchCode != "" {
		conditions = append(conditions, fmt.Sprintf("m.branch_code = $%d", len(args)+1))
		args = append(args, filter.BranchCode)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("m.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PayStatus != "" {
		conditions = append(conditions, fmt.Sprintf("m.payment_status = $%d", len(args)+1))
		args = append(args, filter.PayStatus)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":      "m.created_at",
		"consultant_name": "con.full_name",
		"client_name":     "cli.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "m.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	cols := strings.ReplaceAll(mappingColumns, "\n", " ")
	prefixed := "m." + strings.Join(splitColumns(cols), ", m.")
	query := fmt.Sprintf(`SELECT %s, con.full_name AS consultant_name, cli.full_name AS client_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, prefixed, base+clause, orderBy, order, size, offset)

	var mappings []models.MappingDetail
	if err := r.db.SelectContext(ctx, &mappings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mappings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count mappings: %w", err)
	}
	return mappings, total, nil
}

func splitColumns(cols string) []string {
	parts := strings.Split(cols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// FindByID returns a mapping by its ID.
func (r *MappingRepository) FindByID(ctx context.Context, id string) (*models.Mapping, error) {
	query := fmt.Sprintf(`SELECT %s FROM mappings WHERE id = $1`, mappingColumns)
	var mapping models.Mapping
	if err := r.db.GetContext(ctx, &mapping, query, id); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// ExistsActive checks whether an ACTIVE mapping already exists for the pair
// within a branch, optionally excluding one mapping.
func (r *MappingRepository) ExistsActive(ctx context.Context, consultantID, clientID, branchCode, excludeID string) (bool, error) {
	query := `SELECT 1 FROM mappings WHERE consultant_id = $1 AND client_id = $2 AND branch_code = $3 AND status = $4`
	args := []interface{}{consultantID, clientID, branchCode, models.MappingStatusActive}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active mapping: %w", err)
	}
	return true, nil
}

// FindActiveByPair returns the ACTIVE mapping for a consultant/client pair.
func (r *MappingRepository) FindActiveByPair(ctx context.Context, consultantID, clientID string) (*models.Mapping, error) {
	query := fmt.Sprintf(`SELECT %s FROM mappings WHERE consultant_id = $1 AND client_id = $2 AND status = $3
        ORDER BY created_at DESC LIMIT 1`, mappingColumns)
	var mapping models.Mapping
	if err := r.db.GetContext(ctx, &mapping, query, consultantID, clientID, models.MappingStatusActive); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// Create persists a new mapping record.
func (r *MappingRepository) Create(ctx context.Context, mapping *models.Mapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now
	const query = `INSERT INTO mappings (id, consultant_id, client_id, branch_code, status, payment_status,
        total_sessions, used_sessions, remaining_sessions, purchased_sessions, package_name, package_price,
        payment_amount, payment_method, payment_reference, payment_date,
        admin_approval_date, approved_by, start_date, end_date,
        termination_reason, terminated_by, terminated_at, created_at, updated_at)
        VALUES (:id, :consultant_id, :client_id, :branch_code, :status, :payment_status,
        :total_sessions, :used_sessions, :remaining_sessions, :purchased_sessions, :package_name, :package_price,
        :payment_amount, :payment_method, :payment_reference, :payment_date,
        :admin_approval_date, :approved_by, :start_date, :end_date,
        :termination_reason, :terminated_by, :terminated_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mapping); err != nil {
		return fmt.Errorf("create mapping: %w", err)
	}
	return nil
}

// UpdateLocked loads the mapping under an exclusive row lock, applies the
// mutation, and persists the result. The mutation sees the freshest state;
// returning an error rolls the transaction back untouched.
func (r *MappingRepository) UpdateLocked(ctx context.Context, id string, mutate func(*models.Mapping) error) (*models.Mapping, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mapping transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	mapping, err := lockMapping(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err = mutate(mapping); err != nil {
		return nil, err
	}

	if err = saveMapping(ctx, tx, mapping); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mapping transaction: %w", err)
	}
	return mapping, nil
}

func lockMapping(ctx context.Context, tx *sqlx.Tx, id string) (*models.Mapping, error) {
	query := fmt.Sprintf(`SELECT %s FROM mappings WHERE id = $1 FOR UPDATE`, mappingColumns)
	var mapping models.Mapping
	if err := tx.GetContext(ctx, &mapping, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, lockTimeoutErr(fmt.Errorf("lock mapping %s: %w", id, err))
	}
	return &mapping, nil
}

func saveMapping(ctx context.Context, tx *sqlx.Tx, mapping *models.Mapping) error {
	mapping.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mappings SET status = :status, payment_status = :payment_status,
        total_sessions = :total_sessions, used_sessions = :used_sessions, remaining_sessions = :remaining_sessions,
        purchased_sessions = :purchased_sessions,
        package_name = :package_name, package_price = :package_price,
        payment_amount = :payment_amount, payment_method = :payment_method,
        payment_reference = :payment_reference, payment_date = :payment_date,
        admin_approval_date = :admin_approval_date, approved_by = :approved_by,
        start_date = :start_date, end_date = :end_date,
        termination_reason = :termination_reason, terminated_by = :terminated_by, terminated_at = :terminated_at,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, mapping); err != nil {
		return lockTimeoutErr(fmt.Errorf("update mapping %s: %w", mapping.ID, err))
	}
	return nil
}

// Transfer terminates the old mapping and creates its successor for the new
// consultant in a single transaction: both commit or neither does.
func (r *MappingRepository) Transfer(ctx context.Context, oldID, newConsultantID, reason, actorID string) (*models.Mapping, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	old, err := lockMapping(ctx, tx, oldID)
	if err != nil {
		return nil, err
	}
	if old.Status != models.MappingStatusActive {
		err = appErrors.StateConflict("mapping", string(old.Status), "transfer")
		return nil, err
	}

	now := time.Now().UTC()
	carried := old.RemainingSessions

	old.Status = models.MappingStatusTerminated
	old.RemainingSessions = 0
	old.TerminationReason = &reason
	old.TerminatedBy = &actorID
	old.TerminatedAt = &now
	old.EndDate = &now
	if err = saveMapping(ctx, tx, old); err != nil {
		return nil, err
	}

	next := &models.Mapping{
		ID:                uuid.NewString(),
		ConsultantID:      newConsultantID,
		ClientID:          old.ClientID,
		BranchCode:        old.BranchCode,
		Status:            models.MappingStatusActive,
		PayStatus:         models.PaymentStatusApproved,
		TotalSessions:     carried,
		UsedSessions:      0,
		RemainingSessions: carried,
		PurchasedSessions: carried,
		PackageName:       old.PackageName,
		PackagePrice:      old.PackagePrice,
		PaymentAmount:     old.PaymentAmount,
		PaymentMethod:     old.PaymentMethod,
		PaymentReference:  old.PaymentReference,
		PaymentDate:       old.PaymentDate,
		AdminApprovalDate: old.AdminApprovalDate,
		ApprovedBy:        old.ApprovedBy,
		StartDate:         &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	const insertQuery = `INSERT INTO mappings (id, consultant_id, client_id, branch_code, status, payment_status,
        total_sessions, used_sessions, remaining_sessions, purchased_sessions, package_name, package_price,
        payment_amount, payment_method, payment_reference, payment_date,
        admin_approval_date, approved_by, start_date, end_date,
        termination_reason, terminated_by, terminated_at, created_at, updated_at)
        VALUES (:id, :consultant_id, :client_id, :branch_code, :status, :payment_status,
        :total_sessions, :used_sessions, :remaining_sessions, :purchased_sessions, :package_name, :package_price,
        :payment_amount, :payment_method, :payment_reference, :payment_date,
        :admin_approval_date, :approved_by, :start_date, :end_date,
        :termination_reason, :terminated_by, :terminated_at, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, next); err != nil {
		err = fmt.Errorf("create transferred mapping: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer transaction: %w", err)
	}
	return next, nil
}

// CompleteScheduleAndConsume flips an elapsed schedule to COMPLETED and
// consumes one session from the pair's active mapping, atomically. The
// processed flag guarantees the consumption happens at most once per
// schedule; a schedule already processed or no longer blocking is skipped
// without error.
func (r *MappingRepository) CompleteScheduleAndConsume(ctx context.Context, scheduleID string) (*models.Schedule, *models.Mapping, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin completion transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, nil, fmt.Errorf("set lock timeout: %w", err)
	}

	var schedule models.Schedule
	const scheduleQuery = `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &schedule, scheduleQuery, scheduleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, err
		}
		return nil, nil, lockTimeoutErr(fmt.Errorf("lock schedule %s: %w", scheduleID, err))
	}

	if schedule.Processed || !schedule.Status.Blocking() {
		// Lost the race to a manual cancel or an earlier sweep.
		err = tx.Rollback()
		return nil, nil, nil
	}

	now := time.Now().UTC()
	const completeQuery = `UPDATE schedules SET status = $2, processed = TRUE, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, completeQuery, schedule.ID, models.ScheduleStatusCompleted, now); err != nil {
		return nil, nil, fmt.Errorf("complete schedule %s: %w", schedule.ID, err)
	}
	schedule.Status = models.ScheduleStatusCompleted
	schedule.Processed = true
	schedule.UpdatedAt = now

	var mapping models.Mapping
	mappingQuery := fmt.Sprintf(`SELECT %s FROM mappings WHERE consultant_id = $1 AND client_id = $2 AND status = $3
        ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, mappingColumns)
	if err = tx.GetContext(ctx, &mapping, mappingQuery, schedule.ConsultantID, schedule.ClientID, models.MappingStatusActive); err != nil {
		if err == sql.ErrNoRows {
			err = appErrors.Clone(appErrors.ErrNotFound, "no active mapping for completed schedule")
			return nil, nil, err
		}
		return nil, nil, lockTimeoutErr(fmt.Errorf("lock mapping for schedule %s: %w", schedule.ID, err))
	}

	if mapping.RemainingSessions <= 0 {
		err = appErrors.Clone(appErrors.ErrCapacityExceeded, "no remaining sessions to consume")
		return nil, nil, err
	}
	mapping.UsedSessions++
	mapping.RemainingSessions--
	if mapping.RemainingSessions == 0 {
		mapping.Status = models.MappingStatusSessionsExhausted
		mapping.EndDate = &now
	}
	if err = saveMapping(ctx, tx, &mapping); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit completion transaction: %w", err)
	}
	return &schedule, &mapping, nil
}
