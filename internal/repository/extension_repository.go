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
)

const extensionColumns = `id, mapping_id, requester_id, additional_sessions, package_name, package_price,
        reason, status, admin_comment, rejection_reason, created_at, approved_at, rejected_at`

// ExtensionRepository persists session-extension requests.
type ExtensionRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewExtensionRepository constructs the repository.
func NewExtensionRepository(db *sqlx.DB, lockTimeout time.Duration) *ExtensionRepository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &ExtensionRepository{db: db, lockTimeout: lockTimeout}
}

// Create persists a new extension request.
func (r *ExtensionRepository) Create(ctx context.Context, request *models.SessionExtensionRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO session_extension_requests (id, mapping_id, requester_id, additional_sessions,
        package_name, package_price, reason, status, admin_comment, rejection_reason, created_at, approved_at, rejected_at)
        VALUES (:id, :mapping_id, :requester_id, :additional_sessions,
        :package_name, :package_price, :reason, :status, :admin_comment, :rejection_reason, :created_at, :approved_at, :rejected_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create extension request: %w", err)
	}
	return nil
}

// FindByID returns an extension request by its ID.
func (r *ExtensionRepository) FindByID(ctx context.Context, id string) (*models.SessionExtensionRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM session_extension_requests WHERE id = $1`, extensionColumns)
	var request models.SessionExtensionRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ExistsOpenForMapping reports whether a non-terminal request already exists
// for the mapping.
func (r *ExtensionRepository) ExistsOpenForMapping(ctx context.Context, mappingID string) (bool, error) {
	const query = `SELECT 1 FROM session_extension_requests
        WHERE mapping_id = $1 AND status IN ($2, $3, $4) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, mappingID,
		models.ExtensionStatusPendingPayment, models.ExtensionStatusDepositConfirmed, models.ExtensionStatusApproved)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open extension request: %w", err)
	}
	return true, nil
}

// UpdateLocked loads the request under an exclusive row lock, applies the
// mutation, and persists the result.
func (r *ExtensionRepository) UpdateLocked(ctx context.Context, id string, mutate func(*models.SessionExtensionRequest) error) (*models.SessionExtensionRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin extension transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	var request models.SessionExtensionRequest
	query := fmt.Sprintf(`SELECT %s FROM session_extension_requests WHERE id = $1 FOR UPDATE`, extensionColumns)
	if err = tx.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, lockTimeoutErr(fmt.Errorf("lock extension request %s: %w", id, err))
	}

	if err = mutate(&request); err != nil {
		return nil, err
	}

	const updateQuery = `UPDATE session_extension_requests SET status = :status, admin_comment = :admin_comment,
        rejection_reason = :rejection_reason, approved_at = :approved_at, rejected_at = :rejected_at
        WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, &request); err != nil {
		return nil, lockTimeoutErr(fmt.Errorf("update extension request %s: %w", id, err))
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit extension transaction: %w", err)
	}
	return &request, nil
}

// ApproveAndCredit applies the approval mutation to the request and the
// credit mutation to its mapping in one transaction: either the request
// finishes and the ledger is credited, or neither happens. Both rows are
// locked, request first, so a failed credit can never strand the request in
// a half-approved state.
func (r *ExtensionRepository) ApproveAndCredit(
	ctx context.Context,
	id string,
	mutateRequest func(*models.SessionExtensionRequest) error,
	mutateMapping func(*models.Mapping) error,
) (*models.SessionExtensionRequest, *models.Mapping, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin extension approval transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, nil, fmt.Errorf("set lock timeout: %w", err)
	}

	var request models.SessionExtensionRequest
	query := fmt.Sprintf(`SELECT %s FROM session_extension_requests WHERE id = $1 FOR UPDATE`, extensionColumns)
	if err = tx.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, err
		}
		return nil, nil, lockTimeoutErr(fmt.Errorf("lock extension request %s: %w", id, err))
	}

	if err = mutateRequest(&request); err != nil {
		return nil, nil, err
	}

	mapping, err := lockMapping(ctx, tx, request.MappingID)
	if err != nil {
		return nil, nil, err
	}
	if err = mutateMapping(mapping); err != nil {
		return nil, nil, err
	}
	if err = saveMapping(ctx, tx, mapping); err != nil {
		return nil, nil, err
	}

	const updateQuery = `UPDATE session_extension_requests SET status = :status, admin_comment = :admin_comment,
        rejection_reason = :rejection_reason, approved_at = :approved_at, rejected_at = :rejected_at
        WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, &request); err != nil {
		return nil, nil, lockTimeoutErr(fmt.Errorf("update extension request %s: %w", id, err))
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit extension approval transaction: %w", err)
	}
	return &request, mapping, nil
}

// List returns extension requests matching the filter with pagination.
func (r *ExtensionRepository) List(ctx context.Context, filter models.ExtensionFilter) ([]models.SessionExtensionRequest, int, error) {
	var conditions []string
	var args []interface{}

	if filter.MappingID != "" {
		conditions = append(conditions, fmt.Sprintf("mapping_id = $%d", len(args)+1))
		args = append(args, filter.MappingID)
	}
	if filter.RequesterID != "" {
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)+1))
		args = append(args, filter.RequesterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf(`SELECT %s FROM session_extension_requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		extensionColumns, clause, size, offset)
	var requests []models.SessionExtensionRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list extension requests: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM session_extension_requests" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count extension requests: %w", err)
	}
	return requests, total, nil
}

// CountByStatus aggregates request counts per status.
func (r *ExtensionRepository) CountByStatus(ctx context.Context) (map[models.ExtensionStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM session_extension_requests GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count extension requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ExtensionStatus]int)
	for rows.Next() {
		var status models.ExtensionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan extension status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extension status counts: %w", err)
	}
	return counts, nil
}
