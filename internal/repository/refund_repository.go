package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/counseling-api/internal/models"
)

const refundColumns = `id, mapping_id, kind, reason, refunded_sessions, refunded_amount, actor, created_at`

// RefundRepository persists the immutable refund audit trail.
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository constructs the repository.
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create appends an audit record. Records are never updated or deleted.
func (r *RefundRepository) Create(ctx context.Context, audit *models.RefundAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refund_audits (id, mapping_id, kind, reason, refunded_sessions, refunded_amount, actor, created_at)
        VALUES (:id, :mapping_id, :kind, :reason, :refunded_sessions, :refunded_amount, :actor, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("create refund audit: %w", err)
	}
	return nil
}

// FindByID returns one audit record.
func (r *RefundRepository) FindByID(ctx context.Context, id string) (*models.RefundAudit, error) {
	query := fmt.Sprintf(`SELECT %s FROM refund_audits WHERE id = $1`, refundColumns)
	var audit models.RefundAudit
	if err := r.db.GetContext(ctx, &audit, query, id); err != nil {
		return nil, err
	}
	return &audit, nil
}

// List returns audit records matching the filter with pagination.
func (r *RefundRepository) List(ctx context.Context, filter models.RefundAuditFilter) ([]models.RefundAudit, int, error) {
	var conditions []string
	var args []interface{}

	if filter.MappingID != "" {
		conditions = append(conditions, fmt.Sprintf("mapping_id = $%d", len(args)+1))
		args = append(args, filter.MappingID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
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

	query := fmt.Sprintf(`SELECT %s FROM refund_audits%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		refundColumns, clause, size, offset)
	var audits []models.RefundAudit
	if err := r.db.SelectContext(ctx, &audits, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list refund audits: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM refund_audits" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count refund audits: %w", err)
	}
	return audits, total, nil
}
