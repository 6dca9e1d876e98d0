package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/counseling-api/internal/models"
)

// CatalogRepository reads branches and the common-code catalog.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindBranchByCode returns an active branch by its code.
func (r *CatalogRepository) FindBranchByCode(ctx context.Context, code string) (*models.Branch, error) {
	const query = `SELECT id, code, name, active, created_at FROM branches WHERE code = $1 AND active = TRUE`
	var branch models.Branch
	if err := r.db.GetContext(ctx, &branch, query, code); err != nil {
		return nil, err
	}
	return &branch, nil
}

// ListBranches returns all active branches.
func (r *CatalogRepository) ListBranches(ctx context.Context) ([]models.Branch, error) {
	const query = `SELECT id, code, name, active, created_at FROM branches WHERE active = TRUE ORDER BY code`
	var branches []models.Branch
	if err := r.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// ListCodes returns the codes of one group ordered for display.
func (r *CatalogRepository) ListCodes(ctx context.Context, group string) ([]models.CommonCode, error) {
	const query = `SELECT id, code_group, code_value, label, sort_order FROM common_codes
        WHERE code_group = $1 ORDER BY sort_order, code_value`
	var codes []models.CommonCode
	if err := r.db.SelectContext(ctx, &codes, query, group); err != nil {
		return nil, fmt.Errorf("list codes for group %s: %w", group, err)
	}
	return codes, nil
}

// Label resolves one code value to its display label. A missing code falls
// back to the raw value.
func (r *CatalogRepository) Label(ctx context.Context, group, value string) (string, error) {
	const query = `SELECT label FROM common_codes WHERE code_group = $1 AND code_value = $2`
	var label string
	if err := r.db.GetContext(ctx, &label, query, group, value); err != nil {
		if err == sql.ErrNoRows {
			return value, nil
		}
		return "", fmt.Errorf("resolve label %s/%s: %w", group, value, err)
	}
	return label, nil
}
