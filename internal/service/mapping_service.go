package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

const mappingCachePattern = "mappings:list:*"

type mappingStore interface {
	Create(ctx context.Context, mapping *models.Mapping) error
	FindByID(ctx context.Context, id string) (*models.Mapping, error)
	List(ctx context.Context, filter models.MappingFilter) ([]models.MappingDetail, int, error)
	ExistsActive(ctx context.Context, consultantID, clientID, branchCode, excludeID string) (bool, error)
	UpdateLocked(ctx context.Context, id string, mutate func(*models.Mapping) error) (*models.Mapping, error)
	Transfer(ctx context.Context, oldID, newConsultantID, reason, actorID string) (*models.Mapping, error)
}

type userDirectory interface {
	FindActiveByIDAndRole(ctx context.Context, id string, role models.UserRole) (*models.User, error)
}

type branchFinder interface {
	FindBranchByCode(ctx context.Context, code string) (*models.Branch, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type notifier interface {
	Notify(ctx context.Context, notification models.Notification)
}

// MappingService manages the consultant-client entitlement ledger and its
// payment-approval workflow.
type MappingService struct {
	repo      mappingStore
	users     userDirectory
	branches  branchFinder
	cache     listCache
	notify    notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewMappingService builds a MappingService with sane defaults.
func NewMappingService(
	repo mappingStore,
	users userDirectory,
	branches branchFinder,
	cache listCache,
	notify notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *MappingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &MappingService{
		repo:      repo,
		users:     users,
		branches:  branches,
		cache:     cache,
		notify:    notify,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Create opens a new mapping in PENDING_PAYMENT after verifying both
// parties, the branch, and that no ACTIVE mapping exists for the pair.
func (s *MappingService) Create(ctx context.Context, req dto.CreateMappingRequest, actor models.Actor) (*models.Mapping, error) {
	if !actor.Can(models.CapManageMappings) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mapping payload")
	}
	if req.ConsultantID == req.ClientID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "consultant and client must differ")
	}

	if _, err := s.users.FindActiveByIDAndRole(ctx, req.ConsultantID, models.RoleConsultant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify consultant")
	}
	if _, err := s.users.FindActiveByIDAndRole(ctx, req.ClientID, models.RoleClient); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify client")
	}
	if _, err := s.branches.FindBranchByCode(ctx, req.BranchCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify branch")
	}

	exists, err := s.repo.ExistsActive(ctx, req.ConsultantID, req.ClientID, req.BranchCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing mappings")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "an active mapping already exists for this consultant and client")
	}

	mapping := &models.Mapping{
		ConsultantID:      req.ConsultantID,
		ClientID:          req.ClientID,
		BranchCode:        req.BranchCode,
		Status:            models.MappingStatusPendingPayment,
		PayStatus:         models.PaymentStatusPending,
		TotalSessions:     req.TotalSessions,
		UsedSessions:      0,
		RemainingSessions: req.TotalSessions,
		PurchasedSessions: req.TotalSessions,
		PackageName:       req.PackageName,
		PackagePrice:      req.PackagePrice,
	}
	if err := s.repo.Create(ctx, mapping); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mapping")
	}

	s.invalidateCache(ctx)
	s.logger.Info("mapping created",
		zap.String("mapping_id", mapping.ID),
		zap.String("consultant_id", mapping.ConsultantID),
		zap.String("client_id", mapping.ClientID),
		zap.Int("total_sessions", mapping.TotalSessions))
	return mapping, nil
}

// Get returns one mapping.
func (s *MappingService) Get(ctx context.Context, id string) (*models.Mapping, error) {
	mapping, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mapping")
	}
	return mapping, nil
}

// List returns mappings matching the filter, served from cache when fresh.
func (s *MappingService) List(ctx context.Context, filter models.MappingFilter) ([]models.MappingDetail, *models.Pagination, error) {
	type cached struct {
		Items      []models.MappingDetail `json:"items"`
		Pagination models.Pagination      `json:"pagination"`
	}

	key := mappingListCacheKey(filter)
	if s.cache != nil {
		var hit cached
		if err := s.cache.Get(ctx, key, &hit); err == nil {
			s.metrics.RecordCacheOperation(true)
			return hit.Items, &hit.Pagination, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mappings")
	}
	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.PageSize <= 0 {
		pagination.PageSize = 20
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cached{Items: items, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("mapping list cache write failed", zap.Error(err))
		}
	}
	return items, &pagination, nil
}

func mappingListCacheKey(filter models.MappingFilter) string {
	return fmt.Sprintf("mappings:list:%s:%s:%s:%s:%s:%d:%d:%s:%s",
		filter.ConsultantID, filter.ClientID, filter.BranchCode, filter.Status, filter.PayStatus,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}

// ConfirmDeposit records that the client's deposit arrived. Allowed only
// from PENDING; the mapping stays PENDING_PAYMENT until an admin approves.
func (s *MappingService) ConfirmDeposit(ctx context.Context, id string, req dto.ConfirmDepositRequest, actor models.Actor) (*models.Mapping, error) {
	if !actor.Can(models.CapApprovePayments) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deposit payload")
	}

	mapping, err := s.mutate(ctx, id, func(m *models.Mapping) error {
		if m.Status != models.MappingStatusPendingPayment {
			return appErrors.StateConflict("mapping", string(m.Status), "deposit confirmation")
		}
		if m.PayStatus != models.PaymentStatusPending {
			return appErrors.StateConflict("payment", string(m.PayStatus), string(models.PaymentStatusDepositConfirmed))
		}
		now := time.Now().UTC()
		m.PayStatus = models.PaymentStatusDepositConfirmed
		m.PaymentAmount = &req.Amount
		m.PaymentMethod = &req.Method
		m.PaymentDate = &now
		if req.Reference != "" {
			m.PaymentReference = &req.Reference
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if mapping.PaymentAmount != nil && *mapping.PaymentAmount != mapping.PackagePrice {
		s.logger.Warn("deposit amount differs from package price",
			zap.String("mapping_id", mapping.ID),
			zap.Int64("amount", *mapping.PaymentAmount),
			zap.Int64("package_price", mapping.PackagePrice))
	}
	s.logger.Info("deposit confirmed", zap.String("mapping_id", mapping.ID), zap.String("actor_id", actor.UserID))
	return mapping, nil
}

// ApprovePayment finalises the workflow: payment APPROVED, mapping ACTIVE.
// Requires DEPOSIT_CONFIRMED; approving straight from PENDING is a state
// conflict. The pair-uniqueness check is repeated here because another
// mapping may have gone ACTIVE since creation.
func (s *MappingService) ApprovePayment(ctx context.Context, id string, req dto.ApprovePaymentRequest, actor models.Actor) (*models.Mapping, error) {
	if !actor.Can(models.CapApprovePayments) {
		return nil, appErrors.ErrForbidden
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsActive(ctx, current.ConsultantID, current.ClientID, current.BranchCode, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing mappings")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "an active mapping already exists for this consultant and client")
	}

	mapping, err := s.mutate(ctx, id, func(m *models.Mapping) error {
		if m.Status != models.MappingStatusPendingPayment {
			return appErrors.StateConflict("mapping", string(m.Status), string(models.MappingStatusActive))
		}
		if m.PayStatus != models.PaymentStatusDepositConfirmed {
			return appErrors.StateConflict("payment", string(m.PayStatus), string(models.PaymentStatusApproved))
		}
		now := time.Now().UTC()
		m.PayStatus = models.PaymentStatusApproved
		m.Status = models.MappingStatusActive
		m.AdminApprovalDate = &now
		m.ApprovedBy = &actor.UserID
		m.StartDate = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: mapping.ClientID,
		Kind:        models.NotifyPaymentApproved,
		Subject:     "Payment approved",
		Body:        fmt.Sprintf("Your %s package is now active with %d sessions.", mapping.PackageName, mapping.RemainingSessions),
		Metadata:    map[string]string{"mapping_id": mapping.ID},
	})
	s.logger.Info("payment approved", zap.String("mapping_id", mapping.ID), zap.String("actor_id", actor.UserID))
	return mapping, nil
}

// RejectPayment declines the payment and closes the mapping: paymentStatus
// REJECTED, mapping TERMINATED. A rejected package is over; the client starts
// a fresh mapping if they want to try again.
func (s *MappingService) RejectPayment(ctx context.Context, id string, req dto.RejectPaymentRequest, actor models.Actor) (*models.Mapping, error) {
	if !actor.Can(models.CapApprovePayments) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	mapping, err := s.mutate(ctx, id, func(m *models.Mapping) error {
		if m.Status != models.MappingStatusPendingPayment {
			return appErrors.StateConflict("mapping", string(m.Status), "payment rejection")
		}
		if m.PayStatus != models.PaymentStatusDepositConfirmed && m.PayStatus != models.PaymentStatusPending {
			return appErrors.StateConflict("payment", string(m.PayStatus), string(models.PaymentStatusRejected))
		}
		now := time.Now().UTC()
		m.PayStatus = models.PaymentStatusRejected
		m.Status = models.MappingStatusTerminated
		m.TerminationReason = &req.Reason
		m.TerminatedBy = &actor.UserID
		m.TerminatedAt = &now
		m.EndDate = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: mapping.ClientID,
		Kind:        models.NotifyPaymentRejected,
		Subject:     "Payment rejected",
		Body:        req.Reason,
		Metadata:    map[string]string{"mapping_id": mapping.ID},
	})
	s.logger.Info("payment rejected", zap.String("mapping_id", mapping.ID), zap.String("actor_id", actor.UserID))
	return mapping, nil
}

// Transfer moves the client's remaining balance to a new consultant: the old
// mapping is terminated and its successor created atomically.
func (s *MappingService) Transfer(ctx context.Context, id string, req dto.TransferMappingRequest, actor models.Actor) (*models.Mapping, error) {
	if !actor.Can(models.CapManageMappings) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.NewConsultantID == current.ConsultantID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mapping already belongs to this consultant")
	}
	if _, err := s.users.FindActiveByIDAndRole(ctx, req.NewConsultantID, models.RoleConsultant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify consultant")
	}
	exists, err := s.repo.ExistsActive(ctx, req.NewConsultantID, current.ClientID, current.BranchCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing mappings")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "the client already has an active mapping with the target consultant")
	}

	next, err := s.repo.Transfer(ctx, id, req.NewConsultantID, req.Reason, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer mapping")
	}

	s.invalidateCache(ctx)
	s.logger.Info("mapping transferred",
		zap.String("old_mapping_id", id),
		zap.String("new_mapping_id", next.ID),
		zap.String("new_consultant_id", req.NewConsultantID),
		zap.String("actor_id", actor.UserID))
	return next, nil
}

// mutate runs a locked update and maps storage errors to domain errors.
func (s *MappingService) mutate(ctx context.Context, id string, fn func(*models.Mapping) error) (*models.Mapping, error) {
	mapping, err := s.repo.UpdateLocked(ctx, id, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mapping")
	}
	s.invalidateCache(ctx)
	return mapping, nil
}

func (s *MappingService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, mappingCachePattern); err != nil {
		s.logger.Warn("mapping cache invalidation failed", zap.Error(err))
	}
}

// asAppError surfaces typed domain errors unchanged so repo-raised conflicts
// keep their status codes.
func asAppError(err error) *appErrors.Error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
