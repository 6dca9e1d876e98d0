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

type extensionStore interface {
	Create(ctx context.Context, request *models.SessionExtensionRequest) error
	FindByID(ctx context.Context, id string) (*models.SessionExtensionRequest, error)
	ExistsOpenForMapping(ctx context.Context, mappingID string) (bool, error)
	UpdateLocked(ctx context.Context, id string, mutate func(*models.SessionExtensionRequest) error) (*models.SessionExtensionRequest, error)
	ApproveAndCredit(ctx context.Context, id string, mutateRequest func(*models.SessionExtensionRequest) error, mutateMapping func(*models.Mapping) error) (*models.SessionExtensionRequest, *models.Mapping, error)
	List(ctx context.Context, filter models.ExtensionFilter) ([]models.SessionExtensionRequest, int, error)
	CountByStatus(ctx context.Context) (map[models.ExtensionStatus]int, error)
}

type extensionLedger interface {
	FindByID(ctx context.Context, id string) (*models.Mapping, error)
}

// ExtensionService runs the add-sessions workflow: request, deposit,
// approval, and crediting the mapping.
type ExtensionService struct {
	repo      extensionStore
	mappings  extensionLedger
	notify    notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExtensionService builds an ExtensionService with sane defaults.
func NewExtensionService(
	repo extensionStore,
	mappings extensionLedger,
	notify notifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExtensionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtensionService{repo: repo, mappings: mappings, notify: notify, validator: validate, logger: logger}
}

// Create opens an extension request for an active or exhausted mapping. One
// open request per mapping at a time.
func (s *ExtensionService) Create(ctx context.Context, req dto.CreateExtensionRequest, actor models.Actor) (*models.SessionExtensionRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extension payload")
	}

	mapping, err := s.mappings.FindByID(ctx, req.MappingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mapping")
	}
	if mapping.Status != models.MappingStatusActive && mapping.Status != models.MappingStatusSessionsExhausted {
		return nil, appErrors.StateConflict("mapping", string(mapping.Status), "session extension")
	}

	open, err := s.repo.ExistsOpenForMapping(ctx, req.MappingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open requests")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "an extension request is already open for this mapping")
	}

	request := &models.SessionExtensionRequest{
		MappingID:          req.MappingID,
		RequesterID:        actor.UserID,
		AdditionalSessions: req.AdditionalSessions,
		PackageName:        req.PackageName,
		PackagePrice:       req.PackagePrice,
		Reason:             req.Reason,
		Status:             models.ExtensionStatusPendingPayment,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create extension request")
	}
	s.logger.Info("extension requested",
		zap.String("request_id", request.ID),
		zap.String("mapping_id", request.MappingID),
		zap.Int("additional_sessions", request.AdditionalSessions))
	return request, nil
}

// Get returns one extension request.
func (s *ExtensionService) Get(ctx context.Context, id string) (*models.SessionExtensionRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load extension request")
	}
	return request, nil
}

// ConfirmDeposit records the extension deposit.
func (s *ExtensionService) ConfirmDeposit(ctx context.Context, id string, actor models.Actor) (*models.SessionExtensionRequest, error) {
	if !actor.Can(models.CapApprovePayments) {
		return nil, appErrors.ErrForbidden
	}
	request, err := s.mutateRequest(ctx, id, func(req *models.SessionExtensionRequest) error {
		if req.Status != models.ExtensionStatusPendingPayment {
			return appErrors.StateConflict("extension request", string(req.Status), string(models.ExtensionStatusDepositConfirmed))
		}
		req.Status = models.ExtensionStatusDepositConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("extension deposit confirmed", zap.String("request_id", id), zap.String("actor_id", actor.UserID))
	return request, nil
}

// Approve credits the mapping with the additional sessions. An exhausted
// mapping flips back to ACTIVE when its balance becomes positive again.
// Approval and credit commit together, so a failed credit leaves the request
// in DEPOSIT_CONFIRMED and the admin simply approves again.
func (s *ExtensionService) Approve(ctx context.Context, id string, req dto.ReviewExtensionRequest, actor models.Actor) (*models.SessionExtensionRequest, error) {
	if !actor.Can(models.CapApprovePayments) {
		return nil, appErrors.ErrForbidden
	}

	var added int
	request, mapping, err := s.repo.ApproveAndCredit(ctx, id,
		func(r *models.SessionExtensionRequest) error {
			if r.Status != models.ExtensionStatusDepositConfirmed && r.Status != models.ExtensionStatusApproved {
				return appErrors.StateConflict("extension request", string(r.Status), string(models.ExtensionStatusApproved))
			}
			now := time.Now().UTC()
			r.Status = models.ExtensionStatusCompleted
			r.ApprovedAt = &now
			if req.Comment != "" {
				r.AdminComment = &req.Comment
			}
			added = r.AdditionalSessions
			return nil
		},
		func(m *models.Mapping) error {
			if m.Status != models.MappingStatusActive && m.Status != models.MappingStatusSessionsExhausted {
				return appErrors.StateConflict("mapping", string(m.Status), "session extension")
			}
			m.TotalSessions += added
			m.RemainingSessions += added
			m.PurchasedSessions += added
			if m.Status == models.MappingStatusSessionsExhausted && m.RemainingSessions > 0 {
				m.Status = models.MappingStatusActive
				m.EndDate = nil
			}
			return nil
		})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve extension request")
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: request.RequesterID,
		Kind:        models.NotifyExtensionApproved,
		Subject:     "Session extension approved",
		Body:        fmt.Sprintf("%d sessions were added; %d now remain.", request.AdditionalSessions, mapping.RemainingSessions),
		Metadata:    map[string]string{"request_id": request.ID, "mapping_id": mapping.ID},
	})
	s.logger.Info("extension approved",
		zap.String("request_id", request.ID),
		zap.String("mapping_id", mapping.ID),
		zap.Int("additional_sessions", request.AdditionalSessions),
		zap.String("actor_id", actor.UserID))
	return request, nil
}

// Reject declines an open extension request. Any non-terminal state can be
// rejected; only REJECTED and COMPLETED are final.
func (s *ExtensionService) Reject(ctx context.Context, id string, req dto.ReviewExtensionRequest, actor models.Actor) (*models.SessionExtensionRequest, error) {
	if !actor.Can(models.CapApprovePayments) {
		return nil, appErrors.ErrForbidden
	}
	if req.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires a reason")
	}

	request, err := s.mutateRequest(ctx, id, func(r *models.SessionExtensionRequest) error {
		if r.Status == models.ExtensionStatusRejected || r.Status == models.ExtensionStatusCompleted {
			return appErrors.StateConflict("extension request", string(r.Status), string(models.ExtensionStatusRejected))
		}
		now := time.Now().UTC()
		r.Status = models.ExtensionStatusRejected
		r.RejectionReason = &req.Reason
		r.RejectedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: request.RequesterID,
		Kind:        models.NotifyExtensionRejected,
		Subject:     "Session extension rejected",
		Body:        req.Reason,
		Metadata:    map[string]string{"request_id": request.ID},
	})
	s.logger.Info("extension rejected", zap.String("request_id", id), zap.String("actor_id", actor.UserID))
	return request, nil
}

// List returns extension requests matching the filter.
func (s *ExtensionService) List(ctx context.Context, filter models.ExtensionFilter) ([]models.SessionExtensionRequest, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list extension requests")
	}
	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.PageSize <= 0 {
		pagination.PageSize = 20
	}
	return items, &pagination, nil
}

// Statistics aggregates request counts by status.
func (s *ExtensionService) Statistics(ctx context.Context) (*models.ExtensionStatistics, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate extension requests")
	}
	stats := &models.ExtensionStatistics{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *ExtensionService) mutateRequest(ctx context.Context, id string, fn func(*models.SessionExtensionRequest) error) (*models.SessionExtensionRequest, error) {
	request, err := s.repo.UpdateLocked(ctx, id, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update extension request")
	}
	return request, nil
}
