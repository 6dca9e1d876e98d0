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
	"github.com/noah-isme/counseling-api/pkg/export"
)

type refundStore interface {
	Create(ctx context.Context, audit *models.RefundAudit) error
	FindByID(ctx context.Context, id string) (*models.RefundAudit, error)
	List(ctx context.Context, filter models.RefundAuditFilter) ([]models.RefundAudit, int, error)
}

type refundLedger interface {
	FindByID(ctx context.Context, id string) (*models.Mapping, error)
	UpdateLocked(ctx context.Context, id string, mutate func(*models.Mapping) error) (*models.Mapping, error)
}

type futureBookingCanceller interface {
	CancelFutureByPair(ctx context.Context, consultantID, clientID string, from time.Time, note string) (int, error)
}

type refundUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type statementGenerator interface {
	Generate(data export.StatementData) ([]byte, error)
}

// RefundService computes and applies refunds: partial session refunds inside
// the cooling-off window and full termination refunds.
type RefundService struct {
	audits     refundStore
	mappings   refundLedger
	schedules  futureBookingCanceller
	users      refundUserReader
	statements statementGenerator
	notify     notifier
	validator  *validator.Validate
	logger     *zap.Logger
	coolingOff time.Duration
}

// NewRefundService builds a RefundService with sane defaults.
func NewRefundService(
	audits refundStore,
	mappings refundLedger,
	schedules futureBookingCanceller,
	users refundUserReader,
	statements statementGenerator,
	notify notifier,
	validate *validator.Validate,
	logger *zap.Logger,
	coolingOffDays int,
) *RefundService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if coolingOffDays <= 0 {
		coolingOffDays = 15
	}
	return &RefundService{
		audits:     audits,
		mappings:   mappings,
		schedules:  schedules,
		users:      users,
		statements: statements,
		notify:     notify,
		validator:  validate,
		logger:     logger,
		coolingOff: time.Duration(coolingOffDays) * 24 * time.Hour,
	}
}

// refundAmount prorates the package price over the sessions purchased. The
// denominator is the at-purchase count, never the post-refund total, so a
// second refund pays the same per-session price as the first.
func refundAmount(sessions int, packagePrice int64, purchasedSessions int) int64 {
	if purchasedSessions <= 0 {
		return 0
	}
	return int64(sessions) * packagePrice / int64(purchasedSessions)
}

// Quote previews what a partial refund would pay out without applying it.
func (s *RefundService) Quote(ctx context.Context, mappingID string, sessions int) (*dto.RefundQuote, error) {
	if sessions <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sessions must be positive")
	}
	mapping, err := s.loadMapping(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	if sessions > mapping.RemainingSessions {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("cannot refund %d sessions, only %d remain", sessions, mapping.RemainingSessions))
	}
	return &dto.RefundQuote{
		MappingID:        mappingID,
		RefundedSessions: sessions,
		PerSessionPrice:  refundAmount(1, mapping.PackagePrice, mapping.PurchasedSessions),
		RefundedAmount:   refundAmount(sessions, mapping.PackagePrice, mapping.PurchasedSessions),
	}, nil
}

// Partial refunds part of the remaining balance. Allowed only inside the
// cooling-off window counted from payment approval. Refunded sessions leave
// both the total and the remaining balance; a balance hitting zero flips the
// mapping to SESSIONS_EXHAUSTED.
func (s *RefundService) Partial(ctx context.Context, mappingID string, req dto.PartialRefundRequest, actor models.Actor) (*models.RefundAudit, error) {
	if !actor.Can(models.CapProcessRefunds) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refund payload")
	}

	var amount int64
	now := time.Now().UTC()
	mapping, err := s.mutateMapping(ctx, mappingID, func(m *models.Mapping) error {
		if m.Status != models.MappingStatusActive {
			return appErrors.StateConflict("mapping", string(m.Status), "partial refund")
		}
		anchor := m.AdminApprovalDate
		if anchor == nil {
			anchor = m.PaymentDate
		}
		if anchor == nil || now.After(anchor.Add(s.coolingOff)) {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("partial refunds are only allowed within %d days of approval", int(s.coolingOff.Hours()/24)))
		}
		if req.Sessions > m.RemainingSessions {
			return appErrors.Clone(appErrors.ErrCapacityExceeded,
				fmt.Sprintf("cannot refund %d sessions, only %d remain", req.Sessions, m.RemainingSessions))
		}
		amount = refundAmount(req.Sessions, m.PackagePrice, m.PurchasedSessions)
		m.TotalSessions -= req.Sessions
		m.RemainingSessions -= req.Sessions
		if m.RemainingSessions == 0 {
			m.Status = models.MappingStatusSessionsExhausted
			m.EndDate = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit := &models.RefundAudit{
		MappingID:        mappingID,
		Kind:             models.RefundKindPartial,
		Reason:           req.Reason,
		RefundedSessions: req.Sessions,
		RefundedAmount:   amount,
		Actor:            actor.UserID,
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record refund")
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: mapping.ClientID,
		Kind:        models.NotifyRefundIssued,
		Subject:     "Refund issued",
		Body:        fmt.Sprintf("%d sessions were refunded.", req.Sessions),
		Metadata:    map[string]string{"audit_id": audit.ID, "mapping_id": mappingID},
	})
	s.logger.Info("partial refund applied",
		zap.String("mapping_id", mappingID),
		zap.Int("sessions", req.Sessions),
		zap.Int64("amount", amount),
		zap.String("actor_id", actor.UserID))
	return audit, nil
}

// Terminate ends a mapping early, refunds the whole remaining balance, and
// cancels all not-yet-started bookings for the pair.
func (s *RefundService) Terminate(ctx context.Context, mappingID string, req dto.TerminateMappingRequest, actor models.Actor) (*models.RefundAudit, error) {
	if !actor.Can(models.CapProcessRefunds) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid termination payload")
	}

	var amount int64
	var refunded int
	now := time.Now().UTC()
	mapping, err := s.mutateMapping(ctx, mappingID, func(m *models.Mapping) error {
		if m.Status != models.MappingStatusActive && m.Status != models.MappingStatusSessionsExhausted {
			return appErrors.StateConflict("mapping", string(m.Status), string(models.MappingStatusTerminated))
		}
		refunded = m.RemainingSessions
		amount = refundAmount(refunded, m.PackagePrice, m.PurchasedSessions)
		m.TotalSessions -= refunded
		m.RemainingSessions = 0
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

	cancelled, err := s.schedules.CancelFutureByPair(ctx, mapping.ConsultantID, mapping.ClientID, now,
		fmt.Sprintf("mapping terminated: %s", req.Reason))
	if err != nil {
		// The termination itself committed; report the cleanup failure loudly.
		s.logger.Error("failed to cancel future bookings after termination",
			zap.String("mapping_id", mappingID), zap.Error(err))
	}

	audit := &models.RefundAudit{
		MappingID:        mappingID,
		Kind:             models.RefundKindFull,
		Reason:           req.Reason,
		RefundedSessions: refunded,
		RefundedAmount:   amount,
		Actor:            actor.UserID,
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record refund")
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: mapping.ClientID,
		Kind:        models.NotifyMappingTerminated,
		Subject:     "Mapping terminated",
		Body:        req.Reason,
		Metadata:    map[string]string{"audit_id": audit.ID, "mapping_id": mappingID},
	})
	s.logger.Info("mapping terminated",
		zap.String("mapping_id", mappingID),
		zap.Int("refunded_sessions", refunded),
		zap.Int64("amount", amount),
		zap.Int("cancelled_bookings", cancelled),
		zap.String("actor_id", actor.UserID))
	return audit, nil
}

// History lists refund audit records.
func (s *RefundService) History(ctx context.Context, filter models.RefundAuditFilter) ([]models.RefundAudit, *models.Pagination, error) {
	items, total, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list refunds")
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

// Statement renders the PDF refund statement for one audit record.
func (s *RefundService) Statement(ctx context.Context, auditID string) ([]byte, error) {
	audit, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "refund record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refund record")
	}
	mapping, err := s.loadMapping(ctx, audit.MappingID)
	if err != nil {
		return nil, err
	}

	data := export.StatementData{
		AuditID:          audit.ID,
		MappingID:        mapping.ID,
		Kind:             string(audit.Kind),
		PackageName:      mapping.PackageName,
		RefundedSessions: audit.RefundedSessions,
		RefundedAmount:   audit.RefundedAmount,
		Reason:           audit.Reason,
		IssuedAt:         audit.CreatedAt,
	}
	if audit.RefundedSessions > 0 {
		data.PerSessionPrice = audit.RefundedAmount / int64(audit.RefundedSessions)
	}
	if client, err := s.users.FindByID(ctx, mapping.ClientID); err == nil {
		data.ClientName = client.FullName
	}
	if consultant, err := s.users.FindByID(ctx, mapping.ConsultantID); err == nil {
		data.ConsultantName = consultant.FullName
	}

	pdf, err := s.statements.Generate(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render refund statement")
	}
	return pdf, nil
}

func (s *RefundService) loadMapping(ctx context.Context, id string) (*models.Mapping, error) {
	mapping, err := s.mappings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mapping")
	}
	return mapping, nil
}

func (s *RefundService) mutateMapping(ctx context.Context, id string, fn func(*models.Mapping) error) (*models.Mapping, error) {
	mapping, err := s.mappings.UpdateLocked(ctx, id, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mapping")
	}
	return mapping, nil
}
