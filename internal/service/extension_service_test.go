package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

const mappingID = "5d4c3b2a-1f0e-4d9c-8b7a-6e5f4d3c2b1a"

type extensionStoreStub struct {
	request *models.SessionExtensionRequest
	mapping *models.Mapping
	open    bool
	counts  map[models.ExtensionStatus]int
	items   []models.SessionExtensionRequest
	total   int
}

func (s *extensionStoreStub) Create(ctx context.Context, request *models.SessionExtensionRequest) error {
	request.ID = "new-request"
	s.request = request
	return nil
}

func (s *extensionStoreStub) FindByID(ctx context.Context, id string) (*models.SessionExtensionRequest, error) {
	if s.request == nil {
		return nil, sql.ErrNoRows
	}
	return s.request, nil
}

func (s *extensionStoreStub) ExistsOpenForMapping(ctx context.Context, mappingID string) (bool, error) {
	return s.open, nil
}

func (s *extensionStoreStub) UpdateLocked(ctx context.Context, id string, mutate func(*models.SessionExtensionRequest) error) (*models.SessionExtensionRequest, error) {
	if s.request == nil {
		return nil, sql.ErrNoRows
	}
	if err := mutate(s.request); err != nil {
		return nil, err
	}
	return s.request, nil
}

func (s *extensionStoreStub) ApproveAndCredit(ctx context.Context, id string,
	mutateRequest func(*models.SessionExtensionRequest) error,
	mutateMapping func(*models.Mapping) error,
) (*models.SessionExtensionRequest, *models.Mapping, error) {
	if s.request == nil {
		return nil, nil, sql.ErrNoRows
	}
	saved := *s.request
	if err := mutateRequest(s.request); err != nil {
		*s.request = saved
		return nil, nil, err
	}
	if s.mapping == nil {
		*s.request = saved
		return nil, nil, sql.ErrNoRows
	}
	if err := mutateMapping(s.mapping); err != nil {
		*s.request = saved
		return nil, nil, err
	}
	return s.request, s.mapping, nil
}

func (s *extensionStoreStub) List(ctx context.Context, filter models.ExtensionFilter) ([]models.SessionExtensionRequest, int, error) {
	return s.items, s.total, nil
}

func (s *extensionStoreStub) CountByStatus(ctx context.Context) (map[models.ExtensionStatus]int, error) {
	return s.counts, nil
}

type extensionLedgerStub struct {
	mapping *models.Mapping
}

func (s *extensionLedgerStub) FindByID(ctx context.Context, id string) (*models.Mapping, error) {
	if s.mapping == nil {
		return nil, sql.ErrNoRows
	}
	return s.mapping, nil
}

func validExtensionRequest() dto.CreateExtensionRequest {
	return dto.CreateExtensionRequest{
		MappingID:          mappingID,
		AdditionalSessions: 5,
		PackageName:        "Extension 5",
		PackagePrice:       250000,
	}
}

func TestExtensionServiceCreate(t *testing.T) {
	store := &extensionStoreStub{}
	ledger := &extensionLedgerStub{mapping: &models.Mapping{ID: mappingID, Status: models.MappingStatusActive}}
	svc := NewExtensionService(store, ledger, &notifierStub{}, nil, nil)

	request, err := svc.Create(context.Background(), validExtensionRequest(), adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusPendingPayment, request.Status)
	assert.Equal(t, adminActor.UserID, request.RequesterID)
	assert.Equal(t, 5, request.AdditionalSessions)
}

func TestExtensionServiceCreateForExhaustedMapping(t *testing.T) {
	store := &extensionStoreStub{}
	ledger := &extensionLedgerStub{mapping: &models.Mapping{ID: mappingID, Status: models.MappingStatusSessionsExhausted}}
	svc := NewExtensionService(store, ledger, &notifierStub{}, nil, nil)

	_, err := svc.Create(context.Background(), validExtensionRequest(), adminActor)
	assert.NoError(t, err)
}

func TestExtensionServiceCreateRejectsTerminatedMapping(t *testing.T) {
	ledger := &extensionLedgerStub{mapping: &models.Mapping{ID: mappingID, Status: models.MappingStatusTerminated}}
	svc := NewExtensionService(&extensionStoreStub{}, ledger, &notifierStub{}, nil, nil)

	_, err := svc.Create(context.Background(), validExtensionRequest(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionServiceCreateRejectsSecondOpenRequest(t *testing.T) {
	store := &extensionStoreStub{open: true}
	ledger := &extensionLedgerStub{mapping: &models.Mapping{ID: mappingID, Status: models.MappingStatusActive}}
	svc := NewExtensionService(store, ledger, &notifierStub{}, nil, nil)

	_, err := svc.Create(context.Background(), validExtensionRequest(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionServiceApproveCreditsMapping(t *testing.T) {
	store := &extensionStoreStub{
		request: &models.SessionExtensionRequest{
			ID:                 "r1",
			MappingID:          mappingID,
			RequesterID:        "u1",
			AdditionalSessions: 5,
			Status:             models.ExtensionStatusDepositConfirmed,
		},
		mapping: &models.Mapping{
			ID:                mappingID,
			Status:            models.MappingStatusActive,
			TotalSessions:     10,
			RemainingSessions: 2,
			PurchasedSessions: 10,
		},
	}
	notify := &notifierStub{}
	svc := NewExtensionService(store, &extensionLedgerStub{}, notify, nil, nil)

	request, err := svc.Approve(context.Background(), "r1", dto.ReviewExtensionRequest{Comment: "paid in full"}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusCompleted, request.Status)
	assert.Equal(t, 15, store.mapping.TotalSessions)
	assert.Equal(t, 7, store.mapping.RemainingSessions)
	assert.Equal(t, 15, store.mapping.PurchasedSessions)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotifyExtensionApproved, notify.sent[0].Kind)
	assert.Equal(t, "u1", notify.sent[0].RecipientID)
}

func TestExtensionServiceApproveRevivesExhaustedMapping(t *testing.T) {
	endDate := adminApprovalFixture()
	store := &extensionStoreStub{
		request: &models.SessionExtensionRequest{
			ID:                 "r1",
			MappingID:          mappingID,
			AdditionalSessions: 3,
			Status:             models.ExtensionStatusDepositConfirmed,
		},
		mapping: &models.Mapping{
			ID:                mappingID,
			Status:            models.MappingStatusSessionsExhausted,
			TotalSessions:     10,
			RemainingSessions: 0,
			EndDate:           &endDate,
		},
	}
	svc := NewExtensionService(store, &extensionLedgerStub{}, &notifierStub{}, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", dto.ReviewExtensionRequest{}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusActive, store.mapping.Status)
	assert.Equal(t, 3, store.mapping.RemainingSessions)
	assert.Nil(t, store.mapping.EndDate)
}

func TestExtensionServiceApproveRequiresConfirmedDeposit(t *testing.T) {
	store := &extensionStoreStub{request: &models.SessionExtensionRequest{
		ID:     "r1",
		Status: models.ExtensionStatusPendingPayment,
	}}
	svc := NewExtensionService(store, &extensionLedgerStub{}, &notifierStub{}, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", dto.ReviewExtensionRequest{}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionServiceApproveFailedCreditLeavesRequestRetryable(t *testing.T) {
	store := &extensionStoreStub{
		request: &models.SessionExtensionRequest{
			ID:                 "r1",
			MappingID:          mappingID,
			AdditionalSessions: 5,
			Status:             models.ExtensionStatusDepositConfirmed,
		},
		mapping: &models.Mapping{
			ID:     mappingID,
			Status: models.MappingStatusTerminated,
		},
	}
	svc := NewExtensionService(store, &extensionLedgerStub{}, &notifierStub{}, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", dto.ReviewExtensionRequest{}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	// The request and the credit move in one transaction, so a failed
	// credit leaves the request where it was and a later approval works.
	assert.Equal(t, models.ExtensionStatusDepositConfirmed, store.request.Status)

	store.mapping.Status = models.MappingStatusActive
	request, err := svc.Approve(context.Background(), "r1", dto.ReviewExtensionRequest{}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusCompleted, request.Status)
	assert.Equal(t, 5, store.mapping.RemainingSessions)
}

func TestExtensionServiceRejectRequiresReason(t *testing.T) {
	svc := NewExtensionService(&extensionStoreStub{}, &extensionLedgerStub{}, &notifierStub{}, nil, nil)

	_, err := svc.Reject(context.Background(), "r1", dto.ReviewExtensionRequest{}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExtensionServiceReject(t *testing.T) {
	store := &extensionStoreStub{request: &models.SessionExtensionRequest{
		ID:          "r1",
		RequesterID: "u1",
		Status:      models.ExtensionStatusPendingPayment,
	}}
	notify := &notifierStub{}
	svc := NewExtensionService(store, &extensionLedgerStub{}, notify, nil, nil)

	request, err := svc.Reject(context.Background(), "r1", dto.ReviewExtensionRequest{Reason: "deposit never arrived"}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusRejected, request.Status)
	require.NotNil(t, request.RejectionReason)
	assert.Equal(t, "deposit never arrived", *request.RejectionReason)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotifyExtensionRejected, notify.sent[0].Kind)
}

func TestExtensionServiceRejectAllowedUntilCompleted(t *testing.T) {
	store := &extensionStoreStub{request: &models.SessionExtensionRequest{
		ID:     "r1",
		Status: models.ExtensionStatusApproved,
	}}
	svc := NewExtensionService(store, &extensionLedgerStub{}, &notifierStub{}, nil, nil)

	request, err := svc.Reject(context.Background(), "r1", dto.ReviewExtensionRequest{Reason: "chargeback"}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusRejected, request.Status)

	_, err = svc.Reject(context.Background(), "r1", dto.ReviewExtensionRequest{Reason: "again"}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestExtensionServiceStatistics(t *testing.T) {
	store := &extensionStoreStub{counts: map[models.ExtensionStatus]int{
		models.ExtensionStatusPendingPayment: 2,
		models.ExtensionStatusCompleted:      5,
		models.ExtensionStatusRejected:       1,
	}}
	svc := NewExtensionService(store, &extensionLedgerStub{}, &notifierStub{}, nil, nil)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Total)
	assert.Equal(t, 5, stats.ByStatus[models.ExtensionStatusCompleted])
}
