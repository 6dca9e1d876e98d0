package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var mappingColumnNames = []string{
	"id", "consultant_id", "client_id", "branch_code", "status", "payment_status",
	"total_sessions", "used_sessions", "remaining_sessions", "purchased_sessions", "package_name", "package_price",
	"payment_amount", "payment_method", "payment_reference", "payment_date",
	"admin_approval_date", "approved_by", "start_date", "end_date",
	"termination_reason", "terminated_by", "terminated_at", "created_at", "updated_at",
}

func mappingRow(id string, status models.MappingStatus, payStatus models.PaymentStatus, total, used, remaining int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(mappingColumnNames).AddRow(
		id, "con-1", "cli-1", "GANGNAM", status, payStatus,
		total, used, remaining, total, "Standard 10", int64(500000),
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, now, now,
	)
}

func TestMappingRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectQuery(`SELECT .+ FROM mappings WHERE id = \$1`).
		WithArgs("m1").
		WillReturnRows(mappingRow("m1", models.MappingStatusActive, models.PaymentStatusApproved, 10, 2, 8))

	mapping, err := repo.FindByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", mapping.ID)
	assert.Equal(t, models.MappingStatusActive, mapping.Status)
	assert.Equal(t, 8, mapping.RemainingSessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectQuery(`SELECT 1 FROM mappings WHERE consultant_id = \$1 AND client_id = \$2 AND branch_code = \$3 AND status = \$4 LIMIT 1`).
		WithArgs("con-1", "cli-1", "GANGNAM", models.MappingStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), "con-1", "cli-1", "GANGNAM", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM mappings WHERE .+ AND id <> \$5 LIMIT 1`).
		WithArgs("con-1", "cli-1", "GANGNAM", models.MappingStatusActive, "m1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsActive(context.Background(), "con-1", "cli-1", "GANGNAM", "m1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectExec(`INSERT INTO mappings`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mapping := &models.Mapping{
		ConsultantID:      "con-1",
		ClientID:          "cli-1",
		BranchCode:        "GANGNAM",
		Status:            models.MappingStatusPendingPayment,
		PayStatus:         models.PaymentStatusPending,
		TotalSessions:     10,
		RemainingSessions: 10,
	}
	require.NoError(t, repo.Create(context.Background(), mapping))
	assert.NotEmpty(t, mapping.ID)
	assert.False(t, mapping.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryUpdateLocked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM mappings WHERE id = \$1 FOR UPDATE`).
		WithArgs("m1").
		WillReturnRows(mappingRow("m1", models.MappingStatusPendingPayment, models.PaymentStatusDepositConfirmed, 10, 0, 10))
	mock.ExpectExec(`UPDATE mappings SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mapping, err := repo.UpdateLocked(context.Background(), "m1", func(m *models.Mapping) error {
		m.Status = models.MappingStatusActive
		m.PayStatus = models.PaymentStatusApproved
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusActive, mapping.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryUpdateLockedRollsBackOnMutateError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM mappings WHERE id = \$1 FOR UPDATE`).
		WithArgs("m1").
		WillReturnRows(mappingRow("m1", models.MappingStatusTerminated, models.PaymentStatusApproved, 10, 10, 0))
	mock.ExpectRollback()

	wantErr := appErrors.StateConflict("mapping", string(models.MappingStatusTerminated), "partial refund")
	_, err := repo.UpdateLocked(context.Background(), "m1", func(m *models.Mapping) error {
		return wantErr
	})
	require.Error(t, err)
	assert.Equal(t, wantErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryUpdateLockedNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM mappings WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.UpdateLocked(context.Background(), "missing", func(m *models.Mapping) error { return nil })
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryLockTimeoutMapsToConcurrencyConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM mappings WHERE id = \$1 FOR UPDATE`).
		WithArgs("m1").
		WillReturnError(&pq.Error{Code: "55P03"})
	mock.ExpectRollback()

	_, err := repo.UpdateLocked(context.Background(), "m1", func(m *models.Mapping) error { return nil })
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConcurrencyConflict.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryCompleteScheduleAndConsume(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	now := time.Now()
	scheduleRows := sqlmock.NewRows([]string{
		"id", "consultant_id", "client_id", "branch_code", "date", "start_time", "end_time",
		"status", "consultation_type", "title", "description", "notes", "processed", "created_at", "updated_at",
	}).AddRow("sch1", "con-1", "cli-1", "GANGNAM", "2026-08-27", "10:00", "11:00",
		models.ScheduleStatusConfirmed, models.ConsultationTypeIndividual, "Weekly", "", "", false, now, now)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM schedules WHERE id = \$1 FOR UPDATE`).
		WithArgs("sch1").
		WillReturnRows(scheduleRows)
	mock.ExpectExec(`UPDATE schedules SET status = \$2, processed = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM mappings WHERE consultant_id = \$1 AND client_id = \$2 AND status = \$3`).
		WithArgs("con-1", "cli-1", models.MappingStatusActive).
		WillReturnRows(mappingRow("m1", models.MappingStatusActive, models.PaymentStatusApproved, 10, 9, 1))
	mock.ExpectExec(`UPDATE mappings SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	schedule, mapping, err := repo.CompleteScheduleAndConsume(context.Background(), "sch1")
	require.NoError(t, err)
	require.NotNil(t, schedule)
	require.NotNil(t, mapping)
	assert.Equal(t, models.ScheduleStatusCompleted, schedule.Status)
	assert.True(t, schedule.Processed)
	assert.Equal(t, 10, mapping.UsedSessions)
	assert.Equal(t, 0, mapping.RemainingSessions)
	assert.Equal(t, models.MappingStatusSessionsExhausted, mapping.Status)
	assert.NotNil(t, mapping.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryCompleteScheduleSkipsProcessed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMappingRepository(db, time.Second)

	now := time.Now()
	scheduleRows := sqlmock.NewRows([]string{
		"id", "consultant_id", "client_id", "branch_code", "date", "start_time", "end_time",
		"status", "consultation_type", "title", "description", "notes", "processed", "created_at", "updated_at",
	}).AddRow("sch1", "con-1", "cli-1", "GANGNAM", "2026-08-27", "10:00", "11:00",
		models.ScheduleStatusCompleted, models.ConsultationTypeIndividual, "Weekly", "", "", true, now, now)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM schedules WHERE id = \$1 FOR UPDATE`).
		WithArgs("sch1").
		WillReturnRows(scheduleRows)
	mock.ExpectRollback()

	schedule, mapping, err := repo.CompleteScheduleAndConsume(context.Background(), "sch1")
	require.NoError(t, err)
	assert.Nil(t, schedule)
	assert.Nil(t, mapping)
	assert.NoError(t, mock.ExpectationsWereMet())
}
