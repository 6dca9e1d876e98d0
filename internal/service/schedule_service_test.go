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

type scheduleStoreStub struct {
	schedule  *models.Schedule
	items     []models.Schedule
	total     int
	createErr error
	updateErr error
	booked    []*models.Schedule
}

func (s *scheduleStoreStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s.schedule == nil {
		return nil, sql.ErrNoRows
	}
	return s.schedule, nil
}

func (s *scheduleStoreStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	return s.items, s.total, nil
}

func (s *scheduleStoreStub) CreateBooked(ctx context.Context, schedule *models.Schedule) error {
	if s.createErr != nil {
		return s.createErr
	}
	schedule.ID = "new-schedule"
	schedule.Status = models.ScheduleStatusBooked
	s.booked = append(s.booked, schedule)
	return nil
}

func (s *scheduleStoreStub) UpdateLocked(ctx context.Context, id string, mutate func(*models.Schedule) error) (*models.Schedule, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if s.schedule == nil {
		return nil, sql.ErrNoRows
	}
	if err := mutate(s.schedule); err != nil {
		return nil, err
	}
	return s.schedule, nil
}

type activeMappingFinderStub struct {
	mapping *models.Mapping
}

func (s activeMappingFinderStub) FindActiveByPair(ctx context.Context, consultantID, clientID string) (*models.Mapping, error) {
	if s.mapping == nil {
		return nil, sql.ErrNoRows
	}
	return s.mapping, nil
}

type availabilityReaderStub struct {
	slots     []models.AvailabilitySlot
	vacations []models.VacationException
}

func (s availabilityReaderStub) ListSlotsByConsultantAndDay(ctx context.Context, consultantID string, day models.DayOfWeek) ([]models.AvailabilitySlot, error) {
	return s.slots, nil
}

func (s availabilityReaderStub) ListVacationsByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.VacationException, error) {
	return s.vacations, nil
}

type labelResolverStub struct {
	labels map[string]string
}

func (s labelResolverStub) Label(ctx context.Context, group, value string) (string, error) {
	if label, ok := s.labels[value]; ok {
		return label, nil
	}
	return value, nil
}

func newScheduleService(store *scheduleStoreStub, mapping *models.Mapping, calendar availabilityReaderStub, notify *notifierStub) *ScheduleService {
	return NewScheduleService(store, activeMappingFinderStub{mapping: mapping}, calendar,
		labelResolverStub{}, notify, nil, nil)
}

// 2026-09-07 is a Monday.
func validBooking() dto.CreateScheduleRequest {
	return dto.CreateScheduleRequest{
		ConsultantID: consultantID,
		ClientID:     clientID,
		Date:         "2026-09-07",
		StartTime:    "10:00",
		EndTime:      "11:00",
		Type:         models.ConsultationTypeIndividual,
		Title:        "Weekly session",
	}
}

func mondayMorning() availabilityReaderStub {
	return availabilityReaderStub{slots: []models.AvailabilitySlot{
		{ID: "s1", ConsultantID: consultantID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00"},
	}}
}

func activeMapping(remaining int) *models.Mapping {
	return &models.Mapping{
		ID:                "m1",
		ConsultantID:      consultantID,
		ClientID:          clientID,
		BranchCode:        "GANGNAM",
		Status:            models.MappingStatusActive,
		RemainingSessions: remaining,
	}
}

func TestScheduleServiceBook(t *testing.T) {
	store := &scheduleStoreStub{}
	notify := &notifierStub{}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), notify)

	schedule, err := svc.Book(context.Background(), validBooking(), adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusBooked, schedule.Status)
	assert.Equal(t, "GANGNAM", schedule.BranchCode)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotifyScheduleBooked, notify.sent[0].Kind)
	assert.Equal(t, consultantID, notify.sent[0].RecipientID)
}

func TestScheduleServiceBookWithoutActiveMapping(t *testing.T) {
	svc := newScheduleService(&scheduleStoreStub{}, nil, mondayMorning(), &notifierStub{})

	_, err := svc.Book(context.Background(), validBooking(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceBookExhaustedBalance(t *testing.T) {
	svc := newScheduleService(&scheduleStoreStub{}, activeMapping(0), mondayMorning(), &notifierStub{})

	_, err := svc.Book(context.Background(), validBooking(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceBookOutsideAvailability(t *testing.T) {
	svc := newScheduleService(&scheduleStoreStub{}, activeMapping(5), mondayMorning(), &notifierStub{})

	req := validBooking()
	req.StartTime = "12:30"
	req.EndTime = "14:00"
	_, err := svc.Book(context.Background(), req, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceBookDuringVacation(t *testing.T) {
	calendar := mondayMorning()
	calendar.vacations = []models.VacationException{
		{ID: "v1", ConsultantID: consultantID, Date: "2026-09-07", Type: models.VacationMorning},
	}
	svc := newScheduleService(&scheduleStoreStub{}, activeMapping(5), calendar, &notifierStub{})

	_, err := svc.Book(context.Background(), validBooking(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceBookDuringCustomVacation(t *testing.T) {
	start, end := "10:30", "11:30"
	calendar := mondayMorning()
	calendar.vacations = []models.VacationException{
		{ID: "v1", ConsultantID: consultantID, Date: "2026-09-07", Type: models.VacationCustom, StartTime: &start, EndTime: &end},
	}
	svc := newScheduleService(&scheduleStoreStub{}, activeMapping(5), calendar, &notifierStub{})

	_, err := svc.Book(context.Background(), validBooking(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceBookInvalidWindow(t *testing.T) {
	svc := newScheduleService(&scheduleStoreStub{}, activeMapping(5), mondayMorning(), &notifierStub{})

	req := validBooking()
	req.StartTime = "11:00"
	req.EndTime = "10:00"
	_, err := svc.Book(context.Background(), req, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceConfirm(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:           "sch1",
		ConsultantID: consultantID,
		ClientID:     clientID,
		Date:         "2026-09-07",
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       models.ScheduleStatusBooked,
	}}
	notify := &notifierStub{}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), notify)

	schedule, err := svc.Confirm(context.Background(), "sch1", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusConfirmed, schedule.Status)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotifyScheduleConfirmed, notify.sent[0].Kind)
}

func TestScheduleServiceConfirmTwice(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID: "sch1", Status: models.ScheduleStatusConfirmed,
	}}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), &notifierStub{})

	_, err := svc.Confirm(context.Background(), "sch1", adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCancelProcessed(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID: "sch1", Status: models.ScheduleStatusConfirmed, Processed: true,
	}}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), &notifierStub{})

	_, err := svc.Cancel(context.Background(), "sch1", dto.CancelScheduleRequest{Reason: "client request"}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCancel(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:       "sch1",
		ClientID: clientID,
		Status:   models.ScheduleStatusBooked,
	}}
	notify := &notifierStub{}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), notify)

	schedule, err := svc.Cancel(context.Background(), "sch1", dto.CancelScheduleRequest{Reason: "client request"}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, schedule.Status)
	assert.Equal(t, "client request", schedule.Notes)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotifyScheduleCancelled, notify.sent[0].Kind)
}

func TestScheduleServiceCancelByOwningConsultant(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:           "sch1",
		ConsultantID: consultantID,
		ClientID:     clientID,
		Status:       models.ScheduleStatusBooked,
	}}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), &notifierStub{})

	owner := models.Actor{UserID: consultantID, Role: models.RoleConsultant, BranchCode: "GANGNAM"}
	schedule, err := svc.Cancel(context.Background(), "sch1", dto.CancelScheduleRequest{Reason: "client request"}, owner)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, schedule.Status)
}

func TestScheduleServiceCancelForeignScheduleForbidden(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:           "sch1",
		ConsultantID: consultantID,
		ClientID:     clientID,
		Status:       models.ScheduleStatusBooked,
	}}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), &notifierStub{})

	stranger := models.Actor{UserID: "con-other", Role: models.RoleConsultant, BranchCode: "GANGNAM"}
	_, err := svc.Cancel(context.Background(), "sch1", dto.CancelScheduleRequest{Reason: "not mine"}, stranger)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdateForeignScheduleForbidden(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:           "sch1",
		ConsultantID: consultantID,
		Date:         "2026-09-07",
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       models.ScheduleStatusBooked,
	}}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), &notifierStub{})

	notes := "sneaky edit"
	stranger := models.Actor{UserID: "con-other", Role: models.RoleConsultant, BranchCode: "GANGNAM"}
	_, err := svc.Update(context.Background(), "sch1", dto.UpdateScheduleRequest{Notes: &notes}, stranger)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdateRevalidatesMovedWindow(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:           "sch1",
		ConsultantID: consultantID,
		ClientID:     clientID,
		Date:         "2026-09-07",
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       models.ScheduleStatusBooked,
	}}
	svc := newScheduleService(store, activeMapping(5), mondayMorning(), &notifierStub{})

	badStart, badEnd := "14:00", "15:00"
	_, err := svc.Update(context.Background(), "sch1",
		dto.UpdateScheduleRequest{StartTime: &badStart, EndTime: &badEnd}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdateNotesOnly(t *testing.T) {
	store := &scheduleStoreStub{schedule: &models.Schedule{
		ID:        "sch1",
		Date:      "2026-09-07",
		StartTime: "10:00",
		EndTime:   "11:00",
		Status:    models.ScheduleStatusBooked,
	}}
	svc := newScheduleService(store, activeMapping(5), availabilityReaderStub{}, &notifierStub{})

	notes := "bring intake form"
	schedule, err := svc.Update(context.Background(), "sch1", dto.UpdateScheduleRequest{Notes: &notes}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, notes, schedule.Notes)
}
