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

type availabilityStoreStub struct {
	slots     []models.AvailabilitySlot
	vacations []models.VacationException
	slot      *models.AvailabilitySlot
	vacation  *models.VacationException
	deleteErr error
	created   []*models.AvailabilitySlot
}

func (s *availabilityStoreStub) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	slot.ID = "new-slot"
	s.created = append(s.created, slot)
	return nil
}

func (s *availabilityStoreStub) FindSlotByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	if s.slot == nil {
		return nil, sql.ErrNoRows
	}
	return s.slot, nil
}

func (s *availabilityStoreStub) ListSlotsByConsultant(ctx context.Context, consultantID string) ([]models.AvailabilitySlot, error) {
	return s.slots, nil
}

func (s *availabilityStoreStub) ListSlotsByConsultantAndDay(ctx context.Context, consultantID string, day models.DayOfWeek) ([]models.AvailabilitySlot, error) {
	var matched []models.AvailabilitySlot
	for _, slot := range s.slots {
		if slot.DayOfWeek == day {
			matched = append(matched, slot)
		}
	}
	return matched, nil
}

func (s *availabilityStoreStub) UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	return nil
}

func (s *availabilityStoreStub) DeleteSlot(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *availabilityStoreStub) CreateVacation(ctx context.Context, vacation *models.VacationException) error {
	vacation.ID = "new-vacation"
	return nil
}

func (s *availabilityStoreStub) FindVacationByID(ctx context.Context, id string) (*models.VacationException, error) {
	if s.vacation == nil {
		return nil, sql.ErrNoRows
	}
	return s.vacation, nil
}

func (s *availabilityStoreStub) ListVacationsByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.VacationException, error) {
	return s.vacations, nil
}

func (s *availabilityStoreStub) ListVacationsByConsultant(ctx context.Context, consultantID, from, to string) ([]models.VacationException, error) {
	return s.vacations, nil
}

func (s *availabilityStoreStub) DeleteVacation(ctx context.Context, id string) error {
	return s.deleteErr
}

type dayBookingReaderStub struct {
	bookings []models.Schedule
}

func (s dayBookingReaderStub) ListBlockingByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.Schedule, error) {
	return s.bookings, nil
}

func newAvailabilityService(store *availabilityStoreStub, bookings dayBookingReaderStub) *AvailabilityService {
	return NewAvailabilityService(store, bookings, nil, nil)
}

func TestAvailabilityServiceCreateSlot(t *testing.T) {
	store := &availabilityStoreStub{}
	svc := newAvailabilityService(store, dayBookingReaderStub{})

	slot, err := svc.CreateSlot(context.Background(), dto.CreateSlotRequest{
		ConsultantID: consultantID,
		DayOfWeek:    models.Monday,
		StartTime:    "09:00",
		EndTime:      "13:00",
	}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.Monday, slot.DayOfWeek)
	assert.Len(t, store.created, 1)
}

func TestAvailabilityServiceCreateSlotRejectsOverlap(t *testing.T) {
	store := &availabilityStoreStub{slots: []models.AvailabilitySlot{
		{ID: "s1", ConsultantID: consultantID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"},
	}}
	svc := newAvailabilityService(store, dayBookingReaderStub{})

	_, err := svc.CreateSlot(context.Background(), dto.CreateSlotRequest{
		ConsultantID: consultantID,
		DayOfWeek:    models.Monday,
		StartTime:    "11:00",
		EndTime:      "14:00",
	}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceCreateSlotAllowsAdjacentWindows(t *testing.T) {
	store := &availabilityStoreStub{slots: []models.AvailabilitySlot{
		{ID: "s1", ConsultantID: consultantID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"},
	}}
	svc := newAvailabilityService(store, dayBookingReaderStub{})

	_, err := svc.CreateSlot(context.Background(), dto.CreateSlotRequest{
		ConsultantID: consultantID,
		DayOfWeek:    models.Monday,
		StartTime:    "12:00",
		EndTime:      "15:00",
	}, adminActor)
	assert.NoError(t, err)
}

func TestAvailabilityServiceCreateSlotRejectsInvertedWindow(t *testing.T) {
	svc := newAvailabilityService(&availabilityStoreStub{}, dayBookingReaderStub{})

	_, err := svc.CreateSlot(context.Background(), dto.CreateSlotRequest{
		ConsultantID: consultantID,
		DayOfWeek:    models.Monday,
		StartTime:    "13:00",
		EndTime:      "09:00",
	}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceCreateVacationCustomRequiresTimes(t *testing.T) {
	svc := newAvailabilityService(&availabilityStoreStub{}, dayBookingReaderStub{})

	_, err := svc.CreateVacation(context.Background(), dto.CreateVacationRequest{
		ConsultantID: consultantID,
		Date:         "2026-09-07",
		Type:         models.VacationCustom,
	}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceCreateVacationRejectsBookingOverlap(t *testing.T) {
	bookings := dayBookingReaderStub{bookings: []models.Schedule{
		{ID: "sch1", ConsultantID: consultantID, Date: "2026-09-07", StartTime: "10:00", EndTime: "11:00", Status: models.ScheduleStatusBooked},
	}}
	svc := newAvailabilityService(&availabilityStoreStub{}, bookings)

	_, err := svc.CreateVacation(context.Background(), dto.CreateVacationRequest{
		ConsultantID: consultantID,
		Date:         "2026-09-07",
		Type:         models.VacationMorning,
	}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceCreateVacationAfternoonClearsMorningBooking(t *testing.T) {
	bookings := dayBookingReaderStub{bookings: []models.Schedule{
		{ID: "sch1", ConsultantID: consultantID, Date: "2026-09-07", StartTime: "10:00", EndTime: "11:00", Status: models.ScheduleStatusBooked},
	}}
	svc := newAvailabilityService(&availabilityStoreStub{}, bookings)

	vacation, err := svc.CreateVacation(context.Background(), dto.CreateVacationRequest{
		ConsultantID: consultantID,
		Date:         "2026-09-07",
		Type:         models.VacationAfternoon,
		Reason:       "training",
	}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.VacationAfternoon, vacation.Type)
	assert.Nil(t, vacation.StartTime)
}

func TestAvailabilityServiceResolveDay(t *testing.T) {
	store := &availabilityStoreStub{
		slots: []models.AvailabilitySlot{
			{ID: "s1", ConsultantID: consultantID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00"},
		},
	}
	bookings := dayBookingReaderStub{bookings: []models.Schedule{
		{ID: "sch1", StartTime: "10:00", EndTime: "11:00", Status: models.ScheduleStatusBooked},
	}}
	svc := newAvailabilityService(store, bookings)

	day, err := svc.ResolveDay(context.Background(), consultantID, "2026-09-07")
	require.NoError(t, err)
	require.Len(t, day.Slots, 3)
	assert.Equal(t, dto.DaySlot{StartTime: "09:00", EndTime: "10:00", Available: true}, day.Slots[0])
	assert.Equal(t, dto.DaySlot{StartTime: "10:00", EndTime: "11:00", Available: false, Reason: "booked"}, day.Slots[1])
	assert.Equal(t, dto.DaySlot{StartTime: "11:00", EndTime: "13:00", Available: true}, day.Slots[2])
}

func TestAvailabilityServiceResolveDayWithVacationAndBooking(t *testing.T) {
	custom := "12:00"
	customEnd := "13:00"
	store := &availabilityStoreStub{
		slots: []models.AvailabilitySlot{
			{ID: "s1", ConsultantID: consultantID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00"},
		},
		vacations: []models.VacationException{
			{ID: "v1", Type: models.VacationCustom, StartTime: &custom, EndTime: &customEnd},
		},
	}
	bookings := dayBookingReaderStub{bookings: []models.Schedule{
		{ID: "sch1", StartTime: "09:00", EndTime: "10:00", Status: models.ScheduleStatusConfirmed},
	}}
	svc := newAvailabilityService(store, bookings)

	day, err := svc.ResolveDay(context.Background(), consultantID, "2026-09-07")
	require.NoError(t, err)
	require.Len(t, day.Slots, 3)
	assert.False(t, day.Slots[0].Available)
	assert.Equal(t, "booked", day.Slots[0].Reason)
	assert.True(t, day.Slots[1].Available)
	assert.Equal(t, "10:00", day.Slots[1].StartTime)
	assert.Equal(t, "12:00", day.Slots[1].EndTime)
	assert.False(t, day.Slots[2].Available)
	assert.Equal(t, "vacation", day.Slots[2].Reason)
}

func TestAvailabilityServiceResolveDayFullDayVacation(t *testing.T) {
	store := &availabilityStoreStub{
		slots: []models.AvailabilitySlot{
			{ID: "s1", ConsultantID: consultantID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00"},
		},
		vacations: []models.VacationException{
			{ID: "v1", Type: models.VacationFullDay},
		},
	}
	svc := newAvailabilityService(store, dayBookingReaderStub{})

	day, err := svc.ResolveDay(context.Background(), consultantID, "2026-09-07")
	require.NoError(t, err)
	require.Len(t, day.Slots, 1)
	assert.False(t, day.Slots[0].Available)
	assert.Equal(t, "09:00", day.Slots[0].StartTime)
	assert.Equal(t, "13:00", day.Slots[0].EndTime)
}

func TestAvailabilityServiceDeleteSlotNotFound(t *testing.T) {
	store := &availabilityStoreStub{deleteErr: sql.ErrNoRows}
	svc := newAvailabilityService(store, dayBookingReaderStub{})

	err := svc.DeleteSlot(context.Background(), "missing", adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceForbiddenForClients(t *testing.T) {
	svc := newAvailabilityService(&availabilityStoreStub{}, dayBookingReaderStub{})
	clientActor := models.Actor{UserID: "c1", Role: models.RoleClient}

	_, err := svc.CreateSlot(context.Background(), dto.CreateSlotRequest{}, clientActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	err = svc.DeleteVacation(context.Background(), "v1", clientActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
