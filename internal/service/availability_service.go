package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

type availabilityStore interface {
	CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error
	FindSlotByID(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	ListSlotsByConsultant(ctx context.Context, consultantID string) ([]models.AvailabilitySlot, error)
	ListSlotsByConsultantAndDay(ctx context.Context, consultantID string, day models.DayOfWeek) ([]models.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) error
	DeleteSlot(ctx context.Context, id string) error
	CreateVacation(ctx context.Context, vacation *models.VacationException) error
	FindVacationByID(ctx context.Context, id string) (*models.VacationException, error)
	ListVacationsByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.VacationException, error)
	ListVacationsByConsultant(ctx context.Context, consultantID, from, to string) ([]models.VacationException, error)
	DeleteVacation(ctx context.Context, id string) error
}

type dayBookingReader interface {
	ListBlockingByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.Schedule, error)
}

// AvailabilityService manages consultants' weekly availability and vacation
// exceptions, and resolves the bookable picture of a day.
type AvailabilityService struct {
	repo      availabilityStore
	bookings  dayBookingReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds an AvailabilityService with sane defaults.
func NewAvailabilityService(
	repo availabilityStore,
	bookings dayBookingReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, bookings: bookings, validator: validate, logger: logger}
}

// CreateSlot adds a recurring weekly window. Windows on the same weekday
// must not overlap each other.
func (s *AvailabilityService) CreateSlot(ctx context.Context, req dto.CreateSlotRequest, actor models.Actor) (*models.AvailabilitySlot, error) {
	if !actor.Can(models.CapManageAvailability) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	start, end, err := parseClockPair(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if !req.DayOfWeek.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}

	if err := s.ensureSlotFits(ctx, req.ConsultantID, req.DayOfWeek, start, end, ""); err != nil {
		return nil, err
	}

	slot := &models.AvailabilitySlot{
		ConsultantID: req.ConsultantID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	s.logger.Info("availability slot created",
		zap.String("slot_id", slot.ID),
		zap.String("consultant_id", slot.ConsultantID),
		zap.String("day", string(slot.DayOfWeek)))
	return slot, nil
}

// UpdateSlot moves an existing weekly window.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, id string, req dto.UpdateSlotRequest, actor models.Actor) (*models.AvailabilitySlot, error) {
	if !actor.Can(models.CapManageAvailability) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	start, end, err := parseClockPair(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if !req.DayOfWeek.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}

	slot, err := s.repo.FindSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}

	if err := s.ensureSlotFits(ctx, slot.ConsultantID, req.DayOfWeek, start, end, slot.ID); err != nil {
		return nil, err
	}

	slot.DayOfWeek = req.DayOfWeek
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	if err := s.repo.UpdateSlot(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot")
	}
	s.logger.Info("availability slot updated", zap.String("slot_id", slot.ID))
	return slot, nil
}

// DeleteSlot removes a weekly window. Existing bookings stay untouched.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, id string, actor models.Actor) error {
	if !actor.Can(models.CapManageAvailability) {
		return appErrors.ErrForbidden
	}
	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	s.logger.Info("availability slot deleted", zap.String("slot_id", id))
	return nil
}

// ListSlots returns a consultant's weekly windows.
func (s *AvailabilityService) ListSlots(ctx context.Context, consultantID string) ([]models.AvailabilitySlot, error) {
	slots, err := s.repo.ListSlotsByConsultant(ctx, consultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// CreateVacation blocks part or all of one date. CUSTOM vacations carry
// explicit times; the window must not cut through existing bookings.
func (s *AvailabilityService) CreateVacation(ctx context.Context, req dto.CreateVacationRequest, actor models.Actor) (*models.VacationException, error) {
	if !actor.Can(models.CapManageAvailability) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vacation payload")
	}
	if _, err := models.ParseDate(req.Date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	var start, end int
	switch req.Type {
	case models.VacationCustom:
		if req.StartTime == "" || req.EndTime == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom vacations require start and end times")
		}
		var err error
		start, end, err = parseClockPair(req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
	case models.VacationFullDay, models.VacationMorning, models.VacationAfternoon:
		start, end, _ = req.Type.Window()
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid vacation type")
	}

	bookings, err := s.bookings.ListBlockingByConsultantAndDate(ctx, req.ConsultantID, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	for _, booking := range bookings {
		bStart, err1 := models.ClockMinutes(booking.StartTime)
		bEnd, err2 := models.ClockMinutes(booking.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if models.RangesOverlap(start, end, bStart, bEnd) {
			return nil, appErrors.Clone(appErrors.ErrSchedulingConflict,
				"vacation overlaps an existing booking; cancel or move the booking first")
		}
	}

	vacation := &models.VacationException{
		ConsultantID: req.ConsultantID,
		Date:         req.Date,
		Type:         req.Type,
		Reason:       req.Reason,
	}
	if req.Type == models.VacationCustom {
		vacation.StartTime = &req.StartTime
		vacation.EndTime = &req.EndTime
	}
	if err := s.repo.CreateVacation(ctx, vacation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create vacation")
	}
	s.logger.Info("vacation created",
		zap.String("vacation_id", vacation.ID),
		zap.String("consultant_id", vacation.ConsultantID),
		zap.String("date", vacation.Date),
		zap.String("type", string(vacation.Type)))
	return vacation, nil
}

// DeleteVacation removes a vacation exception.
func (s *AvailabilityService) DeleteVacation(ctx context.Context, id string, actor models.Actor) error {
	if !actor.Can(models.CapManageAvailability) {
		return appErrors.ErrForbidden
	}
	if err := s.repo.DeleteVacation(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "vacation exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete vacation")
	}
	s.logger.Info("vacation deleted", zap.String("vacation_id", id))
	return nil
}

// ListVacations returns a consultant's exceptions in a date range.
func (s *AvailabilityService) ListVacations(ctx context.Context, consultantID, from, to string) ([]models.VacationException, error) {
	vacations, err := s.repo.ListVacationsByConsultant(ctx, consultantID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vacations")
	}
	return vacations, nil
}

// ResolveDay computes the bookable intervals of one date: weekly slots minus
// vacations minus existing bookings.
func (s *AvailabilityService) ResolveDay(ctx context.Context, consultantID, date string) (*dto.DayAvailability, error) {
	parsed, err := models.ParseDate(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	slots, err := s.repo.ListSlotsByConsultantAndDay(ctx, consultantID, models.DayOfWeekFor(parsed))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	vacations, err := s.repo.ListVacationsByConsultantAndDate(ctx, consultantID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vacations")
	}
	bookings, err := s.bookings.ListBlockingByConsultantAndDate(ctx, consultantID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	type blocked struct {
		start, end int
		reason     string
	}
	var blocks []blocked
	for _, vacation := range vacations {
		vStart, vEnd, ok := vacation.Type.Window()
		if !ok {
			if vacation.StartTime == nil || vacation.EndTime == nil {
				continue
			}
			var err1, err2 error
			vStart, err1 = models.ClockMinutes(*vacation.StartTime)
			vEnd, err2 = models.ClockMinutes(*vacation.EndTime)
			if err1 != nil || err2 != nil {
				continue
			}
		}
		blocks = append(blocks, blocked{vStart, vEnd, "vacation"})
	}
	for _, booking := range bookings {
		bStart, err1 := models.ClockMinutes(booking.StartTime)
		bEnd, err2 := models.ClockMinutes(booking.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		blocks = append(blocks, blocked{bStart, bEnd, "booked"})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].start < blocks[j].start })

	result := &dto.DayAvailability{ConsultantID: consultantID, Date: date}
	for _, slot := range slots {
		slotStart, err1 := models.ClockMinutes(slot.StartTime)
		slotEnd, err2 := models.ClockMinutes(slot.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		cursor := slotStart
		for _, b := range blocks {
			if !models.RangesOverlap(cursor, slotEnd, b.start, b.end) {
				continue
			}
			if b.start > cursor {
				result.Slots = append(result.Slots, dto.DaySlot{
					StartTime: models.FormatClock(cursor),
					EndTime:   models.FormatClock(b.start),
					Available: true,
				})
			}
			blockEnd := b.end
			if blockEnd > slotEnd {
				blockEnd = slotEnd
			}
			blockStart := b.start
			if blockStart < cursor {
				blockStart = cursor
			}
			result.Slots = append(result.Slots, dto.DaySlot{
				StartTime: models.FormatClock(blockStart),
				EndTime:   models.FormatClock(blockEnd),
				Available: false,
				Reason:    b.reason,
			})
			if blockEnd > cursor {
				cursor = blockEnd
			}
		}
		if cursor < slotEnd {
			result.Slots = append(result.Slots, dto.DaySlot{
				StartTime: models.FormatClock(cursor),
				EndTime:   models.FormatClock(slotEnd),
				Available: true,
			})
		}
	}
	return result, nil
}

// ensureSlotFits rejects weekly windows overlapping an existing one on the
// same weekday.
func (s *AvailabilityService) ensureSlotFits(ctx context.Context, consultantID string, day models.DayOfWeek, start, end int, excludeID string) error {
	existing, err := s.repo.ListSlotsByConsultantAndDay(ctx, consultantID, day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	for _, slot := range existing {
		if slot.ID == excludeID {
			continue
		}
		slotStart, err1 := models.ClockMinutes(slot.StartTime)
		slotEnd, err2 := models.ClockMinutes(slot.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if models.RangesOverlap(start, end, slotStart, slotEnd) {
			return appErrors.Clone(appErrors.ErrSchedulingConflict, "window overlaps an existing availability slot")
		}
	}
	return nil
}

func parseClockPair(startTime, endTime string) (int, int, error) {
	start, err := models.ClockMinutes(startTime)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	end, err := models.ClockMinutes(endTime)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if start >= end {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return start, end, nil
}
