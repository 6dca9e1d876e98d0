package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

type scheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	CreateBooked(ctx context.Context, schedule *models.Schedule) error
	UpdateLocked(ctx context.Context, id string, mutate func(*models.Schedule) error) (*models.Schedule, error)
}

type activeMappingFinder interface {
	FindActiveByPair(ctx context.Context, consultantID, clientID string) (*models.Mapping, error)
}

type availabilityReader interface {
	ListSlotsByConsultantAndDay(ctx context.Context, consultantID string, day models.DayOfWeek) ([]models.AvailabilitySlot, error)
	ListVacationsByConsultantAndDate(ctx context.Context, consultantID, date string) ([]models.VacationException, error)
}

type labelResolver interface {
	Label(ctx context.Context, group, value string) (string, error)
}

// ScheduleService books and manages consultation schedules against the
// availability calendar and the entitlement ledger.
type ScheduleService struct {
	repo      scheduleStore
	mappings  activeMappingFinder
	calendar  availabilityReader
	catalog   labelResolver
	notify    notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService builds a ScheduleService with sane defaults.
func NewScheduleService(
	repo scheduleStore,
	mappings activeMappingFinder,
	calendar availabilityReader,
	catalog labelResolver,
	notify notifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:      repo,
		mappings:  mappings,
		calendar:  calendar,
		catalog:   catalog,
		notify:    notify,
		validator: validate,
		logger:    logger,
	}
}

// Book creates a BOOKED schedule. The pair must hold an active mapping with
// remaining sessions, the window must fall inside the consultant's weekly
// availability, clear of vacations, and clear of other bookings.
func (s *ScheduleService) Book(ctx context.Context, req dto.CreateScheduleRequest, actor models.Actor) (*models.Schedule, error) {
	if !actor.Can(models.CapManageSchedules) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	start, end, day, err := parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	mapping, err := s.mappings.FindActiveByPair(ctx, req.ConsultantID, req.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active mapping for this consultant and client")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mapping")
	}
	if mapping.RemainingSessions <= 0 {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "no remaining sessions on this mapping")
	}

	if err := s.ensureWithinAvailability(ctx, req.ConsultantID, day, start, end); err != nil {
		return nil, err
	}
	if err := s.ensureNoVacation(ctx, req.ConsultantID, req.Date, start, end); err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		ConsultantID: req.ConsultantID,
		ClientID:     req.ClientID,
		BranchCode:   mapping.BranchCode,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Type:         req.Type,
		Title:        req.Title,
		Description:  req.Description,
	}
	if err := s.repo.CreateBooked(ctx, schedule); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: schedule.ConsultantID,
		Kind:        models.NotifyScheduleBooked,
		Subject:     "New booking",
		Body:        fmt.Sprintf("Consultation booked for %s %s-%s.", schedule.Date, schedule.StartTime, schedule.EndTime),
		Metadata:    map[string]string{"schedule_id": schedule.ID},
	})
	s.logger.Info("schedule booked",
		zap.String("schedule_id", schedule.ID),
		zap.String("consultant_id", schedule.ConsultantID),
		zap.String("client_id", schedule.ClientID),
		zap.String("date", schedule.Date))
	return schedule, nil
}

// Get returns one schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// List returns schedules matching the filter.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
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

// canModify reports whether the actor may change this schedule: admins may
// change any, a consultant only their own.
func canModify(actor models.Actor, sch *models.Schedule) bool {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleSuperAdmin {
		return true
	}
	return actor.UserID == sch.ConsultantID
}

// Update reschedules or annotates a booking. Only the owning consultant or
// an admin may change it; only BOOKED and CONFIRMED schedules can change; a
// moved window is re-validated against availability, vacations, and other
// bookings.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest, actor models.Actor) (*models.Schedule, error) {
	if !actor.Can(models.CapManageSchedules) {
		return nil, appErrors.ErrForbidden
	}

	schedule, err := s.mutateSchedule(ctx, id, func(sch *models.Schedule) error {
		if !canModify(actor, sch) {
			return appErrors.ErrForbidden
		}
		if !sch.Status.Blocking() {
			return appErrors.StateConflict("schedule", string(sch.Status), "update")
		}
		if req.Date != nil {
			sch.Date = *req.Date
		}
		if req.StartTime != nil {
			sch.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			sch.EndTime = *req.EndTime
		}
		if req.Title != nil {
			sch.Title = *req.Title
		}
		if req.Description != nil {
			sch.Description = *req.Description
		}
		if req.Notes != nil {
			sch.Notes = *req.Notes
		}

		windowMoved := req.Date != nil || req.StartTime != nil || req.EndTime != nil
		if windowMoved {
			start, end, day, err := parseWindow(sch.Date, sch.StartTime, sch.EndTime)
			if err != nil {
				return err
			}
			if err := s.ensureWithinAvailability(ctx, sch.ConsultantID, day, start, end); err != nil {
				return err
			}
			if err := s.ensureNoVacation(ctx, sch.ConsultantID, sch.Date, start, end); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule updated", zap.String("schedule_id", id), zap.String("actor_id", actor.UserID))
	return schedule, nil
}

// Confirm moves a BOOKED schedule to CONFIRMED.
func (s *ScheduleService) Confirm(ctx context.Context, id string, actor models.Actor) (*models.Schedule, error) {
	if !actor.Can(models.CapConfirmSchedules) {
		return nil, appErrors.ErrForbidden
	}

	schedule, err := s.mutateSchedule(ctx, id, func(sch *models.Schedule) error {
		if sch.Status != models.ScheduleStatusBooked {
			return appErrors.StateConflict("schedule", string(sch.Status), string(models.ScheduleStatusConfirmed))
		}
		sch.Status = models.ScheduleStatusConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: schedule.ClientID,
		Kind:        models.NotifyScheduleConfirmed,
		Subject:     "Booking confirmed",
		Body:        fmt.Sprintf("Your consultation on %s %s-%s is confirmed.", schedule.Date, schedule.StartTime, schedule.EndTime),
		Metadata:    map[string]string{"schedule_id": schedule.ID},
	})
	s.logger.Info("schedule confirmed", zap.String("schedule_id", id), zap.String("actor_id", actor.UserID))
	return schedule, nil
}

// Cancel moves a blocking schedule to CANCELLED. Only the owning consultant
// or an admin may cancel; completed, already cancelled, or swept schedules
// cannot be cancelled.
func (s *ScheduleService) Cancel(ctx context.Context, id string, req dto.CancelScheduleRequest, actor models.Actor) (*models.Schedule, error) {
	if !actor.Can(models.CapManageSchedules) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancellation payload")
	}

	schedule, err := s.mutateSchedule(ctx, id, func(sch *models.Schedule) error {
		if !canModify(actor, sch) {
			return appErrors.ErrForbidden
		}
		if !sch.Status.Blocking() || sch.Processed {
			return appErrors.StateConflict("schedule", string(sch.Status), string(models.ScheduleStatusCancelled))
		}
		sch.Status = models.ScheduleStatusCancelled
		sch.Notes = req.Reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, models.Notification{
		RecipientID: schedule.ClientID,
		Kind:        models.NotifyScheduleCancelled,
		Subject:     "Booking cancelled",
		Body:        req.Reason,
		Metadata:    map[string]string{"schedule_id": schedule.ID},
	})
	s.logger.Info("schedule cancelled", zap.String("schedule_id", id), zap.String("actor_id", actor.UserID))
	return schedule, nil
}

func (s *ScheduleService) mutateSchedule(ctx context.Context, id string, fn func(*models.Schedule) error) (*models.Schedule, error) {
	schedule, err := s.repo.UpdateLocked(ctx, id, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return schedule, nil
}

// parseWindow validates the date and the HH:MM pair and returns the window
// in minutes plus the weekday.
func parseWindow(date, startTime, endTime string) (int, int, models.DayOfWeek, error) {
	parsed, err := models.ParseDate(date)
	if err != nil {
		return 0, 0, "", appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	start, err := models.ClockMinutes(startTime)
	if err != nil {
		return 0, 0, "", appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	end, err := models.ClockMinutes(endTime)
	if err != nil {
		return 0, 0, "", appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if start >= end {
		return 0, 0, "", appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return start, end, models.DayOfWeekFor(parsed), nil
}

// ensureWithinAvailability requires the window to fit inside one of the
// consultant's weekly slots for that weekday.
func (s *ScheduleService) ensureWithinAvailability(ctx context.Context, consultantID string, day models.DayOfWeek, start, end int) error {
	slots, err := s.calendar.ListSlotsByConsultantAndDay(ctx, consultantID, day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	for _, slot := range slots {
		slotStart, err := models.ClockMinutes(slot.StartTime)
		if err != nil {
			continue
		}
		slotEnd, err := models.ClockMinutes(slot.EndTime)
		if err != nil {
			continue
		}
		if slotStart <= start && end <= slotEnd {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrSchedulingConflict, "requested window is outside the consultant's availability")
}

// ensureNoVacation rejects windows intersecting a vacation exception on the
// date. The message comes from the code catalog so operators can reword it.
func (s *ScheduleService) ensureNoVacation(ctx context.Context, consultantID, date string, start, end int) error {
	vacations, err := s.calendar.ListVacationsByConsultantAndDate(ctx, consultantID, date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vacations")
	}
	for _, vacation := range vacations {
		vStart, vEnd, ok := vacation.Type.Window()
		if !ok {
			if vacation.StartTime == nil || vacation.EndTime == nil {
				continue
			}
			vStart, err = models.ClockMinutes(*vacation.StartTime)
			if err != nil {
				continue
			}
			vEnd, err = models.ClockMinutes(*vacation.EndTime)
			if err != nil {
				continue
			}
		}
		if models.RangesOverlap(start, end, vStart, vEnd) {
			message := "consultant is on vacation during the requested window"
			if s.catalog != nil {
				if label, err := s.catalog.Label(ctx, models.CodeGroupMessages, models.MsgVacationConflict); err == nil && label != models.MsgVacationConflict {
					message = label
				}
			}
			return appErrors.Clone(appErrors.ErrSchedulingConflict, message)
		}
	}
	return nil
}
