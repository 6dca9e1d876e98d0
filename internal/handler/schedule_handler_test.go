package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

type scheduleServiceStub struct {
	schedule  *models.Schedule
	err       error
	cancelID  string
	cancelReq dto.CancelScheduleRequest
	actor     models.Actor
}

func (s *scheduleServiceStub) Book(ctx context.Context, req dto.CreateScheduleRequest, actor models.Actor) (*models.Schedule, error) {
	return s.schedule, s.err
}

func (s *scheduleServiceStub) Get(ctx context.Context, id string) (*models.Schedule, error) {
	return s.schedule, s.err
}

func (s *scheduleServiceStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	return nil, nil, s.err
}

func (s *scheduleServiceStub) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest, actor models.Actor) (*models.Schedule, error) {
	return s.schedule, s.err
}

func (s *scheduleServiceStub) Confirm(ctx context.Context, id string, actor models.Actor) (*models.Schedule, error) {
	return s.schedule, s.err
}

func (s *scheduleServiceStub) Cancel(ctx context.Context, id string, req dto.CancelScheduleRequest, actor models.Actor) (*models.Schedule, error) {
	s.cancelID = id
	s.cancelReq = req
	s.actor = actor
	return s.schedule, s.err
}

func newScheduleTestRouter(svc scheduleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{
			UserID: "admin-1", Role: models.RoleAdmin, BranchCode: "GANGNAM",
		})
	})
	h := NewScheduleHandler(svc)
	r.DELETE("/schedules/:id", h.Delete)
	return r
}

func TestScheduleHandlerDeleteCancelsBooking(t *testing.T) {
	stub := &scheduleServiceStub{schedule: &models.Schedule{ID: "sch1", Status: models.ScheduleStatusCancelled}}
	router := newScheduleTestRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/schedules/sch1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sch1", stub.cancelID)
	assert.Equal(t, "schedule deleted", stub.cancelReq.Reason)
	assert.Equal(t, "admin-1", stub.actor.UserID)
}

func TestScheduleHandlerDeleteTerminalSchedule(t *testing.T) {
	stub := &scheduleServiceStub{err: appErrors.Clone(appErrors.ErrStateConflict, "schedule is already cancelled")}
	router := newScheduleTestRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/schedules/sch1", nil))

	assert.Equal(t, appErrors.ErrStateConflict.Status, rec.Code)
}
