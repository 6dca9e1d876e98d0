package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/service"
)

// Handlers aggregates everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Mappings     *MappingHandler
	Schedules    *ScheduleHandler
	Availability *AvailabilityHandler
	Extensions   *ExtensionHandler
	Refunds      *RefundHandler
	Catalog      *CatalogHandler
	System       *SystemHandler
}

// RegisterRoutes mounts all API routes under the prefix.
func RegisterRoutes(r *gin.Engine, prefix string, authSvc *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/password-reset/request", h.Auth.RequestPasswordReset)
		auth.POST("/password-reset", h.Auth.ResetPassword)
		auth.GET("/me", middleware.JWT(authSvc), h.Auth.Me)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	mappings := secured.Group("/mappings")
	{
		mappings.GET("", middleware.RequireCapability(models.CapViewLedger), h.Mappings.List)
		mappings.GET("/:id", middleware.RequireCapability(models.CapViewLedger), h.Mappings.Get)
		mappings.POST("", middleware.RequireCapability(models.CapManageMappings), h.Mappings.Create)
		mappings.POST("/:id/deposit", middleware.RequireCapability(models.CapApprovePayments), h.Mappings.ConfirmDeposit)
		mappings.POST("/:id/approve", middleware.RequireCapability(models.CapApprovePayments), h.Mappings.Approve)
		mappings.POST("/:id/reject", middleware.RequireCapability(models.CapApprovePayments), h.Mappings.Reject)
		mappings.POST("/:id/transfer", middleware.RequireCapability(models.CapManageMappings), h.Mappings.Transfer)
		mappings.GET("/:id/refunds/quote", middleware.RequireCapability(models.CapProcessRefunds), h.Refunds.Quote)
		mappings.POST("/:id/refunds", middleware.RequireCapability(models.CapProcessRefunds), h.Refunds.Partial)
		mappings.POST("/:id/terminate", middleware.RequireCapability(models.CapProcessRefunds), h.Refunds.Terminate)
	}

	schedules := secured.Group("/schedules")
	{
		schedules.GET("", middleware.RequireCapability(models.CapViewLedger), h.Schedules.List)
		schedules.GET("/:id", middleware.RequireCapability(models.CapViewLedger), h.Schedules.Get)
		schedules.POST("", middleware.RequireCapability(models.CapManageSchedules), h.Schedules.Book)
		schedules.PATCH("/:id", middleware.RequireCapability(models.CapManageSchedules), h.Schedules.Update)
		schedules.POST("/:id/confirm", middleware.RequireCapability(models.CapConfirmSchedules), h.Schedules.Confirm)
		schedules.POST("/:id/cancel", middleware.RequireCapability(models.CapManageSchedules), h.Schedules.Cancel)
		schedules.DELETE("/:id", middleware.RequireCapability(models.CapManageSchedules), h.Schedules.Delete)
	}

	availability := secured.Group("/availability")
	availability.Use(middleware.RequireCapability(models.CapManageAvailability))
	{
		availability.POST("/slots", h.Availability.CreateSlot)
		availability.PUT("/slots/:id", h.Availability.UpdateSlot)
		availability.DELETE("/slots/:id", h.Availability.DeleteSlot)
		availability.POST("/vacations", h.Availability.CreateVacation)
		availability.DELETE("/vacations/:id", h.Availability.DeleteVacation)
		availability.GET("/consultants/:consultant_id/slots", h.Availability.ListSlots)
		availability.GET("/consultants/:consultant_id/vacations", h.Availability.ListVacations)
		availability.GET("/consultants/:consultant_id/day", h.Availability.Day)
	}

	extensions := secured.Group("/extensions")
	{
		extensions.GET("", middleware.RequireCapability(models.CapViewLedger), h.Extensions.List)
		extensions.GET("/statistics", middleware.RequireCapability(models.CapApprovePayments), h.Extensions.Statistics)
		extensions.GET("/:id", middleware.RequireCapability(models.CapViewLedger), h.Extensions.Get)
		extensions.POST("", middleware.RequireCapability(models.CapViewLedger), h.Extensions.Create)
		extensions.POST("/:id/deposit", middleware.RequireCapability(models.CapApprovePayments), h.Extensions.ConfirmDeposit)
		extensions.POST("/:id/approve", middleware.RequireCapability(models.CapApprovePayments), h.Extensions.Approve)
		extensions.POST("/:id/reject", middleware.RequireCapability(models.CapApprovePayments), h.Extensions.Reject)
	}

	refunds := secured.Group("/refunds")
	refunds.Use(middleware.RequireCapability(models.CapProcessRefunds))
	{
		refunds.GET("", h.Refunds.History)
		refunds.GET("/:id/statement", h.Refunds.Statement)
	}

	catalog := secured.Group("/catalog")
	{
		catalog.GET("/branches", h.Catalog.Branches)
		catalog.GET("/codes/:group", h.Catalog.Codes)
	}

	system := secured.Group("/system")
	system.Use(middleware.RequireCapability(models.CapRunSweeper))
	{
		system.GET("/metrics", h.System.Snapshot)
		system.POST("/sweep", h.System.RunSweep)
	}
}
