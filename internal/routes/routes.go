package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/arnold/milestones-api/internal/handlers"
	"github.com/arnold/milestones-api/internal/middleware"
)

func Setup(app *fiber.App, secret string) {
	api := app.Group("/api")

	protected := api.Group("/", middleware.Protected(secret))

	goals := protected.Group("/goals")

	// Milestones
	goals.Get("/milestones/:id", handlers.GetMilestone)
	goals.Put("/milestones/:id", handlers.UpdateMilestone)
	goals.Delete("/milestones/:id", handlers.DeleteMilestone)
	goals.Post("/milestones/:id/close", handlers.CloseMilestone)
	goals.Put("/milestones/:id/complete", handlers.CompleteMilestone)
	goals.Post("/milestones/:id/recurring-actions", handlers.CreateRecurringAction)
	goals.Post("/milestones/:id/one-time-actions", handlers.CreateOneTimeAction)

	// Actions
	goals.Put("/recurring-actions/:id", handlers.UpdateRecurringAction)
	goals.Delete("/recurring-actions/:id", handlers.DeleteRecurringAction)
	goals.Post("/recurring-actions/:id/log", handlers.LogRecurringAction)
	goals.Put("/one-time-actions/:id", handlers.UpdateOneTimeAction)
	goals.Delete("/one-time-actions/:id", handlers.DeleteOneTimeAction)

	goals.Get("/", handlers.GetGoals)
	goals.Post("/", handlers.CreateGoal)
	goals.Get("/:id", handlers.GetGoal)
	goals.Put("/:id", handlers.UpdateGoal)
	goals.Delete("/:id", handlers.DeleteGoal)
	goals.Put("/:id/archive", handlers.ArchiveGoal)
	goals.Put("/:id/restore", handlers.RestoreGoal)
	goals.Get("/:id/progress", handlers.GetGoalProgress)
	goals.Get("/:id/activity", handlers.GetGoalActivity)
	goals.Get("/:id/milestones", handlers.GetMilestones)
	goals.Post("/:id/milestones", handlers.CreateMilestone)

	// Task board
	tasks := protected.Group("/tasks")
	tasks.Get("/range", handlers.GetTasksRange)
	tasks.Post("/", handlers.CreateTask)
	tasks.Put("/:id/complete", handlers.CompleteTask)
	tasks.Put("/:id/reschedule", handlers.RescheduleTask)

	// Calendar
	calendar := protected.Group("/calendar")
	calendar.Get("/month", handlers.GetCalendarMonth)
	calendar.Get("/day/:date", handlers.GetCalendarDay)
	calendar.Get("/timeline", handlers.GetCalendarTimeline)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Post("/read-all", handlers.MarkAllRead)

	// Device token for push notifications
	protected.Post("/device-token", handlers.RegisterDeviceToken)

	// WebSocket for real-time goal updates
	app.Get("/ws/goals/:id", handlers.WebSocketUpgrade(secret), websocket.New(handlers.HandleWebSocket))
}
