package http

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the session API routes
func SetupRoutes(router *gin.Engine, handlers *Handlers) {
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.ListSessions)
			sessions.POST("", handlers.OpenSession)
			sessions.GET("/:orderNo", handlers.GetSession)
			sessions.DELETE("/:orderNo", handlers.CloseSession)
			sessions.POST("/:orderNo/refresh", handlers.RefreshSession)
			sessions.POST("/:orderNo/complete", handlers.CompleteOrder)

			sessions.POST("/:orderNo/tasks/:taskName/select", handlers.SelectTask)

			// Selected task
			sessions.DELETE("/:orderNo/selection", handlers.ClearSelection)
			sessions.PUT("/:orderNo/selection/issue", handlers.SetIssue)
			sessions.POST("/:orderNo/selection/execute", handlers.ExecuteTask)
			sessions.POST("/:orderNo/selection/undo", handlers.UndoTask)

			// Allocation draft
			sessions.POST("/:orderNo/allocation", handlers.OpenAllocation)
			sessions.GET("/:orderNo/allocation", handlers.GetAllocation)
			sessions.DELETE("/:orderNo/allocation", handlers.DiscardAllocation)
			sessions.PUT("/:orderNo/allocation/candidates/:candidateId", handlers.SetCandidateQty)
			sessions.POST("/:orderNo/allocation/auto-select", handlers.AutoSelect)
			sessions.POST("/:orderNo/allocation/commit", handlers.CommitAllocation)
		}
	}
}
