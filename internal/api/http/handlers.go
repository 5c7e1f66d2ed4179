package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/vas-service/internal/application"
	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/errors"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/middleware"
)

// Handlers holds the HTTP handlers of the session API
type Handlers struct {
	sessions *application.SessionManager
	logger   *logging.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(sessions *application.SessionManager, logger *logging.Logger) *Handlers {
	RegisterErrors()
	return &Handlers{
		sessions: sessions,
		logger:   logger.WithComponent("http"),
	}
}

// OpenSessionRequest is the body of POST /sessions
type OpenSessionRequest struct {
	OrderNo string `json:"orderNo" binding:"required,order_no"`
}

// SetIssueRequest is the body of PUT /selection/issue
type SetIssueRequest struct {
	Issue string `json:"issue" binding:"max=500"`
}

// UndoRequest is the body of POST /selection/undo
type UndoRequest struct {
	Confirm bool `json:"confirm"`
}

// SetQtyRequest is the body of PUT /allocation/candidates/:candidateId
type SetQtyRequest struct {
	Qty *int `json:"qty" binding:"required,gte=0"`
}

// SessionList is the body of GET /sessions
type SessionList struct {
	OrderNos []string `json:"orderNos"`
	Count    int      `json:"count"`
}

// ListSessions handles GET /api/v1/sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	orderNos := h.sessions.OrderNos()
	c.JSON(http.StatusOK, SessionList{OrderNos: orderNos, Count: len(orderNos)})
}

// OpenSession handles POST /api/v1/sessions
func (h *Handlers) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		abort(c, appErr)
		return
	}

	session, err := h.sessions.Open(c.Request.Context(), req.OrderNo)
	if err != nil {
		abort(c, err)
		return
	}

	h.logger.WithContext(c.Request.Context()).Info("Session opened", "orderNo", req.OrderNo)
	c.JSON(http.StatusCreated, session.View())
}

// GetSession handles GET /api/v1/sessions/:orderNo
func (h *Handlers) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// CloseSession handles DELETE /api/v1/sessions/:orderNo
func (h *Handlers) CloseSession(c *gin.Context) {
	orderNo, ok := orderNoParam(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(orderNo); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshSession handles POST /api/v1/sessions/:orderNo/refresh
func (h *Handlers) RefreshSession(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, s *application.ExecutionSession) error {
		return s.Refresh(ctx)
	})
}

// SelectTask handles POST /api/v1/sessions/:orderNo/tasks/:taskName/select
func (h *Handlers) SelectTask(c *gin.Context) {
	taskName := c.Param("taskName")
	h.mutate(c, func(_ context.Context, s *application.ExecutionSession) error {
		return s.Select(taskName)
	})
}

// ClearSelection handles DELETE /api/v1/sessions/:orderNo/selection
func (h *Handlers) ClearSelection(c *gin.Context) {
	h.mutate(c, func(_ context.Context, s *application.ExecutionSession) error {
		s.ClearSelection()
		return nil
	})
}

// SetIssue handles PUT /api/v1/sessions/:orderNo/selection/issue
func (h *Handlers) SetIssue(c *gin.Context) {
	var req SetIssueRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		abort(c, appErr)
		return
	}
	h.mutate(c, func(_ context.Context, s *application.ExecutionSession) error {
		return s.SetIssue(req.Issue)
	})
}

// ExecuteTask handles POST /api/v1/sessions/:orderNo/selection/execute
func (h *Handlers) ExecuteTask(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, s *application.ExecutionSession) error {
		return s.Execute(ctx)
	})
}

// UndoTask handles POST /api/v1/sessions/:orderNo/selection/undo.
// An empty body counts as not confirmed.
func (h *Handlers) UndoTask(c *gin.Context) {
	var req UndoRequest
	if c.Request.ContentLength != 0 {
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			abort(c, appErr)
			return
		}
	}

	confirmer := domain.ConfirmFunc(func(context.Context, string) (bool, error) {
		return req.Confirm, nil
	})
	h.mutate(c, func(ctx context.Context, s *application.ExecutionSession) error {
		return s.Undo(ctx, confirmer)
	})
}

// CompleteOrder handles POST /api/v1/sessions/:orderNo/complete
func (h *Handlers) CompleteOrder(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, s *application.ExecutionSession) error {
		return s.Complete(ctx)
	})
}

// OpenAllocation handles POST /api/v1/sessions/:orderNo/allocation
func (h *Handlers) OpenAllocation(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	view, err := session.OpenAllocation(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetAllocation handles GET /api/v1/sessions/:orderNo/allocation
func (h *Handlers) GetAllocation(c *gin.Context) {
	h.allocation(c, func(s *application.ExecutionSession) (*application.AllocationView, error) {
		return s.Allocation()
	})
}

// SetCandidateQty handles PUT /api/v1/sessions/:orderNo/allocation/candidates/:candidateId
func (h *Handlers) SetCandidateQty(c *gin.Context) {
	var req SetQtyRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		abort(c, appErr)
		return
	}
	candidateID := c.Param("candidateId")
	h.allocation(c, func(s *application.ExecutionSession) (*application.AllocationView, error) {
		return s.SetSelectedQty(candidateID, *req.Qty)
	})
}

// AutoSelect handles POST /api/v1/sessions/:orderNo/allocation/auto-select
func (h *Handlers) AutoSelect(c *gin.Context) {
	h.allocation(c, func(s *application.ExecutionSession) (*application.AllocationView, error) {
		return s.AutoSelect()
	})
}

// CommitAllocation handles POST /api/v1/sessions/:orderNo/allocation/commit
func (h *Handlers) CommitAllocation(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, s *application.ExecutionSession) error {
		return s.CommitAllocation(ctx)
	})
}

// DiscardAllocation handles DELETE /api/v1/sessions/:orderNo/allocation
func (h *Handlers) DiscardAllocation(c *gin.Context) {
	h.mutate(c, func(_ context.Context, s *application.ExecutionSession) error {
		return s.DiscardAllocation()
	})
}

// mutate runs op on the session and answers with the resulting session view
func (h *Handlers) mutate(c *gin.Context, op func(context.Context, *application.ExecutionSession) error) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), session); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

func (h *Handlers) allocation(c *gin.Context, op func(*application.ExecutionSession) (*application.AllocationView, error)) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	view, err := op(session)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) session(c *gin.Context) (*application.ExecutionSession, bool) {
	orderNo, ok := orderNoParam(c)
	if !ok {
		return nil, false
	}
	session, err := h.sessions.Get(orderNo)
	if err != nil {
		abort(c, err)
		return nil, false
	}
	return session, true
}

func orderNoParam(c *gin.Context) (string, bool) {
	orderNo := c.Param("orderNo")
	if !middleware.ValidOrderNo(orderNo) {
		abort(c, errors.ErrValidation("invalid order number").WithDetail("orderNo", "must be a valid order number"))
		return "", false
	}
	return orderNo, true
}
