package http

import (
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/vas-service/internal/application"
	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/errors"
	"github.com/wms-platform/vas-service/pkg/resilience"
)

var registerOnce sync.Once

// RegisterErrors maps the session and domain sentinels onto API error codes
func RegisterErrors() {
	registerOnce.Do(func() {
		errors.RegisterDomainError(application.ErrSessionNotFound, "SESSION_NOT_FOUND", http.StatusNotFound)
		errors.RegisterDomainError(domain.ErrTaskNotFound, "TASK_NOT_FOUND", http.StatusNotFound)
		errors.RegisterDomainError(domain.ErrCandidateNotFound, "CANDIDATE_NOT_FOUND", http.StatusNotFound)

		errors.RegisterDomainError(domain.ErrNoSelection, "NO_SELECTION", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrNoAllocationSession, "NO_ALLOCATION", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrTaskAlreadyDone, "TASK_ALREADY_DONE", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrTaskNotDone, "TASK_NOT_DONE", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrInvalidStatusTransition, "INVALID_STATUS_TRANSITION", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrAllocationRequired, "ALLOCATION_REQUIRED", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrNoInventoryRequired, "NO_INVENTORY_REQUIRED", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrAlreadyAllocated, "ALREADY_ALLOCATED", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrUndoNotConfirmed, "UNDO_NOT_CONFIRMED", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrIncompleteOrder, "INCOMPLETE_ORDER", http.StatusConflict)
		errors.RegisterDomainError(domain.ErrOrderAlreadyCompleted, "ORDER_ALREADY_COMPLETED", http.StatusConflict)

		errors.RegisterDomainError(domain.ErrInvalidQuantity, errors.CodeValidationError, http.StatusBadRequest)
		errors.RegisterDomainError(domain.ErrInvalidUndoTarget, errors.CodeValidationError, http.StatusBadRequest)
		errors.RegisterDomainError(domain.ErrQuantityExceedsAvailable, "QUANTITY_EXCEEDS_AVAILABLE", http.StatusUnprocessableEntity)
		errors.RegisterDomainError(domain.ErrQuantityExceedsRequired, "QUANTITY_EXCEEDS_REQUIRED", http.StatusUnprocessableEntity)
		errors.RegisterDomainError(domain.ErrInsufficientAllocation, "INSUFFICIENT_ALLOCATION", http.StatusUnprocessableEntity)
		errors.RegisterDomainError(domain.ErrExcessAllocation, "EXCESS_ALLOCATION", http.StatusUnprocessableEntity)
		errors.RegisterDomainError(domain.ErrGuideIncomplete, "GUIDE_INCOMPLETE", http.StatusUnprocessableEntity)
		errors.RegisterDomainError(domain.ErrInvalidGuidePayload, "INVALID_GUIDE_PAYLOAD", http.StatusUnprocessableEntity)
		errors.RegisterDomainError(domain.ErrUnknownGuide, "UNKNOWN_GUIDE", http.StatusUnprocessableEntity)

		errors.RegisterDomainError(domain.ErrRefreshFailed, "REFRESH_FAILED", http.StatusBadGateway)
	})
}

// abort hands err to the error handler middleware. Backend failures become
// 502 with the server's message, or 503 while the circuit breaker is open; wrapped sentinels keep the full text as the
// "cause" detail.
func abort(c *gin.Context, err error) {
	_ = c.Error(toAppError(err))
	c.Abort()
}

func toAppError(err error) *errors.AppError {
	// the change itself went through; only the re-read failed
	if stderrors.Is(err, domain.ErrRefreshFailed) {
		return errors.MapDomainError(err).WithDetail("cause", err.Error())
	}
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.ErrServiceUnavailable("worksheet backend").Wrap(err)
	}

	var remote *domain.RemoteError
	if stderrors.As(err, &remote) {
		return errors.ErrUpstream(remote.Message).
			WithDetail("operation", remote.Operation).
			Wrap(err)
	}

	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	appErr := errors.MapDomainError(err)
	if appErr.Message != err.Error() && appErr.HTTPStatus < http.StatusInternalServerError {
		appErr.WithDetail("cause", err.Error())
	}
	return appErr
}
